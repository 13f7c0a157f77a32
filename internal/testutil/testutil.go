// Package testutil provides shared fixtures for tests that drive the client
// against a real API.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"

	"nekozukan/internal/config"
	"nekozukan/internal/database"
	"nekozukan/internal/models"
	"nekozukan/internal/server"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// API is a running server on a loopback port backed by in-memory SQLite.
type API struct {
	URL string
	DB  *gorm.DB
}

// StartAPI runs the API until the test ends. flags is a FEATURE_FLAGS string.
func StartAPI(t *testing.T, flags string, posts ...models.Post) *API {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := database.OpenMemory()
	require.NoError(t, err)
	for i := range posts {
		require.NoError(t, db.Create(&posts[i]).Error)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	srv, err := server.NewServerWithDeps(&config.Config{
		Env:           "test",
		FeatureFlags:  flags,
		StorageDir:    t.TempDir(),
		PublicBaseURL: base,
	}, db, nil)
	require.NoError(t, err)

	app := srv.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return &API{URL: base, DB: db}
}

// ClientConfig returns a client config pointed at the API with a private
// storage file.
func (a *API) ClientConfig(t *testing.T) *config.ClientConfig {
	t.Helper()
	return &config.ClientConfig{
		APIURL:         a.URL,
		StoragePath:    filepath.Join(t.TempDir(), "storage.json"),
		TimeoutSeconds: 5,
		PageSize:       12,
	}
}

// PNG encodes a small solid image.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 240, G: 160, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// WritePNG writes PNG(w, h) to a temp file and returns its path.
func WritePNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, PNG(t, w, h), 0o600))
	return path
}
