package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"math"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"nekozukan/internal/config"
	"nekozukan/internal/models"
	"nekozukan/internal/observability"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"github.com/oklog/ulid/v2"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// PhotoBucket holds every uploaded cat photo.
	PhotoBucket = "cat-photos"
	// PublicPrefix is the key prefix of publicly readable objects.
	PublicPrefix = "public/"
	// CacheControl is sent with every served object.
	CacheControl = "public, max-age=3600"

	DefaultStorageDir      = "/tmp/nekozukan/storage"
	DefaultMaxUploadSizeMB = 10
	MaxImageDimension      = 2048
	ThumbnailSize          = 300
	JPEGQuality            = 82
	WebPQuality            = 70
)

// ErrObjectExists is returned when a key is already taken. Objects are never overwritten.
var ErrObjectExists = errors.New("object already exists")

var knownBuckets = map[string]bool{PhotoBucket: true}

type UploadInput struct {
	Bucket      string
	Filename    string
	ContentType string
	Content     []byte
}

// StoredObject describes an upload and its derived variants.
type StoredObject struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	PublicURL    string `json:"public_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	WebPURL      string `json:"webp_url,omitempty"`
	ContentType  string `json:"content_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SizeBytes    int    `json:"size_bytes"`
}

// StorageService stores uploaded images on local disk, laid out by bucket and key.
type StorageService struct {
	dir           string
	maxUpload     int64
	publicBaseURL string
}

func NewStorageService(cfg *config.Config) *StorageService {
	s := &StorageService{
		dir:       DefaultStorageDir,
		maxUpload: DefaultMaxUploadSizeMB * 1024 * 1024,
	}
	if cfg != nil {
		if cfg.StorageDir != "" {
			s.dir = cfg.StorageDir
		}
		if cfg.StorageMaxUploadMB > 0 {
			s.maxUpload = int64(cfg.StorageMaxUploadMB) * 1024 * 1024
		}
		s.publicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	return s
}

// MaxUploadBytes is the largest accepted upload.
func (s *StorageService) MaxUploadBytes() int64 {
	return s.maxUpload
}

// PublicURL is the address clients use to read bucket/key.
func (s *StorageService) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/media/%s/%s", s.publicBaseURL, bucket, key)
}

// Upload validates and stores an image under public/<ULID>.<ext> together with
// a 300px JPEG thumbnail and a WebP rendition.
func (s *StorageService) Upload(ctx context.Context, in UploadInput) (*StoredObject, error) {
	_, span := observability.StartSpan(ctx, "StorageService.Upload")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if !knownBuckets[in.Bucket] {
		err = models.NewNotFoundError("Bucket", in.Bucket)
		return nil, err
	}
	if len(in.Content) == 0 {
		err = models.NewValidationError("No file uploaded")
		return nil, err
	}
	if int64(len(in.Content)) > s.maxUpload {
		err = models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUpload/(1024*1024)))
		return nil, err
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		err = models.NewValidationError("Invalid image type")
		return nil, err
	}

	decoded, format, decErr := image.Decode(bytes.NewReader(in.Content))
	if decErr != nil {
		err = models.NewValidationError("Invalid image file")
		return nil, err
	}
	sourceMime := decodedFormatToMime(format)
	if sourceMime == "" {
		err = models.NewValidationError("Unsupported image format")
		return nil, err
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && provided != sourceMime &&
		!(provided == "image/jpg" && sourceMime == "image/jpeg") {
		err = models.NewValidationError("Image content type mismatch")
		return nil, err
	}

	// Oversized images are stored downscaled and re-encoded as JPEG.
	body, ext, contentType := in.Content, extensionFor(format), sourceMime
	img := decoded
	if b := decoded.Bounds(); b.Dx() > MaxImageDimension || b.Dy() > MaxImageDimension {
		img = resizeToFit(decoded, MaxImageDimension, MaxImageDimension)
		if body, err = encodeJPEG(img, JPEGQuality); err != nil {
			err = models.NewInternalError(err)
			return nil, err
		}
		ext, contentType = "jpg", "image/jpeg"
	}

	thumb, encErr := encodeJPEG(resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Lanczos3), JPEGQuality)
	if encErr != nil {
		err = models.NewInternalError(encErr)
		return nil, err
	}

	id := ulid.Make().String()
	key := PublicPrefix + id + "." + ext
	thumbKey := PublicPrefix + id + ".thumb.jpg"

	written := make([]string, 0, 3)
	put := func(k string, data []byte) error {
		p, perr := s.objectPath(in.Bucket, k)
		if perr != nil {
			return perr
		}
		if werr := writeExclusive(p, data); werr != nil {
			return werr
		}
		written = append(written, p)
		return nil
	}

	if err = put(key, body); err != nil {
		err = s.storeErr(err, written)
		return nil, err
	}
	if err = put(thumbKey, thumb); err != nil {
		err = s.storeErr(err, written)
		return nil, err
	}

	obj := &StoredObject{
		Bucket:       in.Bucket,
		Key:          key,
		PublicURL:    s.PublicURL(in.Bucket, key),
		ThumbnailURL: s.PublicURL(in.Bucket, thumbKey),
		ContentType:  contentType,
		Width:        img.Bounds().Dx(),
		Height:       img.Bounds().Dy(),
		SizeBytes:    len(body),
	}

	if ext != "webp" {
		webpKey := PublicPrefix + id + ".webp"
		data, werr := encodeWebP(img, WebPQuality)
		if werr != nil {
			err = s.storeErr(werr, written)
			return nil, err
		}
		if err = put(webpKey, data); err != nil {
			err = s.storeErr(err, written)
			return nil, err
		}
		obj.WebPURL = s.PublicURL(in.Bucket, webpKey)
	}

	observability.UploadBytes.Observe(float64(len(in.Content)))
	return obj, nil
}

// Resolve maps bucket/key to a file on disk for serving.
func (s *StorageService) Resolve(bucket, key string) (string, string, error) {
	if !knownBuckets[bucket] || !strings.HasPrefix(key, PublicPrefix) {
		return "", "", models.NewNotFoundError("Object", key)
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", "", models.NewNotFoundError("Object", key)
		}
		return "", "", models.NewInternalError(err)
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return p, contentType, nil
}

// objectPath rejects keys that would escape the bucket directory.
func (s *StorageService) objectPath(bucket, key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean != "/"+key || strings.Contains(key, "\\") {
		return "", models.NewValidationError("Invalid object key")
	}
	return filepath.Join(s.dir, bucket, filepath.FromSlash(key)), nil
}

func (s *StorageService) storeErr(err error, written []string) error {
	for _, p := range written {
		_ = os.Remove(p)
	}
	if errors.Is(err, ErrObjectExists) {
		return models.NewConflictError("Object already exists", err)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func writeExclusive(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if os.IsExist(err) {
			return ErrObjectExists
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return err
	}
	return f.Close()
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(math.Round(float64(w)*scale)), 1)
	newH := max(int(math.Round(float64(h)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func decodedFormatToMime(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func extensionFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
