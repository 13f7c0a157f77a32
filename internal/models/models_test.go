package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_ValueAndScan(t *testing.T) {
	v, err := StringList{"tabby", "sleepy"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["tabby","sleepy"]`, v)

	nilValue, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, nilValue)

	var l StringList
	require.NoError(t, l.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringList{"a", "b"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.Error(t, l.Scan(42))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, AnonymousName, DisplayName(""))
	assert.Equal(t, AnonymousName, DisplayName("   "))
	assert.Equal(t, "mike", DisplayName("mike"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{NewConflictError("dup", nil), fiber.StatusConflict},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestHashVisitor(t *testing.T) {
	a := HashVisitor("visitor-1")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashVisitor("  visitor-1 "))
	assert.NotEqual(t, a, HashVisitor("visitor-2"))
}

func TestValidVisitorID(t *testing.T) {
	assert.True(t, ValidVisitorID("9b2f6c1e-0000-4000-8000-000000000000"))
	assert.False(t, ValidVisitorID("   "))
	assert.False(t, ValidVisitorID(strings.Repeat("x", MaxVisitorIDLength+1)))
}
