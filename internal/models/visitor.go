package models

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// MaxVisitorIDLength bounds the opaque visitor identifier accepted from clients.
const MaxVisitorIDLength = 128

// HashVisitor returns the hex BLAKE2b-256 digest stored in place of the raw visitor id.
func HashVisitor(visitorID string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(visitorID)))
	return hex.EncodeToString(sum[:])
}

// ValidVisitorID reports whether id is usable as a visitor identifier.
func ValidVisitorID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && len(id) <= MaxVisitorIDLength
}
