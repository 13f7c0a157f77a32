package middleware

import (
	"strings"

	"nekozukan/internal/models"

	"github.com/gofiber/fiber/v2"
)

// VisitorHeader carries the client's opaque visitor identifier.
const VisitorHeader = "X-Visitor-ID"

// Fiber locals set by Visitor.
const (
	LocalVisitorID   = "visitorID"
	LocalVisitorHash = "visitorHash"
)

// Visitor reads the visitor identifier header and stores the id and its hash
// in Fiber locals. Requests without the header pass through untouched.
func Visitor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(VisitorHeader))
		if models.ValidVisitorID(id) {
			c.Locals(LocalVisitorID, id)
			c.Locals(LocalVisitorHash, models.HashVisitor(id))
		}
		return c.Next()
	}
}

// VisitorHash returns the hashed visitor id for the request, or "".
func VisitorHash(c *fiber.Ctx) string {
	vh, _ := c.Locals(LocalVisitorHash).(string)
	return vh
}
