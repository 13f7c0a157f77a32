package server

import (
	"errors"
	"strconv"
	"strings"

	"nekozukan/internal/middleware"
	"nekozukan/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters. Bounds are
// applied by the service.
func parsePagination(c *fiber.Ctx) Pagination {
	return Pagination{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+strings.ReplaceAll(param, "_", " ")))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parsePostID validates a post id taken from a body or query string.
func parsePostID(c *fiber.Ctx, raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid post_id"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// visitorID prefers an explicit value and falls back to the visitor header.
func visitorID(c *fiber.Ctx, explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	id, _ := c.Locals(middleware.LocalVisitorID).(string)
	return id
}

// respondErr writes err with the status its AppError code implies.
func respondErr(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
