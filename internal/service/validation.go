package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"nekozukan/internal/models"
)

// Input limits, counted in runes.
const (
	MaxCatNameLen     = 50
	MaxDescriptionLen = 500
	MaxTags           = 10
	MaxTagLen         = 30
	MaxPosterNameLen  = 20
	MaxCommentLen     = 200
)

// normalizeName trims a display name and substitutes the anonymous label for
// blanks. The limit applies to what the caller typed.
func normalizeName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxPosterNameLen {
		return "", models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", field, MaxPosterNameLen))
	}
	return models.DisplayName(name), nil
}

// normalizeTags trims tags, strips a leading '#', and drops empties and duplicates.
func normalizeTags(raw []string) (models.StringList, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(raw))
	out := make(models.StringList, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLen {
			return nil, models.NewValidationError(fmt.Sprintf("Tag too long (max %d characters)", MaxTagLen))
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, models.NewValidationError(fmt.Sprintf("Too many tags (max %d)", MaxTags))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func requireVisitor(visitorID string) error {
	if !models.ValidVisitorID(visitorID) {
		return models.NewValidationError("visitor_id is required")
	}
	return nil
}
