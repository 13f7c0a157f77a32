// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// AnonymousName is shown for posts and comments submitted without a name.
const AnonymousName = "名無しさん"

// Post is a cat photo in the feed.
// LikesCount is a denormalized counter; it is only ever changed through the
// increment/decrement procedures, never by writing the field directly.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ImageURL    string     `gorm:"not null" json:"image_url"`
	CatName     string     `gorm:"not null" json:"cat_name"`
	PosterName  string     `gorm:"not null;default:'名無しさん'" json:"poster_name"`
	Description *string    `gorm:"type:text" json:"description"`
	Tags        StringList `gorm:"type:text" json:"tags"`
	LikesCount  int        `gorm:"not null;default:0;index" json:"likes_count"`
	IsDeleted   bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"-"`
}

// DisplayPosterName returns the poster name or the anonymous label when blank.
func (p *Post) DisplayPosterName() string {
	return DisplayName(p.PosterName)
}

// DisplayName maps a blank name to AnonymousName.
func DisplayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return AnonymousName
	}
	return name
}
