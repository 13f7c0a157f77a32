package models

import "time"

// Like associates a post with the hashed identifier of the visitor who liked it.
// The pair (PostID, VisitorHash) is unique.
type Like struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;uniqueIndex:idx_like_post_visitor" json:"post_id"`
	VisitorHash string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_like_post_visitor" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
