package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post is a time-limited article. ExpiresAt is fixed at creation and never moves.
type Post struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ExpiresAt time.Time      `gorm:"not null;index" json:"expires_at"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Body      string         `gorm:"type:text;not null" json:"body"`

	// SearchText is the lowercased title and body, matched by text search
	SearchText string `gorm:"type:text;not null;default:''" json:"-"`

	// Relationships
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Tags     []Tag     `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
}

// IsExpired reports whether the post is past its deadline at now
func (p *Post) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// SearchText folds title and body to lower case for case-insensitive search.
// Folding happens in Go so non-ASCII letters match on every dialect.
func SearchText(title, body string) string {
	return strings.ToLower(title + "\n" + body)
}
