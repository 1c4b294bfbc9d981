package models

import "time"

// Comment represents a reply on a post
type Comment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
}

// CanBeManagedBy reports whether userID may edit or delete the comment.
// postAuthorID is the author of the parent post.
func (c *Comment) CanBeManagedBy(userID, postAuthorID uint) bool {
	return c.UserID == userID || postAuthorID == userID
}
