package models

import (
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"
)

// Tag is a label from the seeded vocabulary
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`

	// Relationships
	Posts []Post `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}

// BeforeSave fills in the slug when the caller left it empty
func (t *Tag) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(t.Slug) == "" {
		t.Slug = Slugify(t.Name)
	}
	return nil
}

// Slugify lowercases name and collapses every run of non-alphanumerics into a single hyphen.
// "Self Improvement" becomes "self-improvement".
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
