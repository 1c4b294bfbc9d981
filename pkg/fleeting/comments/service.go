package comments

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/fleetingblog/fleeting/pkg/fleeting/posts"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxBodyLength = 1000

// Service manages comments on live posts. A comment may be changed by its
// own author or by the author of the post it belongs to.
type Service struct {
	db    *gorm.DB
	posts *posts.Manager
}

// NewService creates a comment service. manager decides which posts are live.
func NewService(db *gorm.DB, manager *posts.Manager) *Service {
	return &Service{db: db, posts: manager}
}

// Create adds a comment by userID to a live post
func (s *Service) Create(ctx context.Context, postID, userID uint, body string) (*models.Comment, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.FindLive(ctx, postID); err != nil {
		return nil, err
	}

	comment := models.Comment{
		PostID: postID,
		UserID: userID,
		Body:   body,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&comment).Error; err != nil {
		return nil, err
	}
	return s.load(ctx, comment.ID)
}

// Update replaces the body of a comment
func (s *Service) Update(ctx context.Context, commentID, userID uint, body string) (*models.Comment, error) {
	comment, err := s.authorize(ctx, commentID, userID, "update")
	if err != nil {
		return nil, err
	}
	body, err = validateBody(body)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(comment).Omit(clause.Associations).Update("body", body).Error; err != nil {
		return nil, err
	}
	return s.load(ctx, comment.ID)
}

// Delete removes a comment
func (s *Service) Delete(ctx context.Context, commentID, userID uint) error {
	comment, err := s.authorize(ctx, commentID, userID, "delete")
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Comment{}, comment.ID).Error
}

// List returns the comments of a live post, oldest first
func (s *Service) List(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.posts.FindLive(ctx, postID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Service) authorize(ctx context.Context, commentID, userID uint, action string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errs.NotFoundError{Resource: "comment"}
		}
		return nil, err
	}

	post, err := s.posts.FindLive(ctx, comment.PostID)
	if err != nil {
		return nil, err
	}
	if !comment.CanBeManagedBy(userID, post.AuthorID) {
		return nil, &errs.AuthorizationError{Action: action, Resource: "comment"}
	}
	return &comment, nil
}

func (s *Service) load(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, commentID).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func validateBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	switch {
	case trimmed == "":
		return "", errs.NewValidationError("body", "This field is required")
	case utf8.RuneCountInString(trimmed) > maxBodyLength:
		return "", errs.NewValidationError("body", "Must be at most 1000 characters")
	}
	return trimmed, nil
}
