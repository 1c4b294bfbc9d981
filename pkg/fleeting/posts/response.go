package posts

import (
	"time"

	"github.com/fleetingblog/fleeting/pkg/fleeting/auth"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/fleetingblog/fleeting/pkg/fleeting/render"
	"github.com/fleetingblog/fleeting/pkg/fleeting/tags"
	"github.com/rs/zerolog/log"
)

// PostResponse represents a post in API responses
type PostResponse struct {
	ID        uint               `json:"id"`
	Title     string             `json:"title"`
	Body      string             `json:"body"`
	BodyHTML  string             `json:"body_html"`
	AuthorID  uint               `json:"author_id"`
	Author    auth.UserResponse  `json:"author"`
	Tags      []tags.TagResponse `json:"tags"`
	Comments  []CommentResponse  `json:"comments"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// CommentResponse represents a comment in API responses
type CommentResponse struct {
	ID        uint              `json:"id"`
	PostID    uint              `json:"post_id"`
	UserID    uint              `json:"user_id"`
	Body      string            `json:"body"`
	User      auth.UserResponse `json:"user"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PaginationMeta describes the page returned by a list endpoint
type PaginationMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// ListResponse is a page of posts
type ListResponse struct {
	Data []PostResponse `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// ToResponse converts a post model, rendering its Markdown body
func ToResponse(post *models.Post) PostResponse {
	html, err := render.Markdown(post.Body)
	if err != nil {
		log.Warn().Err(err).Uint("post_id", post.ID).Msg("Failed to render post body")
		html = render.Sanitize(post.Body)
	}

	comments := make([]CommentResponse, len(post.Comments))
	for i := range post.Comments {
		comments[i] = ToCommentResponse(&post.Comments[i])
	}

	return PostResponse{
		ID:        post.ID,
		Title:     post.Title,
		Body:      post.Body,
		BodyHTML:  html,
		AuthorID:  post.AuthorID,
		Author:    auth.ToUserResponse(post.Author),
		Tags:      tags.ToResponses(post.Tags),
		Comments:  comments,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
		ExpiresAt: post.ExpiresAt,
	}
}

// ToCommentResponse converts a comment model
func ToCommentResponse(comment *models.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		Body:      comment.Body,
		User:      auth.ToUserResponse(comment.User),
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

// ToListResponse converts a page of posts
func ToListResponse(result *ListResult) ListResponse {
	data := make([]PostResponse, len(result.Posts))
	for i := range result.Posts {
		data[i] = ToResponse(&result.Posts[i])
	}
	return ListResponse{
		Data: data,
		Meta: PaginationMeta{
			Total:      result.Total,
			Page:       result.Page,
			PerPage:    result.PerPage,
			TotalPages: result.TotalPages,
		},
	}
}
