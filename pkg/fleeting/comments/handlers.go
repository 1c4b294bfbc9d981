package comments

import (
	"net/http"

	"github.com/fleetingblog/fleeting/pkg/fleeting/auth"
	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/fleetingblog/fleeting/pkg/fleeting/posts"
	"github.com/gin-gonic/gin"
)

// Handler handles comment-related requests
type Handler struct {
	service *Service
}

// NewHandler creates a new comments handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CommentRequest represents the body of a create or update request
type CommentRequest struct {
	Body string `json:"body" binding:"required,max=1000"`
}

// List returns the comments of a post
// @Summary List comments
// @Description List the comments of a live post, oldest first
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} posts.CommentResponse
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 410 {object} map[string]string "Post has expired"
// @Security BearerAuth
// @Router /posts/{id}/comments [get]
func (h *Handler) List(c *gin.Context) {
	postID, ok := posts.ParseID(c, "post")
	if !ok {
		return
	}

	comments, err := h.service.List(c.Request.Context(), postID)
	if err != nil {
		errs.Respond(c, err)
		return
	}

	responses := make([]posts.CommentResponse, len(comments))
	for i := range comments {
		responses[i] = posts.ToCommentResponse(&comments[i])
	}
	c.JSON(http.StatusOK, responses)
}

// Create adds a comment to a post
// @Summary Comment on a post
// @Description Add a comment to a live post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} posts.CommentResponse
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (h *Handler) Create(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	postID, ok := posts.ParseID(c, "post")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.Respond(c, errs.FromBinding(err))
		return
	}

	comment, err := h.service.Create(c.Request.Context(), postID, userID, req.Body)
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, posts.ToCommentResponse(comment))
}

// Update edits a comment
// @Summary Update a comment
// @Description Edit a comment you wrote or one on your own post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body CommentRequest true "Comment"
// @Success 200 {object} posts.CommentResponse
// @Failure 403 {object} map[string]string "Not allowed"
// @Failure 404 {object} map[string]string "Comment not found"
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /comments/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	commentID, ok := posts.ParseID(c, "comment")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.Respond(c, errs.FromBinding(err))
		return
	}

	comment, err := h.service.Update(c.Request.Context(), commentID, userID, req.Body)
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, posts.ToCommentResponse(comment))
}

// Delete removes a comment
// @Summary Delete a comment
// @Description Delete a comment you wrote or one on your own post
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} map[string]string "Comment deleted"
// @Failure 403 {object} map[string]string "Not allowed"
// @Failure 404 {object} map[string]string "Comment not found"
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	commentID, ok := posts.ParseID(c, "comment")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), commentID, userID); err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// RegisterRoutes registers comment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/posts/:id/comments", h.List)
	rg.POST("/posts/:id/comments", h.Create)
	rg.PUT("/comments/:id", h.Update)
	rg.DELETE("/comments/:id", h.Delete)
}
