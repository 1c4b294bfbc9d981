package posts

import (
	"net/http"
	"strconv"

	"github.com/fleetingblog/fleeting/pkg/fleeting/auth"
	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/gin-gonic/gin"
)

// Handler handles post-related requests
type Handler struct {
	manager *Manager
}

// NewHandler creates a new posts handler
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// CreatePostRequest represents the request to create a post
type CreatePostRequest struct {
	Title string   `json:"title" binding:"required,max=255"`
	Body  string   `json:"body" binding:"required"`
	Tags  []string `json:"tags" binding:"required,min=1,dive,max=50"`
}

// UpdatePostRequest represents a partial post update
type UpdatePostRequest struct {
	Title *string   `json:"title" binding:"omitempty,max=255"`
	Body  *string   `json:"body"`
	Tags  *[]string `json:"tags" binding:"omitempty,min=1,dive,max=50"`
}

// Create handles post creation
// @Summary Create a post
// @Description Publish a post that expires 24 hours from now
// @Tags posts
// @Accept json
// @Produce json
// @Param request body CreatePostRequest true "Post details"
// @Success 201 {object} PostResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Unknown tags"
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /posts [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.Respond(c, errs.FromBinding(err))
		return
	}

	post, err := h.manager.Create(c.Request.Context(), userID, CreateInput{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, ToResponse(post))
}

// List returns live posts
// @Summary List posts
// @Description List live posts, newest first, optionally filtered
// @Tags posts
// @Produce json
// @Param tag query string false "Tag name or slug"
// @Param author query int false "Author ID"
// @Param search query string false "Case-insensitive text in title or body"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} ListResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /posts [get]
func (h *Handler) List(c *gin.Context) {
	filter := Filter{
		Tag:    c.Query("tag"),
		Search: c.Query("search"),
	}

	fields := map[string]string{}
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fields["author"] = "Must be a user ID"
		}
		filter.AuthorID = uint(id)
	}
	page, perPage := pagination(c, fields)
	if len(fields) > 0 {
		errs.Respond(c, &errs.ValidationError{Fields: fields})
		return
	}
	filter.Page = page
	filter.PerPage = perPage

	result, err := h.manager.List(c.Request.Context(), filter)
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToListResponse(result))
}

// Mine returns the caller's live posts
// @Summary List my posts
// @Description List the authenticated user's live posts
// @Tags posts
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} ListResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /me/posts [get]
func (h *Handler) Mine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	fields := map[string]string{}
	page, perPage := pagination(c, fields)
	if len(fields) > 0 {
		errs.Respond(c, &errs.ValidationError{Fields: fields})
		return
	}

	result, err := h.manager.ListByAuthor(c.Request.Context(), userID, page, perPage)
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToListResponse(result))
}

// Get returns a single live post
// @Summary Get a post
// @Description Get a live post with its tags and comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostResponse
// @Failure 400 {object} map[string]string "Invalid post ID"
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 410 {object} map[string]string "Post has expired"
// @Security BearerAuth
// @Router /posts/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	postID, ok := ParseID(c, "post")
	if !ok {
		return
	}

	post, err := h.manager.Get(c.Request.Context(), postID)
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToResponse(post))
}

// Update handles partial post updates
// @Summary Update a post
// @Description Change the title, body or tags of a post you wrote
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body UpdatePostRequest true "Fields to change"
// @Success 200 {object} PostResponse
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Post or tags not found"
// @Failure 410 {object} map[string]string "Post has expired"
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /posts/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	postID, ok := ParseID(c, "post")
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs.Respond(c, errs.FromBinding(err))
		return
	}

	post, err := h.manager.Update(c.Request.Context(), postID, userID, UpdateInput{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToResponse(post))
}

// Delete removes a post permanently
// @Summary Delete a post
// @Description Permanently delete a post you wrote, with its comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]string "Post deleted"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	postID, ok := ParseID(c, "post")
	if !ok {
		return
	}

	if err := h.manager.Delete(c.Request.Context(), postID, userID); err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// RegisterRoutes registers post routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/posts", h.Create)
	rg.GET("/posts", h.List)
	rg.GET("/posts/:id", h.Get)
	rg.PATCH("/posts/:id", h.Update)
	rg.DELETE("/posts/:id", h.Delete)
	rg.GET("/me/posts", h.Mine)
}

// ParseID reads the ":id" path parameter, writing a 400 when it is not a positive integer
func ParseID(c *gin.Context, resource string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + resource + " ID"})
		return 0, false
	}
	return uint(id), true
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return 0, false
	}
	return userID, true
}

func pagination(c *gin.Context, fields map[string]string) (int, int) {
	var page, perPage int
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["page"] = "Must be a positive integer"
		}
		page = n
	}
	if raw := c.Query("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPageSize {
			fields["per_page"] = "Must be between 1 and " + strconv.Itoa(MaxPageSize)
		}
		perPage = n
	}
	return page, perPage
}
