package tags

import (
	"net/http"

	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	registry *Registry
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{registry: NewRegistry(db)}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ToResponse converts a tag model into its API shape
func ToResponse(tag models.Tag) TagResponse {
	return TagResponse{
		ID:   tag.ID,
		Name: tag.Name,
		Slug: tag.Slug,
	}
}

// ToResponses converts a list of tag models
func ToResponses(tags []models.Tag) []TagResponse {
	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = ToResponse(t)
	}
	return out
}

// List returns the whole vocabulary
// @Summary List tags
// @Description Get every tag a post may reference
// @Tags tags
// @Produce json
// @Success 200 {array} TagResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	tags, err := h.registry.List(c.Request.Context())
	if err != nil {
		errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToResponses(tags))
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
}
