// Package server assembles the HTTP surface of the blog.
package server

import (
	"net/http"
	"time"

	"github.com/fleetingblog/fleeting/pkg/fleeting/auth"
	"github.com/fleetingblog/fleeting/pkg/fleeting/comments"
	"github.com/fleetingblog/fleeting/pkg/fleeting/config"
	"github.com/fleetingblog/fleeting/pkg/fleeting/logging"
	"github.com/fleetingblog/fleeting/pkg/fleeting/posts"
	"github.com/fleetingblog/fleeting/pkg/fleeting/tags"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/fleetingblog/fleeting/api/swagger"
)

// Option adjusts how the engine is built
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock makes the post and comment handlers read the time from now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New builds the gin engine with every route registered
func New(db *gorm.DB, cfg config.AppConfig, opts ...Option) *gin.Engine {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	r := gin.New()
	r.Use(logging.Middleware(), logging.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	manager := posts.NewManager(db).WithClock(o.now).WithPageSize(cfg.PageSize)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "fleeting",
			})
		})

		// Auth routes (register and login are public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		protected := api.Group("", auth.AuthMiddleware(db))

		tagsHandler := tags.NewHandler(db)
		tagsHandler.RegisterRoutes(protected)

		postsHandler := posts.NewHandler(manager)
		postsHandler.RegisterRoutes(protected)

		commentsHandler := comments.NewHandler(comments.NewService(db, manager))
		commentsHandler.RegisterRoutes(protected)
	}

	return r
}

// WithCORS wraps h so browsers on the allowed origins may call the API
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})(h)
}
