package comments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fleetingblog/fleeting/pkg/fleeting/auth"
	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/fleetingblog/fleeting/pkg/fleeting/posts"
	"github.com/fleetingblog/fleeting/pkg/fleeting/tags"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db      *gorm.DB
	manager *posts.Manager
	service *Service
	now     time.Time
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:comments-%d?mode=memory&cache=shared&_foreign_keys=1", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if _, err := tags.NewRegistry(db).Seed(context.Background(), tags.Vocabulary); err != nil {
		t.Fatalf("Failed to seed tags: %v", err)
	}
	return db
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: setupTestDB(t), now: time.Now().UTC()}
	f.manager = posts.NewManager(f.db).WithClock(func() time.Time { return f.now })
	f.service = NewService(f.db, f.manager)
	return f
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	user := models.User{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Name:         "User " + email,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestPost(t *testing.T, f *fixture, authorID uint) *models.Post {
	t.Helper()
	post, err := f.manager.Create(context.Background(), authorID, posts.CreateInput{
		Title: "Post",
		Body:  "Body",
		Tags:  []string{"News"},
	})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return post
}

func TestCreateComment(t *testing.T) {
	f := setup(t)
	author := createTestUser(t, f.db, "author@example.com")
	reader := createTestUser(t, f.db, "reader@example.com")
	post := createTestPost(t, f, author.ID)

	comment, err := f.service.Create(context.Background(), post.ID, reader.ID, "  Great read  ")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if comment.Body != "Great read" {
		t.Errorf("Expected trimmed body, got %q", comment.Body)
	}
	if comment.User.ID != reader.ID {
		t.Errorf("Expected commenter to be loaded, got %+v", comment.User)
	}

	loaded, _ := f.manager.Get(context.Background(), post.ID)
	if len(loaded.Comments) != 1 || loaded.Comments[0].User.Email != reader.Email {
		t.Errorf("Expected post to carry the comment with its author, got %+v", loaded.Comments)
	}
}

func TestCreateCommentValidation(t *testing.T) {
	f := setup(t)
	author := createTestUser(t, f.db, "author@example.com")
	post := createTestPost(t, f, author.ID)

	for _, body := range []string{"", "   ", strings.Repeat("x", 1001)} {
		if _, err := f.service.Create(context.Background(), post.ID, author.ID, body); !errs.IsValidation(err) {
			t.Errorf("Expected ValidationError for body of length %d, got %v", len(body), err)
		}
	}
}

func TestCreateCommentOnExpiredPost(t *testing.T) {
	f := setup(t)
	author := createTestUser(t, f.db, "author@example.com")
	post := createTestPost(t, f, author.ID)

	f.now = f.now.Add(25 * time.Hour)
	_, err := f.service.Create(context.Background(), post.ID, author.ID, "Too late")
	if !errs.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}

	if _, err := f.service.Create(context.Background(), 9999, author.ID, "Nowhere"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError for missing post, got %v", err)
	}
}

func TestCommentOwnershipRule(t *testing.T) {
	f := setup(t)
	postAuthor := createTestUser(t, f.db, "author@example.com")
	commenter := createTestUser(t, f.db, "commenter@example.com")
	stranger := createTestUser(t, f.db, "stranger@example.com")
	post := createTestPost(t, f, postAuthor.ID)
	ctx := context.Background()

	comment, _ := f.service.Create(ctx, post.ID, commenter.ID, "Original")

	_, err := f.service.Update(ctx, comment.ID, stranger.ID, "Vandalised")
	var authz *errs.AuthorizationError
	if !errors.As(err, &authz) {
		t.Fatalf("Expected AuthorizationError for stranger, got %v", err)
	}
	if err.Error() != "You are not authorized to update this comment" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	updated, err := f.service.Update(ctx, comment.ID, commenter.ID, "Edited by me")
	if err != nil {
		t.Fatalf("Expected comment author to update, got %v", err)
	}
	if updated.Body != "Edited by me" {
		t.Errorf("Expected body to change, got %q", updated.Body)
	}

	if _, err := f.service.Update(ctx, comment.ID, postAuthor.ID, "Moderated"); err != nil {
		t.Errorf("Expected post author to update, got %v", err)
	}

	if err := f.service.Delete(ctx, comment.ID, stranger.ID); !errs.IsForbidden(err) {
		t.Errorf("Expected AuthorizationError on delete by stranger, got %v", err)
	}
	if err := f.service.Delete(ctx, comment.ID, postAuthor.ID); err != nil {
		t.Errorf("Expected post author to delete, got %v", err)
	}
	if err := f.service.Delete(ctx, comment.ID, postAuthor.ID); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError on second delete, got %v", err)
	}
}

func TestCommentOnExpiredPostIsNotFound(t *testing.T) {
	f := setup(t)
	author := createTestUser(t, f.db, "author@example.com")
	post := createTestPost(t, f, author.ID)
	comment, _ := f.service.Create(context.Background(), post.ID, author.ID, "Mine")

	f.now = f.now.Add(24 * time.Hour)

	if _, err := f.service.Update(context.Background(), comment.ID, author.ID, "Edit"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
	if _, err := f.service.List(context.Background(), post.ID); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFoundError listing an expired post, got %v", err)
	}
}

func TestListComments(t *testing.T) {
	f := setup(t)
	author := createTestUser(t, f.db, "author@example.com")
	post := createTestPost(t, f, author.ID)
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		if _, err := f.service.Create(ctx, post.ID, author.ID, body); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	comments, err := f.service.List(ctx, post.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("Expected 3 comments, got %d", len(comments))
	}
	if comments[0].Body != "first" || comments[2].Body != "third" {
		t.Errorf("Expected oldest first, got %q..%q", comments[0].Body, comments[2].Body)
	}
}

func setupTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(f.service)

	api := r.Group("/api")
	api.Use(auth.AuthMiddleware(f.db))
	handler.RegisterRoutes(api)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email)
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path string, body interface{}, user models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCommentHandlers(t *testing.T) {
	f := setup(t)
	router := setupTestRouter(f)
	author := createTestUser(t, f.db, "author@example.com")
	reader := createTestUser(t, f.db, "reader@example.com")
	stranger := createTestUser(t, f.db, "stranger@example.com")
	post := createTestPost(t, f, author.ID)

	resp := doRequest(router, "POST", fmt.Sprintf("/api/posts/%d/comments", post.ID), CommentRequest{Body: "Hello"}, reader)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created posts.CommentResponse
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.UserID != reader.ID || created.PostID != post.ID {
		t.Errorf("Unexpected comment: %+v", created)
	}

	resp = doRequest(router, "GET", fmt.Sprintf("/api/posts/%d/comments", post.ID), nil, stranger)
	var list []posts.CommentResponse
	json.Unmarshal(resp.Body.Bytes(), &list)
	if resp.Code != http.StatusOK || len(list) != 1 {
		t.Errorf("Expected 1 comment, got %d (status %d)", len(list), resp.Code)
	}

	commentPath := fmt.Sprintf("/api/comments/%d", created.ID)
	if resp := doRequest(router, "PUT", commentPath, CommentRequest{Body: "Mine now"}, stranger); resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
	if resp := doRequest(router, "PUT", commentPath, CommentRequest{Body: ""}, reader); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", resp.Code)
	}
	if resp := doRequest(router, "DELETE", commentPath, nil, author); resp.Code != http.StatusOK {
		t.Errorf("Expected post author to delete, got %d", resp.Code)
	}

	f.now = f.now.Add(25 * time.Hour)
	resp = doRequest(router, "POST", fmt.Sprintf("/api/posts/%d/comments", post.ID), CommentRequest{Body: "Late"}, reader)
	if resp.Code != http.StatusGone {
		t.Errorf("Expected status 410 on expired post, got %d", resp.Code)
	}
}
