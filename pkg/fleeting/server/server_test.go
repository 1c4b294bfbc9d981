package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetingblog/fleeting/pkg/fleeting/auth"
	"github.com/fleetingblog/fleeting/pkg/fleeting/config"
	"github.com/fleetingblog/fleeting/pkg/fleeting/database"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/fleetingblog/fleeting/pkg/fleeting/posts"
	"github.com/fleetingblog/fleeting/pkg/fleeting/tags"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:server-%d?mode=memory&cache=shared&_foreign_keys=1", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), database.NewConfig(logger.Silent))
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

func setupTestRouter(t *testing.T, now *time.Time) (*gorm.DB, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	cfg := config.AppConfig{PageSize: 15}
	return db, New(db, cfg, WithClock(func() time.Time { return *now }))
}

func do(router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	now := time.Now().UTC()
	_, router := setupTestRouter(t, &now)

	for _, path := range []string{"/health", "/api/health"} {
		resp := do(router, "GET", path, "", nil)
		if resp.Code != http.StatusOK {
			t.Errorf("Expected status 200 for %s, got %d", path, resp.Code)
		}
		if resp.Header().Get("X-Request-ID") == "" {
			t.Errorf("Expected request id header on %s", path)
		}
	}
}

func TestSwaggerDoc(t *testing.T) {
	now := time.Now().UTC()
	_, router := setupTestRouter(t, &now)

	resp := do(router, "GET", "/swagger/doc.json", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Expected swagger doc to be JSON: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Error("Expected swagger doc to list paths")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	now := time.Now().UTC()
	_, router := setupTestRouter(t, &now)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/tags"},
		{"GET", "/api/posts"},
		{"POST", "/api/posts"},
		{"GET", "/api/posts/1"},
		{"GET", "/api/me/posts"},
		{"GET", "/api/posts/1/comments"},
		{"DELETE", "/api/comments/1"},
		{"POST", "/api/auth/logout"},
	} {
		resp := do(router, route.method, route.path, "", nil)
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for %s %s, got %d", route.method, route.path, resp.Code)
		}
	}
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, router := setupTestRouter(t, &now)

	resp := do(router, "POST", "/api/auth/register", "", auth.RegisterRequest{
		Name:                 "Writer",
		Email:                "writer@example.com",
		Password:             "secret123",
		PasswordConfirmation: "secret123",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", resp.Code, resp.Body.String())
	}
	var registered auth.AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &registered)
	token := registered.Token

	resp = do(router, "POST", "/api/posts", token, posts.CreatePostRequest{
		Title: "Here today",
		Body:  "Gone tomorrow",
		Tags:  []string{"News", "Opinion"},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Create failed: %d %s", resp.Code, resp.Body.String())
	}
	var post posts.PostResponse
	json.Unmarshal(resp.Body.Bytes(), &post)

	resp = do(router, "POST", fmt.Sprintf("/api/posts/%d/comments", post.ID), token, map[string]string{"body": "First!"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Comment failed: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(router, "GET", "/api/posts?tag=opinion", token, nil)
	var list posts.ListResponse
	json.Unmarshal(resp.Body.Bytes(), &list)
	if list.Meta.Total != 1 || len(list.Data[0].Comments) != 1 {
		t.Errorf("Expected the post with its comment in the list, got %+v", list)
	}

	now = now.Add(24 * time.Hour)

	resp = do(router, "GET", fmt.Sprintf("/api/posts/%d", post.ID), token, nil)
	if resp.Code != http.StatusGone {
		t.Errorf("Expected status 410 once expired, got %d", resp.Code)
	}

	resp = do(router, "GET", "/api/posts", token, nil)
	json.Unmarshal(resp.Body.Bytes(), &list)
	if list.Meta.Total != 0 {
		t.Errorf("Expected expired post to leave the list, got %d", list.Meta.Total)
	}

	resp = do(router, "POST", "/api/auth/logout", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Logout failed: %d", resp.Code)
	}
	if resp := do(router, "GET", "/api/tags", token, nil); resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected revoked token to be rejected, got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	now := time.Now().UTC()
	_, router := setupTestRouter(t, &now)
	handler := WithCORS(router, []string{"http://localhost:5173"})

	req, _ := http.NewRequest("OPTIONS", "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	req, _ = http.NewRequest("OPTIONS", "/api/posts", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allow-origin for unknown origin, got %q", got)
	}
}
