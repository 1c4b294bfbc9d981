package models

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:models-%d?mode=memory&cache=shared&_foreign_keys=1", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	// Verify tables exist by checking if we can query them
	tables := []string{"users", "tags", "posts", "post_tags", "comments", "revoked_tokens"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserModel(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{
		Email:        "test@example.com",
		PasswordHash: "hashed_password",
		Name:         "Test User",
	}

	result := db.Create(&user)
	if result.Error != nil {
		t.Fatalf("Failed to create user: %v", result.Error)
	}

	if user.ID == 0 {
		t.Error("Expected user ID to be set after create")
	}

	// Test unique email constraint
	user2 := User{
		Email:        "test@example.com",
		PasswordHash: "another_hash",
		Name:         "Another User",
	}
	result = db.Create(&user2)
	if result.Error == nil {
		t.Error("Expected error when creating user with duplicate email")
	}
}

func TestTagSlugDerivedOnCreate(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	tag := Tag{Name: "Self Improvement"}
	if err := db.Create(&tag).Error; err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	if tag.Slug != "self-improvement" {
		t.Errorf("Expected slug self-improvement, got %q", tag.Slug)
	}

	explicit := Tag{Name: "AI", Slug: "artificial-intelligence"}
	if err := db.Create(&explicit).Error; err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	if explicit.Slug != "artificial-intelligence" {
		t.Errorf("Expected explicit slug to be kept, got %q", explicit.Slug)
	}

	dup := Tag{Name: "Self Improvement"}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("Expected error when creating tag with duplicate name")
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"News":             "news",
		"How To":           "how-to",
		"  Case   Study  ": "case-study",
		"C++ & Go!":        "c-go",
		"AI":               "ai",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPostWithTags(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{Email: "test@example.com", PasswordHash: "hash", Name: "Test"}
	db.Create(&user)

	tag1 := Tag{Name: "News"}
	tag2 := Tag{Name: "AI"}
	db.Create(&tag1)
	db.Create(&tag2)

	now := time.Now().UTC()
	post := Post{
		AuthorID:  user.ID,
		Title:     "Hello",
		Body:      "World",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
		Tags:      []Tag{tag1, tag2},
	}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	var loaded Post
	db.Preload("Tags").Preload("Author").First(&loaded, post.ID)
	if len(loaded.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(loaded.Tags))
	}
	if loaded.Author.Email != "test@example.com" {
		t.Errorf("Expected author to be preloaded, got %+v", loaded.Author)
	}
}

func TestPostIsExpired(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	post := Post{CreatedAt: created, ExpiresAt: created.Add(24 * time.Hour)}

	if post.IsExpired(created.Add(23 * time.Hour)) {
		t.Error("Expected post to be live before its deadline")
	}
	if !post.IsExpired(created.Add(24 * time.Hour)) {
		t.Error("Expected post to be expired exactly at its deadline")
	}
	if !post.IsExpired(created.Add(25 * time.Hour)) {
		t.Error("Expected post to be expired after its deadline")
	}
}

func TestCommentCanBeManagedBy(t *testing.T) {
	comment := Comment{UserID: 7}

	if !comment.CanBeManagedBy(7, 1) {
		t.Error("Expected comment author to manage the comment")
	}
	if !comment.CanBeManagedBy(1, 1) {
		t.Error("Expected post author to manage the comment")
	}
	if comment.CanBeManagedBy(3, 1) {
		t.Error("Expected an unrelated user to be refused")
	}
}
