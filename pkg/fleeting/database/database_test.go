package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fleeting.db", "file:fleeting.db?_foreign_keys=1"},
		{"file:fleeting.db", "file:fleeting.db?_foreign_keys=1"},
		{"file:mem?mode=memory&cache=shared", "file:mem?mode=memory&cache=shared&_foreign_keys=1"},
		{"file:mem?_foreign_keys=0", "file:mem?_foreign_keys=0"},
	}
	for _, tt := range tests {
		if got := SQLiteDSN(tt.in); got != tt.want {
			t.Errorf("SQLiteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConnectSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleeting.db")
	if err := Connect("sqlite", path, logger.Silent); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	var enabled int
	if err := GetDB().Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
		t.Fatalf("PRAGMA failed: %v", err)
	}
	if enabled != 1 {
		t.Errorf("Expected foreign keys to be enabled, got %d", enabled)
	}
}

func TestConnectUnknownDriver(t *testing.T) {
	if err := Connect("oracle", "whatever", logger.Silent); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestConnectTranslatesDuplicateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleeting.db")
	if err := Connect("sqlite", path, logger.Silent); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	db := GetDB()
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	first := models.User{Email: "dup@example.com", PasswordHash: "hash", Name: "First"}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	second := models.User{Email: "dup@example.com", PasswordHash: "hash", Name: "Second"}
	err := db.Create(&second).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected gorm.ErrDuplicatedKey, got %v", err)
	}
}
