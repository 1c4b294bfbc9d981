package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var DB *gorm.DB

// Connect initializes the database connection.
// SQLite is the default; postgres is selected with driver "postgres".
func Connect(driver, dsn string, logLevel logger.LogLevel) error {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, NewConfig(logLevel))
	if err != nil {
		return err
	}
	return nil
}

// NewConfig returns the gorm settings every connection uses. Driver errors
// are translated so unique violations surface as gorm.ErrDuplicatedKey.
func NewConfig(logLevel logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return sqlite.Open(SQLiteDSN(dsn)), nil
	case DriverPostgres:
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SQLiteDSN makes sure foreign keys are enforced, which the cascades on
// post_tags and comments depend on.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	if strings.HasPrefix(dsn, "file:") {
		return dsn + "?_foreign_keys=1"
	}
	return "file:" + dsn + "?_foreign_keys=1"
}
