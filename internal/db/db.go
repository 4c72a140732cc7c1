package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/logging"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

// Open picks the driver from the DSN: "sqlite:<path>" (or "file:...") uses the
// embedded pure-Go sqlite, anything else is treated as a MySQL DSN.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		return openSQLite(path, cfg)
	case strings.HasPrefix(dsn, "file:"):
		return openSQLite(dsn, cfg)
	default:
		gdb, err := gorm.Open(mysql.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		return gdb, nil
	}
}

func openSQLite(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(gormsqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// one writer; the key store is edited by a human, usage appends are small
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

// Migrate creates or updates the tables this service owns.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&credential.APIKey{}, &usage.Record{})
}

// Connect opens and migrates the database, exiting the process on failure.
func Connect(dsn string) *gorm.DB {
	gdb, err := Open(dsn)
	if err != nil {
		logging.Fatalf("db connect: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		logging.Fatalf("db migrate: %v", err)
	}
	return gdb
}
