// Package v2 opens the application database and applies its schema.
package v2

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/alliancehq/alliance-manager/internal/conf"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

// Config selects and locates the database.
type Config struct {
	// Type is "sqlite" or "mysql".
	Type string
	// Path is the SQLite file. ":memory:" opens a private in-memory database.
	Path string
	// DSN is the MySQL data source name.
	DSN string
	// Debug logs every statement.
	Debug bool
}

// ConfigFromSettings maps application settings to a datastore Config.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		Type: s.Database.Type,
		Path: s.Database.SQLite.Path,
		DSN:  s.Database.MySQL.DSN(),
	}
}

// Manager owns a gorm connection.
type Manager struct {
	db      *gorm.DB
	dialect string
}

// Open connects to the configured database. Migrations are not applied;
// call Initialize.
func Open(cfg Config) (*Manager, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "alliance.db"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(path + "?_foreign_keys=ON&_busy_timeout=5000")
		cfg.Type = "sqlite"
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("failed to open mysql database: empty DSN")
		}
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	level := gorm_logger.Warn
	if cfg.Debug {
		level = gorm_logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gorm_logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Type == "sqlite" {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &Manager{db: db, dialect: cfg.Type}, nil
}

// NewWithDB wraps an existing gorm connection, as used by tests.
func NewWithDB(db *gorm.DB) *Manager {
	return &Manager{db: db, dialect: db.Dialector.Name()}
}

// Initialize applies the schema.
func (m *Manager) Initialize() error {
	if err := m.db.AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB returns the gorm connection.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Dialect returns "sqlite" or "mysql".
func (m *Manager) Dialect() string {
	return m.dialect
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
