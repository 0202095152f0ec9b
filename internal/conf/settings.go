// Package conf loads application settings from defaults, an optional YAML
// file and the environment.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ALLIANCE_DATABASE_TYPE.
const EnvPrefix = "ALLIANCE"

// Settings is the root configuration.
type Settings struct {
	Environment   string               `mapstructure:"environment" yaml:"environment"`
	WebServer     WebServerSettings    `mapstructure:"webserver" yaml:"webserver"`
	Database      DatabaseSettings     `mapstructure:"database" yaml:"database"`
	Alerting      AlertingSettings     `mapstructure:"alerting" yaml:"alerting"`
	Notifications NotificationSettings `mapstructure:"notifications" yaml:"notifications"`
	Logging       LoggingSettings      `mapstructure:"logging" yaml:"logging"`
	Telemetry     TelemetrySettings    `mapstructure:"telemetry" yaml:"telemetry"`
}

type WebServerSettings struct {
	Listen            string `mapstructure:"listen" yaml:"listen"`
	SessionSecret     string `mapstructure:"session_secret" yaml:"session_secret"`
	AdminUser         string `mapstructure:"admin_user" yaml:"admin_user"`
	AdminPasswordHash string `mapstructure:"admin_password_hash" yaml:"admin_password_hash"`
}

type DatabaseSettings struct {
	Type   string         `mapstructure:"type" yaml:"type"` // sqlite or mysql
	SQLite SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL  MySQLSettings  `mapstructure:"mysql" yaml:"mysql"`
}

type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type MySQLSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

// DSN returns a go-sql-driver/mysql data source name.
func (m MySQLSettings) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// AlertingSettings controls the alert engine and its scheduler.
type AlertingSettings struct {
	IntervalMinutes      int    `mapstructure:"interval_minutes" yaml:"interval_minutes"`
	AutoStart            bool   `mapstructure:"auto_start" yaml:"auto_start"`
	HistoryRetentionDays int    `mapstructure:"history_retention_days" yaml:"history_retention_days"`
	Locale               string `mapstructure:"locale" yaml:"locale"`
	Timezone             string `mapstructure:"timezone" yaml:"timezone"`
	AllianceCapacity     int    `mapstructure:"alliance_capacity" yaml:"alliance_capacity"`
}

// Location resolves Timezone, falling back to UTC when empty.
func (a AlertingSettings) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid alerting timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

type NotificationSettings struct {
	HTTPTimeout Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

type TelemetrySettings struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	SentryDSN string `mapstructure:"sentry_dsn" yaml:"sentry_dsn"`
}

// ShouldAutoStartAlerts reports whether the scheduler starts with the process.
func (s *Settings) ShouldAutoStartAlerts() bool {
	return s.Environment == "production" || s.Alerting.AutoStart
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.admin_user", "admin")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", "alliance.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.database", "alliance")

	v.SetDefault("alerting.interval_minutes", 2)
	v.SetDefault("alerting.auto_start", false)
	v.SetDefault("alerting.history_retention_days", 90)
	v.SetDefault("alerting.locale", "fr")
	v.SetDefault("alerting.timezone", "Europe/Paris")
	v.SetDefault("alerting.alliance_capacity", 100)

	v.SetDefault("notifications.http_timeout", "15s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("telemetry.enabled", false)
}

// Load reads settings. When path is empty, config.yaml is searched in the
// working directory, ./config and $HOME/.alliance-manager; a missing file is
// not an error in that case.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names shared with the deployment environment.
	if err := v.BindEnv("environment", EnvPrefix+"_ENVIRONMENT", "APP_ENV", "NODE_ENV"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}
	if err := v.BindEnv("alerting.auto_start", EnvPrefix+"_ALERTING_AUTO_START", "AUTO_START_ALERTS"); err != nil {
		return nil, fmt.Errorf("failed to bind alerting.auto_start: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".alliance-manager"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings the application cannot start with.
func (s *Settings) Validate() error {
	switch s.Database.Type {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database type %q", s.Database.Type)
	}
	if s.Alerting.IntervalMinutes <= 0 {
		return fmt.Errorf("alerting.interval_minutes must be positive, got %d", s.Alerting.IntervalMinutes)
	}
	if s.Alerting.AllianceCapacity <= 0 {
		return fmt.Errorf("alerting.alliance_capacity must be positive, got %d", s.Alerting.AllianceCapacity)
	}
	if s.Notifications.HTTPTimeout < 0 {
		return fmt.Errorf("notifications.http_timeout must not be negative")
	}
	if _, err := s.Alerting.Location(); err != nil {
		return err
	}
	return nil
}
