package config

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
)

// FileName is the base name of the configuration file, without extension
const FileName = "bakuretsu"

// EnvPrefix prefixes the environment variables overriding file settings,
// e.g. BAKURETSU_DATABASE_HOST
const EnvPrefix = "BAKURETSU"

// Config represents the bakuretsu configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Async    AsyncConfig    `mapstructure:"async"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// DatabaseConfig represents database configuration. URL, when set, is
// passed to the driver as is and the connection fields are ignored.
type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver"`
	URL             string            `mapstructure:"url"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	User            string            `mapstructure:"user"`
	Password        string            `mapstructure:"password"`
	Name            string            `mapstructure:"name"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpen         int               `mapstructure:"max_open"`
	MaxIdle         int               `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
}

// CacheConfig represents entity cache configuration
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AsyncConfig represents the async lookup pool configuration
type AsyncConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// AdminConfig represents the admin endpoint configuration
type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads the configuration. With an empty path, bakuretsu.yml or
// bakuretsu.yaml is searched from the working directory upwards; a missing
// file leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.max_open", 10)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("async.workers", 4)
	v.SetDefault("async.queue_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("admin.addr", "127.0.0.1:8089")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range []string{"database.url", "database.user", "database.password", "database.name"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path == "" {
		if root, err := FindConfigFile(); err == nil {
			path = root
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile looks for bakuretsu.yml or bakuretsu.yaml in the working
// directory and its parents
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			candidate := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found", FileName)
		}
		dir = parent
	}
}

// Validate validates the configuration. Database settings are checked
// when the database is opened, so commands that never connect work without
// them.
func (c *Config) Validate() error {
	if c.Async.Workers < 1 {
		return fmt.Errorf("async.workers must be at least 1, got %d", c.Async.Workers)
	}
	if c.Async.QueueSize < 1 {
		return fmt.Errorf("async.queue_size must be at least 1, got %d", c.Async.QueueSize)
	}
	return nil
}

// Validate checks the connection settings of the configured driver
func (d *DatabaseConfig) Validate() error {
	if _, err := dialect.For(d.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if d.MaxOpen < 0 || d.MaxIdle < 0 {
		return errors.New("database.max_open and database.max_idle must not be negative")
	}
	if d.MaxOpen > 0 && d.MaxIdle > d.MaxOpen {
		return fmt.Errorf("database.max_idle (%d) cannot be greater than database.max_open (%d)", d.MaxIdle, d.MaxOpen)
	}
	if d.URL != "" {
		return nil
	}

	if d.Name == "" {
		return errors.New("database.name is required")
	}
	if d.isSQLite() {
		return nil
	}
	if d.Host == "" {
		return errors.New("database.host is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", d.Port)
	}
	if d.User == "" {
		return errors.New("database.user is required")
	}
	return nil
}

// Dialect returns the SQL dialect of the configured driver
func (d *DatabaseConfig) Dialect() (dialect.Dialect, error) {
	return dialect.For(d.Driver)
}

// DriverName returns the database/sql driver to open. Postgres goes
// through pgx.
func (d *DatabaseConfig) DriverName() string {
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql", "pgx":
		return "pgx"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return "mysql"
	}
}

func (d *DatabaseConfig) isSQLite() bool {
	return d.DriverName() == "sqlite3"
}

// DSN returns the data source name for the configured driver
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	switch d.DriverName() {
	case "pgx":
		u := url.URL{
			Scheme:   "postgres",
			Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			Path:     "/" + d.Name,
			RawQuery: d.query(),
		}
		if d.User != "" {
			u.User = url.UserPassword(d.User, d.Password)
		}
		return u.String()

	case "sqlite3":
		if q := d.query(); q != "" {
			return "file:" + d.Name + "?" + q
		}
		return d.Name

	default:
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		cfg.DBName = d.Name
		cfg.ParseTime = true
		if len(d.Params) > 0 {
			cfg.Params = make(map[string]string, len(d.Params))
			for k, v := range d.Params {
				cfg.Params[k] = v
			}
		}
		return cfg.FormatDSN()
	}
}

// query encodes Params, sorted by key
func (d *DatabaseConfig) query() string {
	values := url.Values{}
	for k, v := range d.Params {
		values.Set(k, v)
	}
	return values.Encode()
}

// Open validates the settings and opens the database with the configured
// pool limits. The driver must be registered by the caller.
func (d *DatabaseConfig) Open() (*sql.DB, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName(), d.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.Driver, err)
	}
	db.SetMaxOpenConns(d.MaxOpen)
	db.SetMaxIdleConns(d.MaxIdle)
	db.SetConnMaxLifetime(d.ConnMaxLifetime)
	return db, nil
}
