// Package config builds the process configuration: directory layout,
// environment file and database settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultEnvironmentFile is the name of the environment file looked up in
// EnvironmentPath.
const DefaultEnvironmentFile = "_ENV"

// Config is built once at start-up and passed to the commands.
type Config struct {
	// BasePath is the framework directory. The other directories are
	// siblings of it, not children.
	BasePath string

	AppPath         string
	ConfigPath      string
	LangPath        string
	StoragePath     string
	DatabasePath    string
	EnvironmentPath string
	EnvironmentFile string

	MigrationsPath string
	SchemaFile     string
	// ModelsPath holds Go structs with blueprint tags.
	ModelsPath string

	DatabaseURL string
	TablePrefix string

	LogLevel  string
	LogFormat string
}

// Default lays out the directories around basePath:
//
//	<parent>/app
//	<parent>/app/models
//	<parent>/config            (also holds the environment file)
//	<parent>/config/lang
//	<parent>/tmp/storage
//	<parent>/drive/database
//	<parent>/drive/database/migrations
func Default(basePath string) *Config {
	root := filepath.Dir(filepath.Clean(basePath))
	cfg := &Config{
		BasePath:        basePath,
		AppPath:         filepath.Join(root, "app"),
		ConfigPath:      filepath.Join(root, "config"),
		StoragePath:     filepath.Join(root, "tmp", "storage"),
		DatabasePath:    filepath.Join(root, "drive", "database"),
		EnvironmentFile: DefaultEnvironmentFile,
		LogLevel:        "info",
		LogFormat:       "console",
	}
	cfg.LangPath = filepath.Join(cfg.ConfigPath, "lang")
	cfg.ModelsPath = filepath.Join(cfg.AppPath, "models")
	cfg.EnvironmentPath = cfg.ConfigPath
	cfg.MigrationsPath = filepath.Join(cfg.DatabasePath, "migrations")
	cfg.SchemaFile = filepath.Join(cfg.DatabasePath, "schema.yaml")
	return cfg
}

// EnvFile returns the full path of the environment file.
func (c *Config) EnvFile() string {
	return filepath.Join(c.EnvironmentPath, c.EnvironmentFile)
}

// Load builds the default layout and applies settings from the environment
// file, with process environment variables taking precedence. A missing
// environment file is not an error.
func Load(basePath string) (*Config, error) {
	cfg := Default(basePath)

	values, err := godotenv.Read(cfg.EnvFile())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading environment file %s: %w", cfg.EnvFile(), err)
	}
	if values == nil {
		values = map[string]string{}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}

	if v, ok := lookup("STORAGE_PATH"); ok && v != "" {
		cfg.StoragePath = v
	}
	if v, ok := lookup("DATABASE_PATH"); ok && v != "" {
		cfg.DatabasePath = v
		cfg.MigrationsPath = filepath.Join(v, "migrations")
		cfg.SchemaFile = filepath.Join(v, "schema.yaml")
	}
	if v, ok := lookup("MIGRATIONS_PATH"); ok && v != "" {
		cfg.MigrationsPath = v
	}
	if v, ok := lookup("SCHEMA_FILE"); ok && v != "" {
		cfg.SchemaFile = v
	}
	if v, ok := lookup("MODELS_PATH"); ok && v != "" {
		cfg.ModelsPath = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookup("DB_TABLE_PREFIX"); ok {
		cfg.TablePrefix = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		cfg.LogFormat = v
	}
	return cfg, nil
}

// RequireDatabaseURL returns the database URL or an error naming where to
// set it.
func (c *Config) RequireDatabaseURL() (string, error) {
	if c.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL not set (in %s or environment)", c.EnvFile())
	}
	return c.DatabaseURL, nil
}
