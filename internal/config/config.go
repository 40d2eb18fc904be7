// Package config loads settings from .env files, config.yaml, AGENDA_*
// environment variables and the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/keyring"
	"github.com/julianstephens/agenda/internal/logger"
)

// Keys in config.yaml
const (
	KeyStore       = "store"
	KeySQLitePath  = "sqlite_path"
	KeyPostgresURL = "postgres_url"
	KeySupabaseURL = "supabase_url"
	KeyUserID      = "user_id"
	KeyDebug       = "debug"
)

// Environment variables for secrets, resolved before the keyring
const (
	EnvAppSecret    = constants.EnvPrefix + "_APP_SECRET"
	EnvDBConnection = constants.EnvPrefix + "_DB_CONNECTION"
	EnvSupabaseKey  = constants.EnvPrefix + "_SUPABASE_KEY"
	EnvSessionToken = constants.EnvPrefix + "_SESSION_TOKEN"
	EnvJWTSecret    = constants.EnvPrefix + "_JWT_SECRET"
	EnvConfigDir    = constants.EnvPrefix + "_CONFIG_DIR"
)

var ErrUnknownStore = errors.New("unknown store")

type Config struct {
	DataDir     string
	Store       string
	SQLitePath  string
	PostgresURL string
	SupabaseURL string
	UserID      string
	Debug       bool

	// Secrets are never written back to config.yaml
	AppSecret    string
	SupabaseKey  string
	SessionToken string
	JWTSecret    string

	v *viper.Viper
}

// DataDir resolves the data directory: the explicit value, then
// AGENDA_CONFIG_DIR, then ~/.config/agenda
func DataDir(dir string) (string, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		dir = constants.DefaultConfigDir
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", dir, err)
	}
	return expanded, nil
}

// Load reads configuration for dataDir. Missing files are not an error.
func Load(dataDir string) (*Config, error) {
	dir, err := DataDir(dataDir)
	if err != nil {
		return nil, err
	}

	loadEnvFile(".env")
	loadEnvFile(filepath.Join(dir, ".env"))

	v := viper.New()
	v.SetConfigName(constants.ConfigFileName)
	v.SetConfigType(constants.ConfigFileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyStore, constants.StoreSQLite)
	v.SetDefault(KeySQLitePath, filepath.Join(dir, constants.DefaultDBFileName))
	v.SetDefault(KeyDebug, false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	sqlitePath, err := homedir.Expand(v.GetString(KeySQLitePath))
	if err != nil {
		return nil, fmt.Errorf("failed to expand sqlite path: %w", err)
	}

	cfg := &Config{
		DataDir:     dir,
		Store:       strings.ToLower(v.GetString(KeyStore)),
		SQLitePath:  sqlitePath,
		SupabaseURL: v.GetString(KeySupabaseURL),
		UserID:      v.GetString(KeyUserID),
		Debug:       v.GetBool(KeyDebug),
		v:           v,
	}
	cfg.PostgresURL = secret(EnvDBConnection, keyring.ConnectionString, v.GetString(KeyPostgresURL))
	cfg.AppSecret = secret(EnvAppSecret, keyring.AppSecret, "")
	cfg.SupabaseKey = secret(EnvSupabaseKey, keyring.SupabaseKey, "")
	cfg.SessionToken = secret(EnvSessionToken, keyring.SessionToken, "")
	cfg.JWTSecret = os.Getenv(EnvJWTSecret)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Error loading .env file, will use environment variables instead", "path", path, "error", err)
	}
}

// secret resolves env, then keyring, then the config file value
func secret(env string, entry keyring.Entry, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	if v := keyring.Lookup(entry); v != "" {
		return v
	}
	return fallback
}

func (c *Config) Validate() error {
	switch c.Store {
	case constants.StoreSQLite, constants.StorePostgres, constants.StoreSupabase, constants.StoreMemory:
		return nil
	}
	return fmt.Errorf("%w %q (expected sqlite, postgres, supabase or memory)", ErrUnknownStore, c.Store)
}

// File is the path of config.yaml
func (c *Config) File() string {
	return filepath.Join(c.DataDir, constants.ConfigFileName+"."+constants.ConfigFileType)
}

// Save persists the non-secret keys to config.yaml
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	v := viper.New()
	v.SetConfigType(constants.ConfigFileType)
	v.Set(KeyStore, c.Store)
	v.Set(KeySQLitePath, c.SQLitePath)
	v.Set(KeyUserID, c.UserID)
	v.Set(KeyDebug, c.Debug)
	if c.SupabaseURL != "" {
		v.Set(KeySupabaseURL, c.SupabaseURL)
	}
	if err := v.WriteConfigAs(c.File()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	c.v = v
	return nil
}
