package config

import (
	"fmt"

	"github.com/mlane/campaignlens/internal/db"
	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	// MaxUploadBytes caps spreadsheet uploads before the parser ever runs.
	MaxUploadBytes int64
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Mode string // "memory" or "postgres"
}

// AuthConfig selects the auth provider.
type AuthConfig struct {
	Mode  string // "mock" or "token"
	Token string // shared bearer token for "token" mode
}

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Database db.Config
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxUploadBytes: 50 << 20, // 50MB
		},
		Storage:  StorageConfig{Mode: "memory"},
		Auth:     AuthConfig{Mode: "mock"},
		Database: db.DefaultConfig(),
	}
}

// Load reads config.yaml from configPath and applies environment overrides
// with the APP_ prefix (APP_SERVER_PORT, APP_DATABASE_HOST, ...). A missing
// file is fine; defaults plus env vars apply.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")

	v.BindEnv("server.port")
	v.BindEnv("storage.mode")
	v.BindEnv("auth.mode")
	v.BindEnv("auth.token")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("server.max_upload_bytes") {
		cfg.Server.MaxUploadBytes = v.GetInt64("server.max_upload_bytes")
	}
	if v.IsSet("storage.mode") {
		cfg.Storage.Mode = v.GetString("storage.mode")
	}
	if v.IsSet("auth.mode") {
		cfg.Auth.Mode = v.GetString("auth.mode")
	}
	if v.IsSet("auth.token") {
		cfg.Auth.Token = v.GetString("auth.token")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	return cfg, nil
}
