// Package config loads hierarchical application configuration: a base file
// layered under environment variables prefixed APP__ with __ as the nested
// key separator, mirroring the original configuration crate's semantics.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// App holds top-level application settings.
type App struct {
	Port          int    `mapstructure:"port"`
	BaseURL       string `mapstructure:"base_url"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// DB holds PostgreSQL connection settings.
type DB struct {
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	RequireSSL bool   `mapstructure:"require_ssl"`
}

// ConnectionString builds a libpq-style DSN, applying RequireSSL to sslmode.
func (d DB) ConnectionString() string {
	sslMode := "require"
	if !d.RequireSSL {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// EmailClient holds outbound email sink settings.
type EmailClient struct {
	APIBaseURL          string `mapstructure:"api_base_url"`
	SenderEmail         string `mapstructure:"sender_email"`
	AuthorizationToken  string `mapstructure:"authorization_token"`
	TimeoutMilliseconds int    `mapstructure:"timeout_milliseconds"`
}

// Settings is the fully resolved application configuration.
type Settings struct {
	App         App         `mapstructure:"app"`
	DB          DB          `mapstructure:"db"`
	EmailClient EmailClient `mapstructure:"email_client"`
	RedisURI    string      `mapstructure:"redis_uri"`
}

// Load reads configuration from (in ascending priority) a local .env file,
// a base config file named "config" under configDir (if present), and
// environment variables prefixed APP__ with __ as the nested separator,
// e.g. APP__DB__HOST overrides db.host.
func Load(configDir string) (*Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: Load: read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	bindDefaults(v)

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("config: Load: unmarshal: %w", err)
	}

	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("config: Load: %w", err)
	}

	return &settings, nil
}

// bindDefaults ensures every recognized key has a viper binding so
// AutomaticEnv can resolve APP__-prefixed overrides even when the key is
// absent from the config file.
func bindDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"app.port":                        8080,
		"app.base_url":                    "http://127.0.0.1:8080",
		"app.admin_username":              "admin",
		"app.admin_password":              "",
		"db.username":                     "postgres",
		"db.password":                     "",
		"db.host":                         "localhost",
		"db.port":                         5432,
		"db.name":                         "newsletter",
		"db.require_ssl":                  true,
		"email_client.api_base_url":       "",
		"email_client.sender_email":       "",
		"email_client.authorization_token": "",
		"email_client.timeout_milliseconds": 10000,
		"redis_uri":                       "redis://127.0.0.1:6379",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func (s Settings) validate() error {
	if s.App.BaseURL == "" {
		return fmt.Errorf("app.base_url is required")
	}
	if s.DB.Name == "" {
		return fmt.Errorf("db.name is required")
	}
	if s.RedisURI == "" {
		return fmt.Errorf("redis_uri is required")
	}
	return nil
}
