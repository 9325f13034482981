package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig      `mapstructure:"server"`
	Storage        StorageConfig     `mapstructure:"storage" validate:"required"`
	APIKeys        map[string]APIKey `mapstructure:"api_keys" validate:"required,min=1,dive"`
	ServiceVersion string
	BuildCommit    string
}

type ServerConfig struct {
	Port int    `mapstructure:"port" validate:"required,gte=1024,lte=65535"`
	Mode string `mapstructure:"mode" validate:"required,oneof=development production"`
}

// StorageConfig selects the persistence backend. The sqlite and postgres
// sections are only consulted when their backend is selected.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend" validate:"required,oneof=memory sqlite postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// APIKey maps a static bearer key to the principal it authenticates.
type APIKey struct {
	Role  string `mapstructure:"role"  validate:"required,oneof=admin devops cs partner"`
	Actor string `mapstructure:"actor" validate:"required"`
}

// DSN renders the postgres connection string for pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	vip.SetDefault("server.port", 8080)
	vip.SetDefault("server.mode", "development")
	vip.SetDefault("storage.backend", "memory")
	vip.SetDefault("storage.sqlite.path", "credstore.db")
	vip.SetDefault("storage.postgres.port", 5432)
	vip.SetDefault("storage.postgres.sslmode", "disable")

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Storage.Backend == "postgres" {
		pg := cfg.Storage.Postgres
		if pg.Host == "" || pg.User == "" || pg.DBName == "" {
			return nil, fmt.Errorf("config validation failed: postgres backend requires host, user and dbname")
		}
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.SQLite.Path == "" {
		return nil, fmt.Errorf("config validation failed: sqlite backend requires a path")
	}

	cfg.ServiceVersion = getenv("CREDSTORE_SERVICE_VERSION", "unknown")
	cfg.BuildCommit = getenv("CREDSTORE_BUILD_COMMIT", "unknown")

	return &cfg, nil
}

// getenv returns an environment variable or a default value.
func getenv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
