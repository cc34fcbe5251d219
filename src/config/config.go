package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"tracker/src/registry"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Service   ServiceConfig    `mapstructure:"service"`
	Databases DatabasesConfig  `mapstructure:"databases"`
	Ingestion IngestionConfig  `mapstructure:"ingestion"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Sources   []registry.Entry `mapstructure:"sources"`
}

type ServiceType string

const (
	API    ServiceType = "API"
	WORKER ServiceType = "WORKER"
	INGEST ServiceType = "INGEST"
	REPORT ServiceType = "REPORT"
)

type ServiceConfig struct {
	Type ServiceType `mapstructure:"type"`
	Port string      `mapstructure:"port"`
}

type DatabasesConfig struct {
	SQL SQLConfig `mapstructure:"sql"`
}

// SQLConfig selects the holdings store. Driver "sqlite3" uses Path; driver "pgx" uses the connection fields.
type SQLConfig struct {
	Driver           string `mapstructure:"driver"`
	Path             string `mapstructure:"path"`
	Host             string `mapstructure:"host"`
	Port             string `mapstructure:"port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	ConnectionString string `mapstructure:"connection_string"`
}

type IngestionConfig struct {
	Schedule    string        `mapstructure:"schedule"`
	HTTPTimeout time.Duration `mapstructure:"httpTimeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Registry builds the source registry from the configured sources, falling back to the defaults.
func (c *Config) Registry() (*registry.Registry, error) {
	if len(c.Sources) == 0 {
		return registry.Default(), nil
	}
	return registry.New(c.Sources...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.type", string(INGEST))
	v.SetDefault("service.port", "8000")
	v.SetDefault("databases.sql.driver", "sqlite3")
	v.SetDefault("databases.sql.path", "data/etf_holdings.db")
	v.SetDefault("ingestion.schedule", "0 18 * * 1-5")
	v.SetDefault("ingestion.httpTimeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig reads appsettings.yaml (or appsettings.<env>.yaml) from path. A missing file is not an error:
// defaults, a .env file and environment variables (SERVICE_TYPE, DATABASES_SQL_PATH, ...) still apply.
func LoadConfig(path string, env ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	name := "appsettings"
	if len(env) > 0 && env[0] != "" {
		name = name + "." + env[0]
	}
	v.AddConfigPath(path)
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
