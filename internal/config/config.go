package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        int    `env:"PORT"         envDefault:"5001"`
	AppEnv      string `env:"APP_ENV"      envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	DBDriver    string `env:"DB_DRIVER"    envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	SecretKey   string `env:"SECRET_KEY,required,notEmpty"`

	Storage Storage
	Minio   Minio `envPrefix:"MINIO_"`
	Kafka   Kafka `envPrefix:"KAFKA_"`
	Redis   Redis `envPrefix:"REDIS_"`
}

type Storage struct {
	Driver    string `env:"STORAGE_DRIVER" envDefault:"local"`
	StaticDir string `env:"STATIC_DIR"     envDefault:"static"`
}

type Minio struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET"  envDefault:"devices"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB"        envDefault:"0"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env not loaded (%v), using process environment", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses the given variables only, ignoring the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Minio.Endpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT is required for STORAGE_DRIVER=minio"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be local or minio, got %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
