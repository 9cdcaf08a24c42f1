package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store drivers selectable through STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverDynamo   = "dynamodb"
	DriverMemory   = "memory"
)

// Config holds all runtime configuration loaded from environment variables
// and, optionally, a YAML file named by CONFIG_FILE.
type Config struct {
	AppEnv         string   `yaml:"app_env" env:"APP_ENV" env-default:"development"`
	ServerHost     string   `yaml:"server_host" env:"SERVER_HOST" env-default:"127.0.0.1"`
	ServerPort     int      `yaml:"server_port" env:"SERVER_PORT" env-default:"3000"`
	StoreDriver    string   `yaml:"store_driver" env:"STORE_DRIVER" env-default:"postgres"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	LogLevel       string   `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat      string   `yaml:"log_format" env:"LOG_FORMAT" env-default:"text"`

	Database Database `yaml:"database"`
	Dynamo   Dynamo   `yaml:"dynamo"`
}

// Database configures the Postgres driver.
type Database struct {
	URL            string `yaml:"url" env:"DATABASE_URL"`
	MaxConns       int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	ConnectRetries int    `yaml:"connect_retries" env:"DB_CONNECT_RETRIES" env-default:"5"`
}

// Dynamo configures the DynamoDB driver.
type Dynamo struct {
	Region            string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	EndpointURL       string `yaml:"endpoint_url" env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AccessKeyID       string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretKey         string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	VerificationTable string `yaml:"verification_table" env:"DYNAMO_TABLE_VERIFICATIONS" env-default:"phone_verifications"`
}

// Load reads configuration from path when it is non-empty, otherwise from
// the environment alone. Environment variables win over file values.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the process cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
	case DriverDynamo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.ServerPort)
	}
	if c.Database.ConnectRetries < 1 {
		c.Database.ConnectRetries = 1
	}
	return nil
}

// ServerAddr is the host:port the HTTP server binds to.
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}
