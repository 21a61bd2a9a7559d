package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultGateTimeout bounds every cross-service existence or guard check.
const DefaultGateTimeout = 3 * time.Second

// DefaultViewTTL bounds how long a read model entry outlives its last write.
const DefaultViewTTL = 10 * time.Minute

// Config holds one service's configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Gate     GateConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	ViewTTL  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// GateConfig points at the peer service answering existence/guard checks.
type GateConfig struct {
	PeerURL string
	Timeout time.Duration
}

// AuthConfig holds the shared secret for service-to-service tokens. An empty
// secret disables the check and is refused in production.
type AuthConfig struct {
	ServiceSecret string
	TokenTTL      time.Duration
}

// GatewayConfig holds the upstreams of the API gateway.
type GatewayConfig struct {
	LedgerURL   string
	RegistryURL string
}

// Defaults differ per service; Load fills anything left empty from these.
type Defaults struct {
	Name    string
	Port    string
	DBName  string
	PeerURL string
}

// Load reads config.toml (optional) and environment variables prefixed with
// envPrefix (e.g. LEDGER_DATABASE_PASSWORD). Environment wins over the file,
// the file wins over defaults.
func Load(envPrefix string, defaults Defaults) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			ViewTTL:  v.GetDuration("redis.view_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Gate: GateConfig{
			PeerURL: strings.TrimSuffix(v.GetString("gate.peer_url"), "/"),
			Timeout: v.GetDuration("gate.timeout"),
		},
		Auth: AuthConfig{
			ServiceSecret: v.GetString("auth.service_secret"),
			TokenTTL:      v.GetDuration("auth.token_ttl"),
		},
		Gateway: GatewayConfig{
			LedgerURL:   strings.TrimSuffix(v.GetString("gateway.ledger_url"), "/"),
			RegistryURL: strings.TrimSuffix(v.GetString("gateway.registry_url"), "/"),
		},
	}

	applyDefaults(cfg, defaults)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config, d Defaults) {
	if cfg.App.Name == "" {
		cfg.App.Name = d.Name
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = d.Port
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = d.DBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.ViewTTL == 0 {
		cfg.Redis.ViewTTL = DefaultViewTTL
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Gate.PeerURL == "" {
		cfg.Gate.PeerURL = d.PeerURL
	}
	if cfg.Gate.Timeout == 0 {
		cfg.Gate.Timeout = DefaultGateTimeout
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = time.Minute
	}
	if cfg.Gateway.LedgerURL == "" {
		cfg.Gateway.LedgerURL = "http://localhost:8083"
	}
	if cfg.Gateway.RegistryURL == "" {
		cfg.Gateway.RegistryURL = "http://localhost:8082"
	}
}

func (c *Config) validate() error {
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Gate.Timeout < 0 {
		return fmt.Errorf("gate.timeout must be positive, got %s", c.Gate.Timeout)
	}
	if c.Redis.ViewTTL < 0 {
		return fmt.Errorf("redis.view_ttl must be positive, got %s", c.Redis.ViewTTL)
	}
	if c.Gate.PeerURL != "" {
		if _, err := url.ParseRequestURI(c.Gate.PeerURL); err != nil {
			return fmt.Errorf("gate.peer_url is not a valid URL: %w", err)
		}
	}

	// The gateway has no database and signs no service tokens.
	if c.App.Env == "production" && c.Database.DBName != "" {
		if len(c.Auth.ServiceSecret) < 32 {
			return fmt.Errorf("auth.service_secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
