package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
)

// LiveFeedConfig holds configuration for the settings WebSocket feed.
type LiveFeedConfig struct {
	// Path is mounted below the API prefix.
	Path string `env:"WS_PATH" envDefault:"/ws/settings" json:"path"`

	// SendBuffer is the per-subscriber queue length. Messages for a subscriber
	// whose queue is full are dropped.
	SendBuffer int `env:"WS_SEND_BUFFER" envDefault:"16" json:"send_buffer"`
}

// SettingsConfig holds all configuration for the settings module.
type SettingsConfig struct {
	MongoDBURI     string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName   string `env:"DATABASE_NAME" envDefault:"product_studio"`
	CollectionName string `env:"SETTINGS_COLLECTION" envDefault:"settings"`

	// Retention is how many snapshots to keep; 0 keeps all of them.
	Retention int `env:"SNAPSHOT_RETENTION" envDefault:"50"`

	// UploadPolicy is a CEL expression over name, mime and size.
	UploadPolicy string `env:"UPLOAD_POLICY" envDefault:"true"`

	LiveFeed LiveFeedConfig `json:"live_feed"`
	Redis    RedisConfig    `json:"redis"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*SettingsConfig, error) {
	cfg := &SettingsConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load settings configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.LiveFeed); err != nil {
		return nil, errors.New("failed to load live feed configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Redis); err != nil {
		return nil, errors.New("failed to load redis configuration from environment: " + err.Error())
	}

	if cfg.MongoDBURI == "" {
		return nil, errors.New("MONGODB_URI environment variable is empty")
	}
	if cfg.Retention < 0 {
		return nil, errors.New("SNAPSHOT_RETENTION must not be negative")
	}
	if cfg.LiveFeed.SendBuffer <= 0 {
		cfg.LiveFeed.SendBuffer = 16
	}
	if cfg.LiveFeed.Path == "" {
		cfg.LiveFeed.Path = "/ws/settings"
	}

	return cfg, nil
}

// DefaultSettingsConfig returns a SettingsConfig with default values.
func DefaultSettingsConfig() *SettingsConfig {
	return &SettingsConfig{
		MongoDBURI:     "mongodb://localhost:27017", // local development
		DatabaseName:   "product_studio",
		CollectionName: "settings",
		Retention:      50,
		UploadPolicy:   "true",
		LiveFeed: LiveFeedConfig{
			Path:       "/ws/settings",
			SendBuffer: 16,
		},
		Redis: DefaultRedisConfig(),
	}
}

// RedisConfig configures the optional latest-snapshot cache
type RedisConfig struct {
	Enabled         bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host            string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string        `env:"REDIS_PORT" envDefault:"6379"`
	Password        string        `env:"REDIS_PASSWORD"`
	Database        int           `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool          `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string        `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string        `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
	CacheKey        string        `env:"REDIS_CACHE_KEY" envDefault:"studio:settings:latest"`
	CacheTTL        time.Duration `env:"REDIS_CACHE_TTL" envDefault:"10m"`
}

// DefaultRedisConfig mirrors the envDefault tags
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:            "localhost",
		Port:            "6379",
		MaxRetries:      3,
		PoolSize:        10,
		MinIdleConns:    2,
		ConnMaxIdleTime: "30m",
		ConnMaxLifetime: "1h",
		CacheKey:        "studio:settings:latest",
		CacheTTL:        10 * time.Minute,
	}
}

// GetAddr returns host:port
func (c *RedisConfig) GetAddr() string {
	return c.Host + ":" + c.Port
}
