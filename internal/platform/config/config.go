package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	LogLevel      string
	LogFormat     string

	Storage StorageConfig
	Redis   RedisConfig
	Kafka   KafkaConfig

	UndoWindow          time.Duration
	PendingTTL          time.Duration
	MaxBulkSize         int
	CodeLength          int
	CodeAttempts        int
	NotifyConcurrency   int
	NotifyRetries       int
	NotifyBreakerErrors int
	PolicyFile          string
	RelayInterval       time.Duration
	RelayBatch          int
}

// StorageConfig selects the document store backend.
type StorageConfig struct {
	Driver      string // memory, postgres or sqlite
	DatabaseURL string
	SQLitePath  string
}

// RedisConfig configures the session state store. An empty URL keeps gate
// state in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the notification and audit event topics. No brokers
// means notifications go to the log messenger and the relay is disabled.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	NotificationTopic string
	EventTopic        string
}

// Defaults
const (
	DefaultAddr        = ":8080"
	DefaultEventTopic  = "notaria.document-events"
	DefaultNotifyTopic = "notaria.client-notifications"
)

// FromEnv builds a Server config from NOTARIA_* environment variables so main stays lean.
func FromEnv() (Server, error) {
	return Load("")
}

// Load reads an optional YAML/JSON config file and overlays the environment.
// Keys are dotted in files (redis.pool_size) and underscored in the
// environment (NOTARIA_REDIS_POOL_SIZE).
func Load(path string) (Server, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NOTARIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Server{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Server{
		Addr:          v.GetString("addr"),
		JWTSigningKey: v.GetString("jwt_signing_key"),
		LogLevel:      v.GetString("log.level"),
		LogFormat:     v.GetString("log.format"),
		Storage: StorageConfig{
			Driver:      strings.ToLower(v.GetString("storage.driver")),
			DatabaseURL: v.GetString("storage.database_url"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(v.GetString("kafka.brokers")),
			ClientID:          v.GetString("kafka.client_id"),
			NotificationTopic: v.GetString("kafka.notification_topic"),
			EventTopic:        v.GetString("kafka.event_topic"),
		},
		UndoWindow:          v.GetDuration("undo_window"),
		PendingTTL:          v.GetDuration("pending_ttl"),
		MaxBulkSize:         v.GetInt("max_bulk_size"),
		CodeLength:          v.GetInt("code.length"),
		CodeAttempts:        v.GetInt("code.attempts"),
		NotifyConcurrency:   v.GetInt("notify.concurrency"),
		NotifyRetries:       v.GetInt("notify.retries"),
		NotifyBreakerErrors: v.GetInt("notify.breaker_failures"),
		PolicyFile:          v.GetString("policy_file"),
		RelayInterval:       v.GetDuration("relay.interval"),
		RelayBatch:          v.GetInt("relay.batch"),
	}
	return cfg, cfg.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", DefaultAddr)
	// Use a default for development - should be overridden in production
	v.SetDefault("jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "notaria.db")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("kafka.client_id", "notaria")
	v.SetDefault("kafka.notification_topic", DefaultNotifyTopic)
	v.SetDefault("kafka.event_topic", DefaultEventTopic)
	v.SetDefault("undo_window", 10*time.Second)
	v.SetDefault("pending_ttl", 5*time.Minute)
	v.SetDefault("max_bulk_size", 50)
	v.SetDefault("code.length", 4)
	v.SetDefault("code.attempts", 10)
	v.SetDefault("notify.concurrency", 4)
	v.SetDefault("notify.retries", 2)
	v.SetDefault("notify.breaker_failures", 5)
	v.SetDefault("relay.interval", 2*time.Second)
	v.SetDefault("relay.batch", 100)
}

func (c Server) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.UndoWindow <= 0 {
		return fmt.Errorf("undo_window must be positive, got %s", c.UndoWindow)
	}
	if c.MaxBulkSize <= 0 {
		return fmt.Errorf("max_bulk_size must be positive, got %d", c.MaxBulkSize)
	}
	if c.CodeLength < 4 {
		return fmt.Errorf("code.length must be at least 4, got %d", c.CodeLength)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
