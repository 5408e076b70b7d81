package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process level configuration. Every backing service is
// optional; an empty URL selects the in-memory implementation.
type Server struct {
	Addr         string `env:"ASCENT_ADDR" envDefault:":8080"`
	CatalogPath  string `env:"ASCENT_CATALOG_PATH"`
	CascadeDepth int    `env:"ASCENT_CASCADE_DEPTH" envDefault:"1"`
	// OperatorToken guards the operator routes (suspend, resume, score,
	// maintenance). Empty leaves them open, which suits local runs only.
	OperatorToken   string        `env:"ASCENT_OPERATOR_TOKEN"`
	RequestTimeout  time.Duration `env:"ASCENT_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"ASCENT_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Maintenance MaintenanceConfig
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `env:"ASCENT_LOG_LEVEL" envDefault:"info"`
	Format string `env:"ASCENT_LOG_FORMAT" envDefault:"json"`
}

// DatabaseConfig configures the Postgres stores.
type DatabaseConfig struct {
	URL             string        `env:"ASCENT_DATABASE_URL"`
	Driver          string        `env:"ASCENT_DATABASE_DRIVER" envDefault:"postgres"`
	MaxOpenConns    int           `env:"ASCENT_DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"ASCENT_DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"ASCENT_DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout       time.Duration `env:"ASCENT_DATABASE_TX_TIMEOUT" envDefault:"5s"`
	Migrate         bool          `env:"ASCENT_DATABASE_MIGRATE" envDefault:"true"`
}

// RedisConfig configures the snapshot store and gate cache.
type RedisConfig struct {
	URL          string        `env:"ASCENT_REDIS_URL"`
	PoolSize     int           `env:"ASCENT_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"ASCENT_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"ASCENT_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"ASCENT_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"ASCENT_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	GateCacheTTL time.Duration `env:"ASCENT_REDIS_GATE_CACHE_TTL" envDefault:"1m"`
}

// KafkaConfig configures the event log relay. No brokers disables the relay.
type KafkaConfig struct {
	Brokers           []string      `env:"ASCENT_KAFKA_BROKERS" envSeparator:","`
	Topic             string        `env:"ASCENT_KAFKA_TOPIC" envDefault:"ascent.events"`
	Partitions        int32         `env:"ASCENT_KAFKA_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16         `env:"ASCENT_KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	RelayInterval     time.Duration `env:"ASCENT_KAFKA_RELAY_INTERVAL" envDefault:"2s"`
	RelayBatchSize    int           `env:"ASCENT_KAFKA_RELAY_BATCH_SIZE" envDefault:"100"`
}

// MaintenanceConfig configures the periodic progression pass.
type MaintenanceConfig struct {
	Enabled     bool          `env:"ASCENT_MAINTENANCE_ENABLED" envDefault:"true"`
	Interval    time.Duration `env:"ASCENT_MAINTENANCE_INTERVAL" envDefault:"1h"`
	Concurrency int           `env:"ASCENT_MAINTENANCE_CONCURRENCY" envDefault:"8"`
	MaxAttempts int           `env:"ASCENT_MAINTENANCE_MAX_ATTEMPTS" envDefault:"3"`
	Backoff     time.Duration `env:"ASCENT_MAINTENANCE_BACKOFF" envDefault:"100ms"`
}

// FromEnv parses the environment into a Server config and checks it.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Server) Validate() error {
	switch {
	case c.RequestTimeout <= 0:
		return fmt.Errorf("ASCENT_REQUEST_TIMEOUT must be positive")
	case c.CascadeDepth < 0:
		return fmt.Errorf("ASCENT_CASCADE_DEPTH must not be negative")
	case c.Database.Driver != "postgres" && c.Database.Driver != "pgx":
		return fmt.Errorf("ASCENT_DATABASE_DRIVER must be postgres or pgx, got %q", c.Database.Driver)
	case c.Maintenance.Enabled && c.Maintenance.Interval <= 0:
		return fmt.Errorf("ASCENT_MAINTENANCE_INTERVAL must be positive")
	case c.Maintenance.Concurrency < 1:
		return fmt.Errorf("ASCENT_MAINTENANCE_CONCURRENCY must be at least 1")
	case c.Maintenance.MaxAttempts < 1:
		return fmt.Errorf("ASCENT_MAINTENANCE_MAX_ATTEMPTS must be at least 1")
	case len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "":
		return fmt.Errorf("ASCENT_KAFKA_TOPIC is required when brokers are set")
	}
	return nil
}
