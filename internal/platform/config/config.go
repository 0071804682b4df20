package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "clearing/pkg/platform/strings"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Server     Server
	Log        Log
	Database   Database
	Redis      RedisConfig
	Kafka      Kafka
	NATS       NATS
	Webhook    Webhook
	Secrets    Secrets
	Discovery  Discovery
	Resilience Resilience
	Codec      Codec
	Clearing   Clearing
	Screening  Screening
}

// Server captures the ops HTTP server configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string // json or text
}

// Database is optional; without a URL adapters are kept in memory.
type Database struct {
	URL             string
	MaxConns        int32
	ConnMaxLifetime time.Duration
	RunMigrations   bool
	OutboxEnabled   bool
	RelayInterval   time.Duration
	RelayBatchSize  int
}

// RedisConfig is optional; without a URL the cache is in-process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

type Kafka struct {
	Brokers       []string
	ClientID      string
	EventsTopic   string
	InboundTopic  string
	ConsumerGroup string
	Partitions    int32
	Replication   int16
}

// NATS configures the optional NATS Streaming event bus.
type NATS struct {
	URL       string
	ClusterID string
	ClientID  string
	Subject   string
}

type Webhook struct {
	URL    string
	Secret string
}

type Secrets struct {
	// MasterKey is a hex-encoded 32-byte key sealing stored secrets.
	MasterKey string
	Backend   string // memory or redis
}

// Discovery holds static instances, as "service=url,service=url".
type Discovery struct {
	Instances      []string
	HealthPath     string
	HealthTimeout  time.Duration
	HealthCacheTTL time.Duration
}

type Resilience struct {
	PolicyFile      string
	TenantIsolation bool
}

type Codec struct {
	NodeID int64
}

// Screening seeds the in-memory sanctions list.
type Screening struct {
	SanctionedNames []string
}

// Clearing configures the network transport.
type Clearing struct {
	Issuer   string
	Audience string
	TokenTTL time.Duration
	Timeout  time.Duration
}

// Load reads an optional .env file and then builds the config from the
// environment. Variables already set win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("CLEARING_OPS_ADDR", ":8080"),
			ShutdownTimeout: envDuration("CLEARING_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: Log{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConns:        int32(envInt("DATABASE_MAX_CONNS", 10)),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			RunMigrations:   envBool("DATABASE_MIGRATE", true),
			OutboxEnabled:   envBool("OUTBOX_ENABLED", true),
			RelayInterval:   envDuration("OUTBOX_RELAY_INTERVAL", time.Second),
			RelayBatchSize:  envInt("OUTBOX_RELAY_BATCH", 100),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("CACHE_TTL", 5*time.Minute),
		},
		Kafka: Kafka{
			Brokers:       envList("KAFKA_BROKERS"),
			ClientID:      envString("KAFKA_CLIENT_ID", "clearing-adapter"),
			EventsTopic:   envString("KAFKA_EVENTS_TOPIC", "clearing.adapter.events"),
			InboundTopic:  envString("KAFKA_INBOUND_TOPIC", "clearing.inbound.messages"),
			ConsumerGroup: envString("KAFKA_CONSUMER_GROUP", "clearing-adapter"),
			Partitions:    int32(envInt("KAFKA_TOPIC_PARTITIONS", 3)),
			Replication:   int16(envInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		NATS: NATS{
			URL:       os.Getenv("NATS_URL"),
			ClusterID: envString("STAN_CLUSTER_ID", "clearing-cluster"),
			ClientID:  envString("STAN_CLIENT_ID", "clearing-adapter"),
			Subject:   envString("STAN_SUBJECT", "clearing.adapter.events"),
		},
		Webhook: Webhook{
			URL:    os.Getenv("WEBHOOK_URL"),
			Secret: os.Getenv("WEBHOOK_SECRET"),
		},
		Secrets: Secrets{
			MasterKey: os.Getenv("SECRETS_MASTER_KEY"),
			Backend:   envString("SECRETS_BACKEND", "memory"),
		},
		Discovery: Discovery{
			Instances:      envList("DISCOVERY_INSTANCES"),
			HealthPath:     envString("DISCOVERY_HEALTH_PATH", "/healthz"),
			HealthTimeout:  envDuration("DISCOVERY_HEALTH_TIMEOUT", 2*time.Second),
			HealthCacheTTL: envDuration("DISCOVERY_HEALTH_CACHE_TTL", 10*time.Second),
		},
		Resilience: Resilience{
			PolicyFile:      os.Getenv("RESILIENCE_POLICY_FILE"),
			TenantIsolation: envBool("RESILIENCE_TENANT_ISOLATION", false),
		},
		Codec: Codec{
			NodeID: int64(envInt("CODEC_NODE_ID", 1)),
		},
		Clearing: Clearing{
			Issuer:   envString("CLEARING_TOKEN_ISSUER", "clearing-adapter"),
			Audience: envString("CLEARING_TOKEN_AUDIENCE", "clearing-network"),
			TokenTTL: envDuration("CLEARING_TOKEN_TTL", time.Minute),
			Timeout:  envDuration("CLEARING_HTTP_TIMEOUT", 60*time.Second),
		},
		Screening: Screening{
			SanctionedNames: envList("SANCTIONED_NAMES"),
		},
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func envList(key string) []string {
	return pstrings.SplitList(os.Getenv(key), ",")
}
