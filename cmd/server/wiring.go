package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	adapterconsumer "clearing/internal/adapter/consumer"
	adaptermetrics "clearing/internal/adapter/metrics"
	"clearing/internal/adapter/ports"
	"clearing/internal/adapter/service"
	"clearing/internal/adapter/store/memory"
	adapterpostgres "clearing/internal/adapter/store/postgres"
	"clearing/internal/cache"
	"clearing/internal/clearingnet"
	"clearing/internal/discovery"
	"clearing/internal/events"
	eventskafka "clearing/internal/events/kafka"
	"clearing/internal/events/outbox"
	eventsstan "clearing/internal/events/stan"
	"clearing/internal/events/webhook"
	"clearing/internal/iso20022"
	"clearing/internal/platform/config"
	platformkafka "clearing/internal/platform/kafka"
	"clearing/internal/platform/kafka/consumer"
	opsmetrics "clearing/internal/platform/metrics"
	"clearing/internal/platform/postgres"
	platformredis "clearing/internal/platform/redis"
	"clearing/internal/resilience"
	"clearing/internal/screening"
	"clearing/internal/secrets"
)

// worker is a background loop run under the process errgroup.
type worker interface {
	Run(ctx context.Context) error
}

type app struct {
	service  *service.Service
	registry *prometheus.Registry
	ops      *opsmetrics.Metrics
	log      *slog.Logger

	db      *sql.DB
	pool    *pgxpool.Pool
	redis   *platformredis.Client
	clients []*kgo.Client
	closers []func() error
	workers []worker
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{registry: prometheus.NewRegistry(), log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.ops = opsmetrics.New(a.registry)
	a.ops.SetBuildInfo(version)

	policies, err := resilience.LoadPolicies(cfg.Resilience.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("resilience policies: %w", err)
	}
	resilienceMetrics := resilience.NewMetrics(a.registry)
	registry := resilience.NewRegistry(policies,
		resilience.WithTenantIsolation(cfg.Resilience.TenantIsolation),
		resilience.WithRegistryMetrics(resilienceMetrics),
		resilience.WithRegistryLogger(log),
	)

	repo, err := a.repository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if a.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	var adapterCache ports.Cache = cache.NewMemory()
	if a.redis != nil {
		adapterCache = cache.NewRedis(a.redis, "clearing:")
		a.closers = append(a.closers, a.redis.Close)
	}

	vault, err := a.vault(cfg)
	if err != nil {
		return nil, err
	}

	registryOfInstances, err := a.discovery(cfg)
	if err != nil {
		return nil, err
	}

	codec, err := iso20022.New(cfg.Codec.NodeID)
	if err != nil {
		return nil, fmt.Errorf("iso20022 codec: %w", err)
	}

	transport := clearingnet.New(
		clearingnet.NewSigner(cfg.Clearing.Issuer, cfg.Clearing.Audience, cfg.Clearing.TokenTTL),
		clearingnet.WithHTTPClient(&http.Client{Timeout: cfg.Clearing.Timeout}),
		clearingnet.WithLogger(log),
	)

	screener := screening.NewDefaultScreener(
		screening.NewListScreener(cfg.Screening.SanctionedNames...),
		screening.WithLogger(log),
		screening.WithMetrics(screening.NewMetrics(a.registry)),
	)

	publisher, err := a.publisher(ctx, cfg, registry, log)
	if err != nil {
		return nil, err
	}

	a.service = service.New(repo,
		service.WithLogger(log),
		service.WithMetrics(adaptermetrics.New(a.registry)),
		service.WithCache(adapterCache),
		service.WithCacheTTL(cfg.Redis.CacheTTL),
		service.WithPublisher(publisher),
		service.WithSecrets(vault),
		service.WithDiscovery(registryOfInstances),
		service.WithTransport(transport),
		service.WithCodec(codec),
		service.WithScreener(screener),
		service.WithResilience(registry),
	)

	if err := a.inboundConsumer(cfg, log); err != nil {
		return nil, err
	}
	return a, nil
}

// repository uses Postgres when a database is configured and memory otherwise.
func (a *app) repository(ctx context.Context, cfg config.Config) (ports.Repository, error) {
	if cfg.Database.URL == "" {
		a.log.Warn("no database configured, adapters are kept in memory")
		return memory.NewInMemory(), nil
	}
	pgcfg := postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MaxOpenConns:    int(cfg.Database.MaxConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.OpenDB(ctx, pgcfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	if cfg.Database.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.OpenPool(ctx, pgcfg)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	return adapterpostgres.New(pool), nil
}

func (a *app) vault(cfg config.Config) (*secrets.Vault, error) {
	var (
		key []byte
		err error
	)
	if cfg.Secrets.MasterKey == "" {
		a.log.Warn("no secrets master key configured, using an ephemeral key")
		key, err = secrets.GenerateMasterKey()
	} else {
		key, err = secrets.ParseMasterKey(cfg.Secrets.MasterKey)
	}
	if err != nil {
		return nil, err
	}

	var backend secrets.Backend = secrets.NewMemoryBackend()
	switch cfg.Secrets.Backend {
	case "", "memory":
	case "redis":
		if a.redis == nil {
			return nil, errors.New("secrets backend redis needs REDIS_URL")
		}
		backend = secrets.NewRedisBackend(a.redis)
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}
	return secrets.New(backend, key, secrets.WithLogger(a.log))
}

func (a *app) discovery(cfg config.Config) (*discovery.Registry, error) {
	instances, err := discovery.ParseInstances(cfg.Discovery.Instances)
	if err != nil {
		return nil, err
	}
	reg := discovery.New(
		discovery.WithHealthPath(cfg.Discovery.HealthPath),
		discovery.WithHealthCacheTTL(cfg.Discovery.HealthCacheTTL),
		discovery.WithHTTPClient(&http.Client{Timeout: cfg.Discovery.HealthTimeout}),
		discovery.WithLogger(a.log),
	)
	for _, in := range instances {
		reg.Register(in)
	}
	return reg, nil
}

// publisher assembles the event sinks. With a database the service writes
// to the outbox and a relay forwards to the bus; otherwise the service
// publishes to the bus directly.
func (a *app) publisher(ctx context.Context, cfg config.Config, registry *resilience.Registry, log *slog.Logger) (ports.EventPublisher, error) {
	eventMetrics := events.NewMetrics(a.registry)
	var sinks []ports.EventPublisher

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := platformkafka.NewClient(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		a.clients = append(a.clients, client)
		if err := platformkafka.EnsureTopics(ctx, client, cfg.Kafka, log, cfg.Kafka.EventsTopic, cfg.Kafka.InboundTopic); err != nil {
			return nil, err
		}
		sinks = append(sinks, events.NewResilient(
			eventskafka.NewPublisher(client, cfg.Kafka.EventsTopic),
			registry.Pipeline(resilience.CategoryKafka),
		))
	}

	if cfg.NATS.URL != "" {
		conn, err := eventsstan.Connect(cfg.NATS, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		pipeline := resilience.NewPipeline(resilience.CategoryKafka, registry.Policy(resilience.CategoryKafka),
			resilience.WithScope("stan"),
			resilience.WithLogger(log),
		)
		sinks = append(sinks, events.NewResilient(eventsstan.NewPublisher(conn, cfg.NATS.Subject), pipeline))
	}

	if cfg.Webhook.URL != "" {
		buffered := events.NewBuffered(
			events.NewResilient(webhook.NewPublisher(cfg.Webhook.URL, cfg.Webhook.Secret), registry.Pipeline(resilience.CategoryWebhook)),
			4096,
			events.WithBufferMetrics(eventMetrics),
			events.WithBufferLogger(log),
		)
		a.workers = append(a.workers, buffered)
		sinks = append(sinks, buffered)
	}

	var bus ports.EventPublisher = events.NewLogPublisher(log)
	if len(sinks) > 0 {
		bus = events.NewFanout(sinks...)
	}

	if a.db == nil || !cfg.Database.OutboxEnabled {
		return bus, nil
	}
	store := outbox.New(a.db)
	a.workers = append(a.workers, outbox.NewRelay(a.db, store, bus,
		outbox.WithInterval(cfg.Database.RelayInterval),
		outbox.WithBatchSize(cfg.Database.RelayBatchSize),
		outbox.WithMetrics(eventMetrics),
		outbox.WithLogger(log),
	))
	return store, nil
}

func (a *app) inboundConsumer(cfg config.Config, log *slog.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	client, err := platformkafka.NewClient(cfg.Kafka,
		kgo.ConsumerGroup(cfg.Kafka.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Kafka.InboundTopic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return err
	}
	a.clients = append(a.clients, client)
	a.workers = append(a.workers, consumer.New(client,
		adapterconsumer.NewInboundHandler(a.service, log),
		consumer.WithLogger(log),
	))
	return nil
}

func (a *app) close() {
	for _, c := range a.clients {
		c.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
}
