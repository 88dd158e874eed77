package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"notaria/internal/audit"
	"notaria/internal/document/gate"
	docmetrics "notaria/internal/document/metrics"
	"notaria/internal/document/notify"
	"notaria/internal/document/retrievalcode"
	"notaria/internal/document/service"
	"notaria/internal/document/store/memory"
	"notaria/internal/document/store/sqlstore"
	"notaria/internal/document/transition"
	"notaria/internal/platform/config"
	"notaria/internal/platform/database"
	"notaria/internal/platform/kafka"
	"notaria/internal/platform/logger"
	redisclient "notaria/internal/platform/redis"
	"notaria/pkg/platform/circuit"
)

// documentStore is everything the process needs from the document backend.
type documentStore interface {
	service.Store
	audit.Outbox
	notify.Recorder
}

// healthCheck is one dependency probe for /healthz.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// app holds the wired dependencies and the resources to release.
type app struct {
	cfg      config.Server
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *docmetrics.Metrics
	store    documentStore
	producer *kafka.Producer
	checks   []healthCheck
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		logger:   logger.New(cfg.LogLevel, cfg.LogFormat),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = docmetrics.New(a.registry)

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.Kafka)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := producer.EnsureTopics(ctx, 3, cfg.Kafka.EventTopic, cfg.Kafka.NotificationTopic); err != nil {
			a.logger.WarnContext(ctx, "could not ensure kafka topics", "error", err)
		}
		a.producer = producer
		a.closers = append(a.closers, producer.Close)
		a.checks = append(a.checks, healthCheck{"kafka", producer.Health})
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.cfg.Storage.Driver == "memory" {
		a.logger.WarnContext(ctx, "using in-memory document store; data is lost on restart")
		a.store = memory.New()
		return nil
	}
	db, dialect, err := database.Open(ctx, database.Config{
		Driver: a.cfg.Storage.Driver,
		URL:    a.cfg.Storage.DatabaseURL,
		Path:   a.cfg.Storage.SQLitePath,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	a.checks = append(a.checks, healthCheck{"database", pinger(db)})
	a.store = sqlstore.New(db, dialect)
	return nil
}

func pinger(db *sql.DB) func(ctx context.Context) error {
	return db.PingContext
}

// coordinator builds the bulk transition service.
func (a *app) coordinator() *service.Service {
	issuer := retrievalcode.New(
		retrievalcode.WithLength(a.cfg.CodeLength),
		retrievalcode.WithMaxAttempts(a.cfg.CodeAttempts),
		retrievalcode.WithMetrics(a.metrics),
	)
	return service.New(a.store, issuer,
		service.WithLogger(a.logger),
		service.WithMetrics(a.metrics),
		service.WithMaxBatch(a.cfg.MaxBulkSize),
	)
}

// messenger picks the Kafka messenger when brokers are configured.
func (a *app) messenger() notify.Messenger {
	if a.producer == nil {
		return notify.NewLogMessenger(a.logger)
	}
	return notify.NewKafkaMessenger(a.producer, a.cfg.Kafka.NotificationTopic)
}

func (a *app) sessions(ctx context.Context) (gate.SessionStore, error) {
	rc, err := redisclient.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		a.logger.WarnContext(ctx, "redis not configured; confirmation and undo state is per process")
		return gate.NewMemoryStore(time.Now), nil
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })
	a.checks = append(a.checks, healthCheck{"redis", rc.Health})
	return gate.NewRedisStore(rc.Client), nil
}

func (a *app) buildGate(ctx context.Context, svc *service.Service) (*gate.Gate, error) {
	policy := transition.DefaultPolicy()
	if a.cfg.PolicyFile != "" {
		p, err := transition.LoadPolicyFile(a.cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("load confirmation policy: %w", err)
		}
		policy = p
	}
	sessions, err := a.sessions(ctx)
	if err != nil {
		return nil, err
	}

	breaker := circuit.New("messenger",
		circuit.WithFailureThreshold(a.cfg.NotifyBreakerErrors),
		circuit.WithCooldown(30*time.Second),
	)
	consolidator := notify.New(a.messenger(),
		notify.WithLogger(a.logger),
		notify.WithMetrics(a.metrics),
		notify.WithRecorder(a.store),
		notify.WithBreaker(breaker),
		notify.WithConcurrency(a.cfg.NotifyConcurrency),
		notify.WithSendRetry(a.cfg.NotifyRetries, 200*time.Millisecond),
	)
	return gate.New(svc, sessions,
		gate.WithLogger(a.logger),
		gate.WithMetrics(a.metrics),
		gate.WithNotifier(consolidator),
		gate.WithPolicy(policy),
		gate.WithUndoWindow(a.cfg.UndoWindow),
		gate.WithPendingTTL(a.cfg.PendingTTL),
	), nil
}

// relay returns nil when there is no broker to relay to.
func (a *app) relay() *audit.Relay {
	if a.producer == nil {
		return nil
	}
	return audit.NewRelay(a.store, a.producer, a.cfg.Kafka.EventTopic,
		audit.WithLogger(a.logger),
		audit.WithMetrics(a.metrics),
		audit.WithBatchSize(a.cfg.RelayBatch),
		audit.WithInterval(a.cfg.RelayInterval),
	)
}
