// Package control wires storage, the event bus, the processing
// pipeline and the HTTP surface into a runnable service.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/vuxmai/budgetwatch/internal/budget"
	"github.com/vuxmai/budgetwatch/internal/core/config"
	"github.com/vuxmai/budgetwatch/internal/core/domain"
	"github.com/vuxmai/budgetwatch/internal/core/worker"
	"github.com/vuxmai/budgetwatch/internal/health"
	"github.com/vuxmai/budgetwatch/internal/infra/bus"
	redisclient "github.com/vuxmai/budgetwatch/internal/infra/redis"
	"github.com/vuxmai/budgetwatch/internal/infra/storage"
	"github.com/vuxmai/budgetwatch/internal/infra/storage/memory"
	"github.com/vuxmai/budgetwatch/internal/infra/storage/postgres"
	"github.com/vuxmai/budgetwatch/internal/notify"
	"github.com/vuxmai/budgetwatch/internal/processing"
	"github.com/vuxmai/budgetwatch/internal/recovery"
	"github.com/vuxmai/budgetwatch/internal/reliability/backoff"
	"github.com/vuxmai/budgetwatch/internal/reliability/breaker"
	"github.com/vuxmai/budgetwatch/internal/reliability/retry"
)

// databaseDependency names the circuit breaker guarding event handling.
const databaseDependency = "database"

// Service is the main application struct that manages the event
// pipeline lifecycle.
type Service struct {
	cfg          *config.AppConfig
	processor    *processing.Processor
	engine       *budget.Engine
	dispatcher   *notify.Dispatcher
	replay       *recovery.Handler
	pruner       *worker.Pruner
	consumer     *Consumer
	publisher    bus.Publisher
	healthServer *health.Server
	db           *postgres.DB
	store        *memory.MemoryStorage
	redisClient  *redisclient.Client
	deadLetters  storage.DeadLetterRepository
	log          *slog.Logger

	cancel context.CancelFunc
}

// repoSink bridges a dead-letter repository into the processor's sink.
type repoSink struct {
	repo storage.DeadLetterRepository
}

func (s repoSink) Capture(ctx context.Context, dl *domain.DeadLetter) error {
	return s.repo.Add(ctx, dl)
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg *config.AppConfig, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. Storage
	var (
		txRepo     storage.TransactionRepository
		budgetRepo storage.BudgetRepository
		notifRepo  storage.NotificationRepository
		prefRepo   storage.PreferenceRepository
		db         *postgres.DB
		store      *memory.MemoryStorage
	)

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Goose needs the raw *sql.DB that sqlx wraps
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		txRepo = postgres.NewTxRepo(db)
		budgetRepo = postgres.NewBudgetRepo(db)
		notifRepo = postgres.NewNotificationRepo(db)
		prefRepo = postgres.NewPreferenceRepo(db)
		log.Info("Using PostgreSQL storage")
	} else {
		store = memory.NewMemoryStorage()
		txRepo = memory.NewTxRepo(store)
		budgetRepo = memory.NewBudgetRepo(store)
		notifRepo = memory.NewNotificationRepo(store)
		prefRepo = memory.NewPreferenceRepo(store)
		log.Info("Using Memory storage")
	}

	// 2. Dead-letter queue: redis when configured, in-process otherwise
	var (
		redisClient *redisclient.Client
		deadLetters storage.DeadLetterRepository
	)
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deadLetters = redisclient.NewDeadLetterRepo(redisClient, "budgetwatch")
		log.Info("Using Redis dead-letter queue")
	} else {
		deadLetters = memory.NewDeadLetterRepo(memory.NewMemoryStorage())
		log.Info("Using in-memory dead-letter queue")
	}

	// 3. Event bus
	var publisher bus.Publisher
	var natsPub *bus.NATSPublisher
	if cfg.Bus.URL != "" {
		var err error
		natsPub, err = bus.NewNATSPublisher(cfg.Bus)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to bus: %w", err)
		}
		publisher = natsPub
	} else {
		publisher = &bus.LogPublisher{Log: log}
	}

	// 4. Reliability plumbing
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold:  cfg.Breaker.FailureThreshold,
		RecoveryTimeout:   cfg.Breaker.RecoveryTimeout,
		HalfOpenSuccesses: cfg.Breaker.HalfOpenSuccesses,
	})
	exec := retry.New(retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		Backoff: backoff.Config{
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
			Jitter:       cfg.Retry.Jitter,
		},
	}, log)
	processor := processing.NewProcessor(exec, breakers, repoSink{repo: deadLetters}, log)

	// 5. Domain logic
	engine := budget.NewEngine(txRepo, budgetRepo, log)
	dispatcher := notify.NewDispatcher(prefRepo, notifRepo, publisher, log)

	s := &Service{
		cfg:         cfg,
		processor:   processor,
		engine:      engine,
		dispatcher:  dispatcher,
		publisher:   publisher,
		db:          db,
		store:       store,
		redisClient: redisClient,
		deadLetters: deadLetters,
		log:         log,
	}

	// 6. Dead-letter replay
	s.replay = recovery.NewHandler(
		deadLetters,
		s.replayRecord,
		backoff.New(backoff.Config{
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
		}),
		cfg.Replay.MaxAttempts,
		log,
	)

	s.pruner = worker.NewPruner(cfg.History.Retention, notifRepo, log)

	// 7. Consumer loop over the bus
	if natsPub != nil {
		s.consumer = NewConsumer(natsPub, cfg.Consumer, s.ProcessRecords, log)
	}

	// 8. Health surface
	monitor := health.NewMonitor(breakers, deadLetters)
	if db != nil {
		monitor.RegisterChecker("database", db)
	}
	if redisClient != nil {
		monitor.RegisterChecker("redis", redisClient)
	}
	s.healthServer = health.NewServer(monitor, cfg.Server.Port)

	return s, nil
}

// ProcessRecords runs one batch of raw event records through the
// pipeline: normalize, budget recomputation, notification dispatch.
func (s *Service) ProcessRecords(ctx context.Context, records [][]byte) processing.Result {
	return s.processor.ProcessBatch(ctx, records, databaseDependency, s.handleEvent)
}

func (s *Service) handleEvent(ctx context.Context, env domain.Envelope) error {
	ev, err := processing.TransactionDetail(env)
	if err != nil {
		return err
	}

	out, err := s.engine.HandleTransactionEvent(ctx, ev)
	if err != nil {
		return err
	}
	if !out.Processed {
		s.log.Debug("event skipped", "detail_type", string(env.DetailType), "user_id", ev.UserID)
		return nil
	}

	for _, threshold := range out.Notifications {
		if _, err := s.dispatcher.Dispatch(ctx, threshold); err != nil {
			return err
		}
	}
	return nil
}

// replayRecord re-runs a dead-lettered payload without the retry
// executor; the replay loop supplies its own pacing.
func (s *Service) replayRecord(ctx context.Context, payload []byte) error {
	env, err := processing.Normalize(payload)
	if err != nil {
		return err
	}
	return s.handleEvent(ctx, env)
}

// Start starts the service and all its background loops.
func (s *Service) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	if s.consumer != nil {
		if err := s.consumer.Start(); err != nil {
			return fmt.Errorf("failed to start consumer: %w", err)
		}
	}

	if s.cfg.Replay.Enabled {
		s.log.Info("Starting dead-letter replay loop", "interval", s.cfg.Replay.Interval)
		go s.replay.Run(ctx, s.cfg.Replay.Interval)
	}

	go s.pruner.Start(ctx)

	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")
	if s.cancel != nil {
		s.cancel()
	}

	if s.consumer != nil {
		s.consumer.Stop()
	}
	if err := s.publisher.Close(); err != nil {
		s.log.Warn("Failed to close publisher", "error", err)
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}
