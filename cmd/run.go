package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"lottoengine/application"
	"lottoengine/config"
	"lottoengine/database"
	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/domain/services"
	"lottoengine/infrastructure"
	"lottoengine/infrastructure/observability"
	"lottoengine/repository"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Runtime holds the connected infrastructure and the application handlers built on it
type Runtime struct {
	Config       *config.Config
	DB           *database.DB
	UoWFactory   *infrastructure.UnitOfWorkFactory
	Dependencies application.Dependencies

	Draws   *application.DrawCommands
	Tickets *application.TicketCommands
	Claims  *application.ClaimTicketHandler

	redisClient *goredis.Client
	natsClient  *infrastructure.NATSClient
}

// ConfigureLogging applies the configured level and format to the global logger
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Bootstrap connects to every backing service and builds the application handlers
func Bootstrap(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(),
		database.WithMaxConns(cfg.DatabaseMaxConns),
		database.WithLockTimeout(cfg.ClaimLockTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt.DB = db
	log.Info("Database connection established successfully")

	// Initialize seed store
	redisClient, err := infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	rt.redisClient = redisClient

	// Initialize event publisher
	eventPublisher, err := rt.connectEventPublisher(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.UoWFactory = infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	registry := entities.DefaultPlayRuleRegistry()
	rt.Dependencies = application.Dependencies{
		SeedStore:    infrastructure.NewRedisSeedStore(redisClient),
		Entitlements: infrastructure.NewCachedEntitlementService(repository.NewEntitlementRepository(db), cfg.EntitlementCacheTTL),
		RNG:          services.NewLotteryRNGService(),
		Registry:     registry,
		SeedTTLGrace: cfg.SeedTTLGrace,
	}

	rt.Draws = application.NewDrawCommands(rt.UoWFactory, rt.Dependencies)
	rt.Tickets = application.NewTicketCommands(rt.UoWFactory, rt.Dependencies)
	rt.Claims = application.NewClaimTicketHandler(rt.UoWFactory, rt.Dependencies, cfg.ClaimLockTimeout)

	return rt, nil
}

func (rt *Runtime) connectEventPublisher(ctx context.Context) (interfaces.EventPublisher, error) {
	if !rt.Config.NATSEnabled {
		log.Info("NATS disabled, domain events will be dropped")
		return infrastructure.NewNoopEventPublisher(), nil
	}

	servers := rt.Config.GetNATSServers()
	log.WithField("servers", servers).Info("Connecting to NATS...")

	natsClient := infrastructure.NewNATSClient(servers)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	rt.natsClient = natsClient

	mapper := infrastructure.NewEventSubjectMapper()
	if err := natsClient.EnsureLotteryEventStream(mapper.GetAllSubjects()); err != nil {
		return nil, fmt.Errorf("failed to ensure lottery event stream: %w", err)
	}

	return infrastructure.NewNATSEventPublisher(natsClient, mapper), nil
}

// Close releases every connection held by the runtime
func (rt *Runtime) Close() {
	if rt.natsClient != nil {
		if err := rt.natsClient.Close(); err != nil {
			log.Errorf("Error closing NATS connection: %v", err)
		}
	}
	if rt.redisClient != nil {
		if err := rt.redisClient.Close(); err != nil {
			log.Errorf("Error closing redis connection: %v", err)
		}
	}
	if rt.DB != nil {
		log.Info("Closing database connection...")
		rt.DB.Close()
	}
}

// Run initializes the engine and runs the draw worker until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config) error {
	log.Info("Starting lottoengine...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	rt, err := Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	worker := application.NewDrawWorker(rt.UoWFactory, rt.Dependencies, cfg.WorkerPollInterval)
	stopWorker := worker.Start(ctx)

	// Wait for context cancellation
	log.Infof("Lottoengine is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down lottoengine...")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Errorf("Error shutting down metrics: %v", err)
	}

	log.Info("Shutdown completed")
	return nil
}
