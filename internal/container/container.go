// Package container wires the application's dependencies: configuration,
// logging, the Redis-backed report cache, the optional PostgreSQL archive,
// the ticketing client and one range controller per range class.
package container

import (
	"context"
	"fmt"

	"railboard/internal/config"
	"railboard/internal/domain"
	"railboard/internal/repository"
	"railboard/internal/service"
	"railboard/internal/service/session"
	"railboard/internal/service/ticketing"
	"railboard/pkg/cache"
	"railboard/pkg/database"
	"railboard/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       *cache.RedisStore
	DB          *database.PostgresDB
	Snapshots   repository.TrafficSnapshotRepository
	Controllers map[domain.RangeClass]*service.Controller
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	store, err := cache.NewRedisStore(cfg.RedisURL, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
	}
	log.Info("Redis store initialized successfully")

	// The archive is optional; without a database the engine still serves
	// live reports, it just keeps no daily history.
	var db *database.PostgresDB
	var snapshots repository.TrafficSnapshotRepository
	if cfg.DatabaseURL != "" {
		db, err = database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		snapshots = repository.NewTrafficSnapshotRepository(db)
		log.Info("Database initialized successfully")
	} else {
		log.Info("DATABASE_URL not configured, daily history archive disabled")
	}

	ticketingClient := ticketing.NewClient(cfg, log)
	keys := cache.NewKeyBuilder(cfg.Environment)

	// Each controller owns its session so a token invalidation in one
	// range class never stalls the others mid-tick.
	controllers := make(map[domain.RangeClass]*service.Controller, len(domain.AllRangeClasses))
	for _, class := range domain.AllRangeClasses {
		controllerCfg := service.ControllerConfig{
			Class:    class,
			Session:  session.NewManager(ticketingClient, log),
			Fetcher:  ticketingClient,
			Store:    store,
			Keys:     keys,
			Logger:   log,
			Interval: cfg.RefreshInterval,
		}
		if class == domain.RangeToday {
			controllerCfg.Archive = snapshots
		}
		controllers[class] = service.NewController(controllerCfg)
	}

	return &Container{
		Config:      cfg,
		Logger:      log,
		Store:       store,
		DB:          db,
		Snapshots:   snapshots,
		Controllers: controllers,
	}, nil
}

// StartControllers starts the refresh loop of every range controller.
func (c *Container) StartControllers(ctx context.Context) {
	for _, controller := range c.Controllers {
		controller.Start(ctx)
	}
	c.Logger.WithField("count", len(c.Controllers)).Info("Range controllers started")
}

// StopControllers stops every range controller and waits for their loops
// to exit.
func (c *Container) StopControllers() {
	for _, controller := range c.Controllers {
		controller.Stop()
	}
	c.Logger.Info("Range controllers stopped")
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}
