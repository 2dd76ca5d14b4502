package commands

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/crimson-games/bakuretsu/internal/cli/config"
	"github.com/crimson-games/bakuretsu/internal/logging"
	"github.com/crimson-games/bakuretsu/internal/models"
	"github.com/crimson-games/bakuretsu/internal/orm/model"
)

// session is an opened database with the game entities registered
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	sqlDB  *sql.DB
	db     *model.DB
}

func loadConfig(opts *globalOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openSession(opts *globalOptions) (*session, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	d, err := cfg.Database.Dialect()
	if err != nil {
		return nil, err
	}
	sqlDB, err := cfg.Database.Open()
	if err != nil {
		return nil, err
	}

	db := model.Open(sqlDB,
		model.WithLogger(logger),
		model.WithDialect(d),
		model.WithCache(cfg.Cache.Enabled),
		model.WithWorkers(cfg.Async.Workers, cfg.Async.QueueSize),
	)
	if err := db.Register(models.Factories()...); err != nil {
		db.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("failed to register entities: %w", err)
	}

	logger.Debug("session opened",
		zap.String("driver", cfg.Database.DriverName()),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Int("workers", cfg.Async.Workers))
	return &session{cfg: cfg, logger: logger, sqlDB: sqlDB, db: db}, nil
}

func (s *session) Close() {
	s.db.Close()
	s.sqlDB.Close()
	s.logger.Sync()
}
