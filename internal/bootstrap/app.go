package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mindful-resolve/internal/ai"
	"mindful-resolve/internal/app"
	"mindful-resolve/internal/cache"
	"mindful-resolve/internal/config"
	"mindful-resolve/internal/model"
	loggerpkg "mindful-resolve/internal/platform/logger"
	mysqlClient "mindful-resolve/internal/platform/mysql"
	rabbitmqClient "mindful-resolve/internal/platform/rabbitmq"
	redisClient "mindful-resolve/internal/platform/redis"
	sqliteClient "mindful-resolve/internal/platform/sqlite"
	"mindful-resolve/internal/repository"
	"mindful-resolve/internal/worker"
)

type App struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	SessionService *app.SessionService
	SolutionWorker *worker.SolutionWorker
	Purger         *worker.RetentionPurger
	GeneratorReady bool

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, err := loggerpkg.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	a := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	a.DB = db
	if err := db.AutoMigrate(&model.Session{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	var sessionCache app.SessionCache
	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = redisCli
		sessionCache = cache.NewSessionCache(
			redisCli,
			time.Duration(cfg.Redis.SnapshotTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.DirtyTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.LockTTLSeconds)*time.Second,
		)
	}

	var publisher app.SolutionJobPublisher
	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.SolutionQueue)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		publisher = rabbitmqClient.NewSolutionJobPublisher(mqConn, cfg.RabbitMQ.SolutionQueue)
	}

	var generator ai.TextGenerator
	textGenerator, err := ai.NewGenerator(ctx, ai.ProviderConfig{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLMTimeout(),
		Generation: ai.GenerationConfig{
			Temperature:     float32(cfg.LLM.Temperature),
			TopK:            cfg.LLM.TopK,
			TopP:            float32(cfg.LLM.TopP),
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		},
	})
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		a.Logger.Warn("text generation provider not configured, solutions are unavailable",
			zap.String("provider", cfg.LLM.Provider))
	case err != nil:
		return fmt.Errorf("init text generator failed: %w", err)
	default:
		generator = textGenerator
		a.GeneratorReady = true
	}

	a.SessionService = app.NewSessionService(
		repository.NewSessionRepository(db),
		sessionCache,
		publisher,
		generator,
		app.SessionSettings{
			MaxPerspectiveLength: cfg.Session.MaxPerspectiveLength,
			MaxNameLength:        cfg.Session.MaxNameLength,
			CodeAttempts:         cfg.Session.CodeAttempts,
			Retention:            cfg.Retention(),
			TokenSecret:          cfg.Auth.TokenSecret,
			TokenTTL:             cfg.TokenTTL(),
		},
		a.Logger.Named("session"),
	)

	if a.MQConn != nil {
		a.SolutionWorker = worker.NewSolutionWorker(a.MQConn, a.SessionService, cfg.RabbitMQ.SolutionQueue, a.Logger)
		if err := a.SolutionWorker.Start(ctx); err != nil {
			return fmt.Errorf("start solution worker failed: %w", err)
		}
	}

	if cfg.Retention() > 0 {
		a.Purger = worker.NewRetentionPurger(a.SessionService, cfg.PurgeInterval(), a.Logger)
		a.Purger.Start(ctx)
	}

	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return sqliteClient.New(ctx, cfg.SQLite.Path)
	default:
		return mysqlClient.New(ctx, cfg.MySQLDSN())
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Purger != nil {
		a.Purger.Close()
	}
	if a.SolutionWorker != nil {
		a.SolutionWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
