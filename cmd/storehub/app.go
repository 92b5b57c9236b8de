package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/coursework/storehub/config"
	"github.com/coursework/storehub/internal/application/service"
	"github.com/coursework/storehub/internal/codec"
	"github.com/coursework/storehub/internal/domain/shared"
	"github.com/coursework/storehub/internal/infrastructure/messaging"
	"github.com/coursework/storehub/internal/infrastructure/persistence/file"
	"github.com/coursework/storehub/internal/infrastructure/persistence/postgres"
	"github.com/coursework/storehub/internal/infrastructure/persistence/redis"
	"github.com/coursework/storehub/pkg/circuitbreaker"
	"github.com/coursework/storehub/pkg/logger"
)

// errNoDatabase возвращается командами, которым нужна база данных.
var errNoDatabase = errors.New("database is not configured (set DATABASE_URL or DB_HOST)")

// app держит собранные зависимости одной команды.
type app struct {
	cfg *config.Config
	log *slog.Logger

	db      *postgres.Connection
	cache   *redis.Cache
	breaker *circuitbreaker.CircuitBreaker
	bus     *messaging.Bus

	inventory *service.InventoryService
	gradebook *service.GradebookService // nil без базы данных

	in  io.Reader
	out io.Writer
}

// newApp подключает хранилища и создаёт сервисы.
// Недоступная база - ошибка, недоступный Redis - только предупреждение.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, svcLog *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.Enabled() {
		log.Debug("connecting to database...")
		conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = conn
		log.Debug("database connection established")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Redis (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Redis.Enabled() {
		log.Debug("connecting to Redis...")
		cache, err := redis.NewCache(ctx, redisConfig(cfg.Redis))
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			a.breaker = circuitbreaker.CacheBreaker(redis.IsFailure,
				func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
				})
			a.cache = cache.WithBreaker(a.breaker)
			log.Debug("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus
	// ─────────────────────────────────────────────────────────────────────────
	a.bus = messaging.NewBus(messaging.Config{Async: cfg.Events.Async, Logger: log})
	if err := a.subscribe(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to subscribe event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Сервисы
	// ─────────────────────────────────────────────────────────────────────────
	invDeps := service.InventoryDeps{
		Files:    file.NewStore(cfg.Storage.FileMode),
		Events:   a.bus,
		Features: cfg.Features,
		Logger:   svcLog,
	}
	gbDeps := service.GradebookDeps{
		Events:   a.bus,
		Features: cfg.Features,
		Logger:   svcLog,
	}
	if a.db != nil {
		invDeps.Items = postgres.NewItemRepository(a.db)
		invDeps.Snapshots = postgres.NewSnapshotRepository(a.db)
		gbDeps.Students = postgres.NewStudentRepository(a.db)
	}
	if a.cache != nil {
		invDeps.ItemCache = redis.NewItemCache(a.cache, redis.TTLItem)
		invDeps.Digests = redis.NewSnapshotCache(a.cache)
		gbDeps.Averages = redis.NewAverageCache(a.cache, redis.TTLAverage)
	}

	inv, err := service.NewInventoryService(invDeps, service.InventoryConfig{
		Alphabet:          cfg.Codec.Alphabet,
		LowStockThreshold: cfg.Storage.LowStockThreshold,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.inventory = inv

	if gbDeps.Students != nil {
		gb, err := service.NewGradebookService(gbDeps)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.gradebook = gb
	}

	return a, nil
}

// subscribe регистрирует обработчики событий CLI.
func (a *app) subscribe() error {
	if err := a.bus.Subscribe(shared.EventStockLow, func(e shared.Event) error {
		ev, ok := e.(shared.StockLowEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		a.log.Warn("stock is low",
			"item_id", ev.ItemID,
			"stock_left", ev.StockLeft,
			"threshold", ev.Threshold,
		)
		return nil
	}); err != nil {
		return err
	}

	return a.bus.SubscribeAll(func(e shared.Event) error {
		a.log.Debug("event",
			"type", e.EventType(),
			"aggregate_id", e.AggregateID(),
			"payload", e.Payload(),
		)
		return nil
	})
}

// codec возвращает кодек по текущей конфигурации.
func (a *app) codec() (*codec.Codec, error) {
	return codec.New(codec.Options{
		Alphabet:     a.cfg.Codec.Alphabet,
		DynamicShift: a.cfg.Features.IsEnabled(config.FeatureCodecDynamicShift),
	})
}

func (a *app) requireGradebook() (*service.GradebookService, error) {
	if a.gradebook == nil {
		return nil, errNoDatabase
	}
	return a.gradebook, nil
}

// Close освобождает ресурсы в обратном порядке.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn("failed to close event bus", "error", err)
		}
	}
	if a.breaker != nil {
		if n := a.breaker.Rejected(); n > 0 {
			a.log.Warn("cache calls skipped while Redis was unavailable", "count", n)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func postgresConfig(c config.DatabaseConfig) postgres.Config {
	return postgres.Config{
		URL:             c.URL,
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.Name,
		User:            c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxConns:        int32(c.MaxConns),
		MinConns:        int32(c.MinConns),
		MaxConnLifetime: c.ConnMaxLifetime,
		MaxConnIdleTime: c.ConnMaxIdleTime,
		ConnectTimeout:  c.ConnectTimeout,
	}
}

func redisConfig(c config.RedisConfig) redis.Config {
	return redis.Config{
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		KeyPrefix:    c.KeyPrefix,
	}
}
