// Package app assembles the engine from configuration: storage, the feature
// gate, the policy, event publishing, advisory notes and the services built
// on them. The HTTP server and the delayctl CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-delay-guarantee/internal/advisory"
	"github.com/tbourn/go-delay-guarantee/internal/config"
	"github.com/tbourn/go-delay-guarantee/internal/events"
	"github.com/tbourn/go-delay-guarantee/internal/flags"
	"github.com/tbourn/go-delay-guarantee/internal/policy"
	"github.com/tbourn/go-delay-guarantee/internal/repo"
	"github.com/tbourn/go-delay-guarantee/internal/risk"
	"github.com/tbourn/go-delay-guarantee/internal/services"
)

// Engine holds the wired services and the resources they own.
type Engine struct {
	DB        *gorm.DB
	Gate      *flags.Gate
	Policy    policy.Policy
	Estimator *risk.Estimator
	Issuer    *services.Issuer
	Workflow  *services.Workflow
	Delay     *services.DelayService

	closers []func() error
}

// Build opens storage and wires every service from cfg. Optional
// integrations (Kafka, Gemini) fall back to no-ops when unconfigured. Callers
// must Close the engine.
func Build(ctx context.Context, cfg config.Config, lg zerolog.Logger) (_ *Engine, err error) {
	e := &Engine{}
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	if e.DB, err = OpenDB(cfg.DB); err != nil {
		return nil, err
	}
	if sqlDB, dbErr := e.DB.DB(); dbErr == nil {
		e.closers = append(e.closers, sqlDB.Close)
	}

	store, closeStore, err := NewFlagStore(ctx, cfg.Flags, e.DB)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeStore)
	e.Gate = flags.NewGate(store, cfg.Flags.CacheTTL,
		flags.WithStoreTimeout(cfg.Flags.StoreTimeout),
		flags.WithLogger(lg.With().Str("component", "flags").Logger()),
	)

	if e.Policy, err = policy.Load(cfg.PolicyPath); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	e.Estimator = risk.New(e.Policy.Risk)

	pub, err := newPublisher(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, pub.Close)

	adv, closeAdv, err := newAdvisor(ctx, cfg.Advisory, lg)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeAdv)

	if e.Issuer, err = services.NewIssuer(e.DB, e.Gate, cfg.Flags.DelayFlag, e.Policy.Compensation); err != nil {
		return nil, err
	}
	e.Issuer.Events = pub
	e.Issuer.Advisor = adv
	e.Issuer.StoreTimeout = cfg.Flags.StoreTimeout
	e.Issuer.Log = lg

	e.Workflow = services.NewWorkflow(e.DB)
	e.Workflow.Events = pub
	e.Workflow.StoreTimeout = cfg.Flags.StoreTimeout
	e.Workflow.Log = lg

	e.Delay = services.NewDelayService(e.DB, e.Estimator, e.Issuer)
	e.Delay.StoreTimeout = cfg.Flags.StoreTimeout
	e.Delay.Log = lg

	return e, nil
}

// Close waits for pending advisory notes, then releases resources in reverse
// acquisition order.
func (e *Engine) Close() error {
	if e.Issuer != nil {
		e.Issuer.Wait()
	}
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// OpenDB opens the configured database and brings its schema up to date:
// AutoMigrate for SQLite, versioned SQL migrations for PostgreSQL.
func OpenDB(cfg config.DBConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := repo.OpenPostgres(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := repo.RunMigrations(db); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return db, nil
	case "sqlite", "":
		db, err := repo.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

// NewFlagStore returns the flag store selected by cfg.Store and a func that
// releases it.
func NewFlagStore(ctx context.Context, cfg config.FlagsConfig, db *gorm.DB) (flags.Store, func() error, error) {
	switch cfg.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		// An unreachable Redis is not fatal: the gate fails closed per read.
		if err := client.Ping(pctx).Err(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis flag store unreachable at startup")
		}
		return flags.NewRedisStore(client), client.Close, nil
	case "sql", "":
		return &flags.SQLStore{DB: db}, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported flag store %q", cfg.Store)
	}
}

func newPublisher(cfg config.KafkaConfig) (events.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return events.NopPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return p, nil
}

// newAdvisor returns the Gemini advisor when an API key is configured. A
// client that fails to start degrades to no notes.
func newAdvisor(ctx context.Context, cfg config.AdvisoryConfig, lg zerolog.Logger) (advisory.Advisor, func() error, error) {
	nop := func() error { return nil }
	if cfg.GeminiAPIKey == "" {
		return advisory.NopAdvisor{}, nop, nil
	}
	g, err := advisory.NewGeminiAdvisor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout)
	if err != nil {
		lg.Warn().Err(err).Msg("advisory notes disabled")
		return advisory.NopAdvisor{}, nop, nil
	}
	return g, g.Close, nil
}

// PurgeIdempotencyLoop deletes expired idempotency keys every interval until
// ctx is done.
func PurgeIdempotencyLoop(ctx context.Context, db *gorm.DB, every time.Duration, now func() time.Time, lg zerolog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now())
			if err != nil {
				if ctx.Err() == nil {
					lg.Warn().Err(err).Msg("purge idempotency keys")
				}
				continue
			}
			if n > 0 {
				lg.Debug().Int64("deleted", n).Msg("purged expired idempotency keys")
			}
		}
	}
}
