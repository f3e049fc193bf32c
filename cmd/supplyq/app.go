package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/supplymap/supplyq"
	"github.com/supplymap/supplyq/internal/agents"
	"github.com/supplymap/supplyq/internal/assets"
	"github.com/supplymap/supplyq/internal/config"
	"github.com/supplymap/supplyq/internal/events"
	"github.com/supplymap/supplyq/internal/llm"
	"github.com/supplymap/supplyq/internal/logger"
	"github.com/supplymap/supplyq/internal/redisstore"
	"github.com/supplymap/supplyq/internal/sqlstore"
)

// app holds the wired dependencies of one CLI invocation.
type app struct {
	cfg    *config.Config
	raw    *logrus.Logger
	log    supplyq.Logger
	store  supplyq.Store
	assets *assets.Repo
	client *supplyq.Client
	closes []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	raw, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, raw: raw, log: supplyq.NewLogger(raw)}
	a.closes = append(a.closes, logCloser.Close)

	sq, err := sqlstore.Open(cfg.Database.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closes = append(a.closes, sq.Close)
	a.assets = assets.NewRepo(sq.DB())
	if err := a.assets.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.store = sq

	if cfg.Database.Driver == config.DriverRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("%w: redis %s: %w", supplyq.ErrStoreUnavailable, cfg.Redis.Addr, err)
		}
		rs := redisstore.New(rdb, cfg.Redis.Namespace)
		a.closes = append(a.closes, rs.Close)
		a.store = rs
		a.log.Debugf("task store: redis addr=%s namespace=%s", cfg.Redis.Addr, rs.Namespace())
	}

	a.client = supplyq.NewClient(a.store, supplyq.WithClientLogger(a.log))
	return a, nil
}

// executor builds an executor with the built-in agents. It needs an LLM key.
func (a *app) executor() (*supplyq.Executor, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	c, err := llm.New(llm.Config{
		APIKey:    a.cfg.LLM.APIKey,
		BaseURL:   a.cfg.LLM.BaseURL,
		Model:     a.cfg.LLM.Model,
		MaxTokens: a.cfg.LLM.MaxTokens,
		Timeout:   a.cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	mux := supplyq.NewMux()
	mux.Use(supplyq.Logging(a.log))
	err = agents.Register(mux, agents.Deps{
		LLM:             c,
		Terminals:       a.assets,
		TariffThreshold: a.cfg.Review.TariffRateThreshold,
		Logger:          a.log,
	})
	if err != nil {
		return nil, err
	}

	notifier := supplyq.Notifier(supplyq.NewLogNotifier(a.log))
	if url := a.cfg.Events.NatsURL; url != "" {
		n, err := events.Connect(url, a.log)
		if err != nil {
			return nil, err
		}
		a.closes = append(a.closes, n.Close)
		notifier = supplyq.Notifiers(notifier, n)
	}

	return supplyq.NewExecutor(a.store, mux,
		supplyq.WithNotifier(notifier),
		supplyq.WithExecutorLogger(a.log),
	), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closes) - 1; i >= 0; i-- {
		errs = append(errs, a.closes[i]())
	}
	a.closes = nil
	return errors.Join(errs...)
}
