package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fystack/stacks-connector/internal/action"
	"github.com/fystack/stacks-connector/internal/rpc"
	"github.com/fystack/stacks-connector/internal/rpc/bitcoin"
	"github.com/fystack/stacks-connector/internal/rpc/hiro"
	"github.com/fystack/stacks-connector/pkg/common/config"
	"github.com/fystack/stacks-connector/pkg/common/enum"
	"github.com/fystack/stacks-connector/pkg/common/logger"
	"github.com/fystack/stacks-connector/pkg/events"
	"github.com/fystack/stacks-connector/pkg/infra"
	"github.com/fystack/stacks-connector/pkg/ratelimiter"
	"github.com/fystack/stacks-connector/pkg/stacks"
	"github.com/nats-io/nats.go"
)

// app holds the clients built from configuration.
type app struct {
	cfg     *config.Config
	limiter *ratelimiter.PooledRateLimiter
	hiro    *hiro.Client
	bitcoin *bitcoin.Client
}

func loadConfig(g *Globals) (*config.Config, error) {
	var cfg *config.Config
	if g.Config == "" {
		cfg = config.Default()
	} else {
		c, err := config.Load(g.Config)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if g.Network != "" {
		n, err := stacks.ParseNetwork(g.Network)
		if err != nil {
			return nil, err
		}
		cfg.Network = string(n)
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if g.Debug {
		level = slog.LevelDebug
	}
	timeFormat := cfg.Log.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	logger.Init(&logger.Options{Level: level, TimeFormat: timeFormat})
	return cfg, nil
}

func clientConfig(cfg *config.Config) rpc.ClientConfig {
	return rpc.ClientConfig{
		RequestTimeout: cfg.Client.Timeout,
		MaxRetries:     cfg.Client.MaxRetries,
		RetryDelay:     cfg.Client.RetryDelay,
	}
}

func newApp(g *Globals) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		limiter: ratelimiter.NewPooledRateLimiter(cfg.Throttle.RPS, cfg.Throttle.Burst),
	}
	a.hiro = hiro.NewClient(cfg.HiroURL(), cfg.Hiro.APIKey, clientConfig(cfg), a.limiter)

	if cfg.Bitcoin.Enabled {
		btcURL, err := cfg.BitcoinURL()
		if err != nil {
			return nil, err
		}
		a.bitcoin = bitcoin.NewEsploraClient(btcURL, cfg.Bitcoin.API.APIKey, clientConfig(cfg), a.limiter)
	}
	logger.Debug("Clients ready", "network", cfg.Network, "hiro", cfg.HiroURL(), "bitcoin", cfg.Bitcoin.Enabled)
	return a, nil
}

func (a *app) executor(continueOnFail bool) *action.Executor {
	opts := []action.Option{
		action.WithNetwork(a.cfg.StacksNetwork()),
		action.WithContinueOnFail(continueOnFail),
	}
	if a.bitcoin != nil {
		opts = append(opts, action.WithBitcoin(a.bitcoin))
	}
	return action.NewExecutor(a.hiro, opts...)
}

// emitter builds the configured trigger emitter. The returned func closes
// the NATS connection when there is one.
func (a *app) emitter(ctx context.Context) (events.Emitter, func(), error) {
	if a.cfg.Trigger.Emitter != enum.EmitterTypeNATS {
		return events.NewLogEmitter(), func() {}, nil
	}

	nc, err := infra.GetNATSConnection(a.cfg.Nats, a.cfg.IsProduction())
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	queue, err := newQueue(ctx, a.cfg.Nats, nc, "")
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	e := events.NewEmitter(queue, a.cfg.Nats.SubjectPrefix)
	return e, func() {
		e.Close()
		nc.Close()
	}, nil
}

func newQueue(ctx context.Context, cfg config.NatsConfig, nc *nats.Conn, consumer string) (infra.MessageQueue, error) {
	wildcard := events.SubjectWildcard(cfg.SubjectPrefix)
	mgr, err := infra.NewNATsMessageQueueManager(ctx, cfg.Stream, []string{wildcard}, nc)
	if err != nil {
		return nil, err
	}
	return mgr.NewMessageQueue(ctx, consumer, wildcard)
}

func (a *app) Close() {
	if a.hiro != nil {
		_ = a.hiro.Close()
	}
	if a.bitcoin != nil {
		_ = a.bitcoin.Close()
	}
	a.limiter.Close()
}
