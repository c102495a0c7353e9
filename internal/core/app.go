// Package core wires the bot together: config, logging, storage, the
// platform session, the analysis client, the processor and the poller.
// Everything is passed explicitly; there are no process-wide singletons.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"skylens/internal/analysis"
	"skylens/internal/bluesky"
	"skylens/internal/config"
	"skylens/internal/ledger"
	"skylens/internal/poller"
	"skylens/internal/processor"
	"skylens/internal/runtime/supervisor"
	"skylens/internal/storage"
	logx "skylens/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store   storage.Store
	session *bluesky.Session
	proc    *processor.Processor
	poll    *poller.Poller

	sup *supervisor.Supervisor
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(c *config.Config) error { return c.Validate() })

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	session := bluesky.Dial(bluesky.Config{
		Host:           cfg.Bluesky.Host,
		Identifier:     cfg.Bluesky.Identifier,
		Password:       cfg.Bluesky.Password,
		PostsPerMinute: cfg.Bluesky.PostsPerMinute,
	}, log.With(logx.String("comp", "bluesky")))

	analysisTO, err := config.ParseDurationOrDefault("analysis.timeout", cfg.Analysis.Timeout, 20*time.Second)
	if err != nil {
		return nil, err
	}
	analysisClient := analysis.New(analysis.Config{
		Endpoint: cfg.Analysis.Endpoint,
		Timeout:  analysisTO,
		RetryMax: cfg.Analysis.RetryMax,
	}, log.With(logx.String("comp", "analysis")))

	cooldownWindow, err := config.ParseDurationOrDefault("bot.cooldown_window", cfg.Bot.CooldownWindow, 6*time.Hour)
	if err != nil {
		return nil, err
	}
	proc := processor.New(
		session,
		analysisClient,
		ledger.NewHandled(store, log.With(logx.String("comp", "ledger"))),
		ledger.NewCooldowns(store, cooldownWindow, log.With(logx.String("comp", "ledger"))),
		int64(cfg.Bot.BatchLimit),
		log.With(logx.String("comp", "processor")),
	)

	pollInterval, err := config.ParseDurationOrDefault("bot.poll_interval", cfg.Bot.PollInterval, time.Minute)
	if err != nil {
		return nil, err
	}
	poll := poller.New(pollInterval, proc.RunCycle, log.With(logx.String("comp", "poller")))

	return &App{
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		store:   store,
		session: session,
		proc:    proc,
		poll:    poll,
	}, nil
}

// Start logs into the platform and begins polling. The poller only starts
// once the session is established.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()
	a.log.Info("starting",
		logx.String("identifier", cfg.Bluesky.Identifier),
		logx.String("bot", cfg.Bot.Name))

	if err := a.session.Login(ctx); err != nil {
		return fmt.Errorf("bluesky login: %w", err)
	}

	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	// Hot-reload: only logging is safe to change at runtime. A broken
	// watcher degrades to static config, it never takes the bot down.
	a.sup.Go("config-watch", func(ctx context.Context) error {
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn("config watch unavailable", logx.Err(err))
		}
		return nil
	})
	a.sup.Go("config-apply", func(ctx context.Context) error {
		sub := a.cfgm.Subscribe(1)
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return nil
			case c := <-sub:
				if c == nil {
					continue
				}
				a.logs.Apply(logx.Config{
					Level:   c.Logging.Level,
					Console: c.Logging.Console,
					File: logx.FileConfig{
						Enabled: c.Logging.File.Enabled,
						Path:    c.Logging.File.Path,
					},
				})
			}
		}
	})

	a.poll.Start(a.sup.Context())

	// Best-effort: tell systemd we are up. No-op outside a unit.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	return nil
}

// Done is closed when the supervisor context ends (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.poll.Stop(ctx)
	if a.sup != nil {
		_ = a.sup.Stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
