package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/component"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/observability"
)

// App owns the process lifecycle for a typed config C.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	signals         []os.Signal
	onReady         []Hook
	onStop          []Hook
}

// NewApp applies defaults, validates cfg and sets up logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	log := o.logger
	if log == nil {
		log = logger.New(&base.Logging, base.Name)
		logger.SetGlobalLogger(log)
	}

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(log),
		Logger:          log,
		gracefulTimeout: 15 * time.Second,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if len(o.signals) > 0 {
		app.signals = o.signals
	}
	return app, nil
}

// RegisterComponent adds a component; components start in registration
// order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck reports components that are down. Degraded components do not
// fail the check.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var down []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != observability.HealthStatusDown {
			continue
		}
		detail := h.Name
		if h.Message != "" {
			detail += " (" + h.Message + ")"
		}
		down = append(down, detail)
	}
	if len(down) > 0 {
		return errors.ServiceUnavailable(strings.Join(down, ", "))
	}
	return nil
}

// Run starts all components, runs OnReady hooks, blocks until a shutdown
// signal or ctx ends, then shuts down gracefully.
func (a *App[C]) Run(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return errors.Join(fmt.Errorf("onReady: %w", err), a.stop())
	}
	a.Logger.Info("ready", logger.Fields(logger.FieldDuration, time.Since(start).Milliseconds()))

	a.WaitForSignal(ctx)
	return a.stop()
}

// WaitForSignal blocks until a shutdown signal arrives or ctx ends.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("shutdown signal received", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
		return nil
	}
}

// stop runs OnStop hooks and stops components within the graceful timeout.
// It runs on a fresh context so an already-canceled run context does not
// cut shutdown short.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook failed", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	if err := a.Components.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}
	a.Logger.Info("shutdown complete")
	return errors.Join(errs...)
}
