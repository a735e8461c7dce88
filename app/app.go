// Package app wires the configuration, logger, core, plugins and event loop
// into a runnable server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/libreidp/libreidp/config"
	"github.com/libreidp/libreidp/core"
	"github.com/libreidp/libreidp/core/eventloop"
	"github.com/libreidp/libreidp/core/middleware"
	"github.com/libreidp/libreidp/logging"
	"github.com/libreidp/libreidp/metrics"
	"github.com/libreidp/libreidp/plugin"
	metricsplugin "github.com/libreidp/libreidp/plugins/metrics"
	"github.com/libreidp/libreidp/plugins/oauth2"
)

// App is one server instance.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	core     *core.Core
	recorder *metrics.Recorder
	resolver *plugin.Resolver
	plugins  []*plugin.Plugin
}

// New builds the core and registers every configured plugin's endpoints.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	recorder := metrics.NewRecorder()
	c := core.New(
		core.WithLogger(logger),
		core.WithParserConfig(cfg.Parser()),
		core.WithObserver(recorder),
	)
	c.AddPort(cfg.Port)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		core:     c,
		recorder: recorder,
		resolver: NewResolver(cfg, recorder),
	}
	if err := a.exportStats(); err != nil {
		a.release()
		return nil, err
	}
	if err := a.loadPlugins(); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

// NewResolver returns the plugin resolver for cfg, with the built-in plugins
// that depend on host state already provided.
func NewResolver(cfg *config.Config, recorder *metrics.Recorder) *plugin.Resolver {
	r := plugin.NewResolver()
	for _, dir := range cfg.PluginDirs {
		if dir != "" {
			r.AddDirectory(dir)
		}
	}
	r.Provide(oauth2.Name, oauth2.New(cfg.Issuer))
	if recorder != nil {
		r.Provide(metricsplugin.Name, metricsplugin.New(recorder))
	}
	return r
}

// exportStats publishes the core's own counters through the recorder.
func (a *App) exportStats() error {
	gauges := []struct {
		name, help string
		fn         func() float64
	}{
		{"routes", "Routes registered with the core.", func() float64 {
			return float64(a.core.Stats().Routes)
		}},
		{"buffers_outstanding", "Pooled buffers currently handed out.", func() float64 {
			return float64(a.core.Stats().Buffers.Outstanding)
		}},
	}
	for _, g := range gauges {
		if err := a.recorder.GaugeFunc(g.name, g.help, g.fn); err != nil {
			return err
		}
	}
	return nil
}

// loadPlugins registers each configured plugin's endpoints. Handlers are
// wrapped with request logging on the way into the core.
func (a *App) loadPlugins() error {
	routes := middleware.Apply(a.core, middleware.NewPipeline(middleware.RequestLog(a.logger)))
	for _, name := range a.cfg.Plugins {
		p, err := a.resolver.Resolve(name)
		if err != nil {
			return err
		}
		iface, err := p.HTTP()
		if err != nil {
			return err
		}
		if err := iface.RegisterEndpoints(routes); err != nil {
			return fmt.Errorf("plugin %s: register endpoints: %w", name, err)
		}
		a.plugins = append(a.plugins, p)
		source := p.Path
		if source == "" {
			source = "builtin"
		}
		a.logger.Info("plugin loaded", "plugin", name, "source", source)
	}
	return nil
}

// Core returns the HTTP core, for registering extra routes before Run.
func (a *App) Core() *core.Core { return a.core }

// Recorder returns the metrics recorder observing the core.
func (a *App) Recorder() *metrics.Recorder { return a.recorder }

// Run registers the core with a new event loop and serves until ctx is
// cancelled or SIGINT/SIGTERM arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	loop, err := eventloop.New(a.logger)
	if err != nil {
		a.release()
		return err
	}
	defer loop.Close()
	// Runs before loop.Close; connections unwatch from a live loop.
	defer a.release()

	if err := a.core.Register(loop); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("libreidp started", "port", a.cfg.Port, "plugins", len(a.plugins))
	err = loop.Run(ctx)
	a.logger.Info("shutting down")
	return err
}

// release shuts the core down and lets plugins free what they lent it.
func (a *App) release() {
	a.core.Shutdown()
	for _, p := range a.plugins {
		if p.Definition.HTTP.Release != nil {
			p.Definition.HTTP.Release()
		}
	}
	a.plugins = nil
}
