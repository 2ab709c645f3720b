package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/specialistvlad/tsflow/internal/progress"
	"github.com/specialistvlad/tsflow/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	config   *Config
	registry *registry.Registry

	httpServer *http.Server
	publisher  *progress.SocketIO
	listeners  []progress.Listener

	// current is the processor of the script being run, if any.
	current  atomic.Pointer[processor.Processor]
	canceled atomic.Bool
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// With no modules the core command set is registered.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = CoreModules()
	}
	reg := registry.New(modules...)
	logger.Debug("All command modules registered.", "modules", len(modules), "commands", len(reg.Names()))

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		registry: reg,
	}
}

// Registry returns the application's registry.
func (app *App) Registry() *registry.Registry {
	return app.registry
}

// AddListener subscribes l to the progress of every script run by app.
func (app *App) AddListener(l progress.Listener) {
	app.listeners = append(app.listeners, l)
}

// Status reports the progress of the script currently running. It is safe
// to call from any goroutine.
func (app *App) Status() processor.Status {
	if p := app.current.Load(); p != nil {
		return p.Status()
	}
	return processor.Status{}
}

// Cancel stops the running script after its current command. Scripts not
// yet started are skipped, and a request made before Run stops it before the
// first script.
func (app *App) Cancel() {
	app.canceled.Store(true)
	if p := app.current.Load(); p != nil {
		p.Cancel()
	}
}
