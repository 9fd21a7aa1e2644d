// Package daemon wires the gwd process together with fx.
package daemon

import (
	"context"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/matheus3301/groupweaver/internal/activity"
	"github.com/matheus3301/groupweaver/internal/ai"
	"github.com/matheus3301/groupweaver/internal/api"
	"github.com/matheus3301/groupweaver/internal/config"
	"github.com/matheus3301/groupweaver/internal/hub"
	"github.com/matheus3301/groupweaver/internal/lock"
	"github.com/matheus3301/groupweaver/internal/logging"
	"github.com/matheus3301/groupweaver/internal/profile"
	"github.com/matheus3301/groupweaver/internal/service"
	"github.com/matheus3301/groupweaver/internal/status"
	"github.com/matheus3301/groupweaver/internal/store"
	intsync "github.com/matheus3301/groupweaver/internal/sync"
	"github.com/matheus3301/groupweaver/internal/watch"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	BaseDir string // optional override for testing; empty = profile.BaseDir()
	Config  *config.Config
	// SocketPath optionally overrides the control socket path.
	SocketPath string
	// Console receives the banner and console logs. Nil means stderr.
	Console io.Writer
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			providePaths,
			provideLogger,
			provideStateMachine,
			provideLock,
			provideStore,
			provideSyncEngine,
			provideActivityLog,
			provideHub,
			provideService,
			provideAnalyst,
			provideHandler,
			provideHTTPServer,
			provideControlServer,
			provideWatcher,
		),
		fx.Invoke(registerLifecycle),
	)
}

func providePaths(p Params) profile.Paths {
	return profile.New(p.BaseDir, p.Profile)
}

func provideLogger(p Params, paths profile.Paths) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:       paths.LogPath(),
		Profile:    p.Profile,
		Level:      p.Config.Log.Level,
		MaxSizeMB:  p.Config.Log.MaxSizeMB,
		MaxBackups: p.Config.Log.MaxBackups,
		Console:    p.Console,
	})
}

func provideStateMachine() *status.Machine {
	return status.NewMachine()
}

func provideLock(paths profile.Paths, logger *zap.Logger) (*lock.Lock, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", paths.Name))
	l, err := lock.Acquire(paths.LockPath())
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore takes the lock so the file is only opened by its owner.
func provideStore(paths profile.Paths, _ *lock.Lock, logger *zap.Logger) (*store.FileStore, error) {
	s, err := store.Open(paths.StoragePath())
	if err != nil {
		return nil, err
	}
	logger.Info("store initialized", zap.String("path", s.Path()))
	return s, nil
}

func provideSyncEngine(s *store.FileStore, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(s, logger)
}

func provideActivityLog(s *store.FileStore) *activity.Log {
	return activity.NewLog(s)
}

func provideHub(s *store.FileStore, logger *zap.Logger) *hub.Hub {
	return hub.New(s, logger)
}

func provideService(s *store.FileStore, e *intsync.Engine, l *activity.Log, h *hub.Hub, m *status.Machine, logger *zap.Logger) *service.Service {
	return service.New(s, e, l, h, m, logger)
}

func provideAnalyst(p Params, logger *zap.Logger) *ai.Analyst {
	cfg := p.Config.AI
	var completer ai.Completer
	if ai.KeyConfigured(cfg.APIKey) {
		completer = ai.NewAnthropicCompleter(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	} else {
		logger.Warn("AI not configured, analysis features disabled")
	}
	return ai.NewAnalyst(completer, cfg.Model, cfg.Timeout.Duration, logger)
}

func provideHandler(p Params, svc *service.Service, analyst *ai.Analyst, h *hub.Hub, m *status.Machine, logger *zap.Logger) *api.Handler {
	return api.New(logger, svc, analyst, h, m, validator.New(), p.Config.Hub.WriteTimeout.Duration)
}

func provideHTTPServer(p Params, h *api.Handler, logger *zap.Logger) (*HTTPServer, error) {
	return NewHTTPServer(p.Config.ListenAddr, h, logger)
}

func provideControlServer(p Params, paths profile.Paths, m *status.Machine, logger *zap.Logger) (*ControlServer, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = paths.SocketPath()
	}
	return NewControlServer(socketPath, m, logger)
}

func provideWatcher(s *store.FileStore, h *hub.Hub, logger *zap.Logger) (*watch.Watcher, error) {
	return watch.New(s, h, logger, watch.DefaultDebounce)
}

func registerLifecycle(lc fx.Lifecycle, p Params, srv *HTTPServer, ctl *ControlServer, w *watch.Watcher, h *hub.Hub, analyst *ai.Analyst, lk *lock.Lock, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("HTTP server error", zap.Error(err))
				}
			}()
			go func() {
				if err := ctl.Start(); err != nil {
					logger.Error("control socket error", zap.Error(err))
				}
			}()

			if err := w.Start(); err != nil {
				logger.Warn("storage watcher disabled", zap.Error(err))
			}

			_ = machine.Transition(status.Ready)

			if p.Config.Banner {
				port := strconv.Itoa(srv.Addr().(*net.TCPAddr).Port)
				out := p.Console
				if out == nil {
					out = os.Stderr
				}
				writeBanner(out, port, lanIP(), analyst.Configured())
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopping)
			if err := w.Stop(); err != nil {
				logger.Warn("error stopping watcher", zap.Error(err))
			}
			h.Close()
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("error stopping HTTP server", zap.Error(err))
			}
			ctl.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
