// Package app builds the service components from a Config. The constructors
// are plain functions so CLI commands can call them directly; Module wires
// the same constructors into an fx graph for the long-running server.
package app

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/audit"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/auth"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/logger"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/tracker"
)

// Module provides every service component and manages their lifetimes.
var Module = fx.Module("app",
	fx.Provide(
		NewLogger,
		NewRegistry,
		NewAuditLog,
		NewGate,
		NewTracker,
	),
	fx.Invoke(
		storesLifecycle,
	),
)

// FxLogger routes fx's own events through zap.
func FxLogger(l *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: l}
}

// NewLogger builds the process logger at the configured level.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Level())
}

// NewRegistry maps the configured store files. Files are opened lazily.
func NewRegistry(cfg config.Config) (*store.Registry, error) {
	return store.NewRegistry(cfg.StorePaths())
}

// NewAuditLog opens the audit file. Sink failures are reported through l.
func NewAuditLog(cfg config.Config, l *zap.Logger) (*audit.Log, error) {
	errLog, err := zap.NewStdLogAt(l.Named("audit"), zapcore.ErrorLevel)
	if err != nil {
		return nil, err
	}
	return audit.Open(cfg.AuditLogPath(), audit.WithErrorOutput(zapcore.AddSync(errLog.Writer())))
}

// NewGate builds the access gate from the configured secret.
func NewGate(cfg config.Config, a *audit.Log, l *zap.Logger) *auth.Gate {
	if cfg.Secret == "" {
		l.Warn(config.EnvSecret + " is not set; every guarded route will answer 403")
	}
	return auth.NewGate(cfg.Secret, a, l.Named("auth"))
}

// NewTracker builds the service core.
func NewTracker(cfg config.Config, reg *store.Registry, a *audit.Log, l *zap.Logger) *tracker.Tracker {
	return tracker.New(reg,
		tracker.WithLogger(l.Named("tracker")),
		tracker.WithRecorder(a),
		tracker.WithIdentity(cfg.IdentityMode()),
		tracker.WithDueDateLayout(cfg.DueDateLayout),
	)
}

// storesLifecycle initializes every schema on start and closes the files
// and the audit log on stop.
func storesLifecycle(lc fx.Lifecycle, reg *store.Registry, a *audit.Log, l *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := reg.EnsureAll(ctx); err != nil {
				return err
			}
			l.Info("stores ready", zap.Strings("files", reg.Files()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return errors.Join(reg.Close(), a.Close())
		},
	})
}
