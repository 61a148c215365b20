package cli

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/app"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/audit"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/tracker"
)

// services is the set of components a one-shot command works with. It is
// built from the same constructors the server graph uses.
type services struct {
	logger  *zap.Logger
	stores  *store.Registry
	audit   *audit.Log
	tracker *tracker.Tracker
}

// openServices builds every component and ensures all schemas exist.
func openServices(ctx context.Context, cfg config.Config) (*services, error) {
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	reg, err := app.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	if err := reg.EnsureAll(ctx); err != nil {
		reg.Close()
		return nil, err
	}
	log, err := app.NewAuditLog(cfg, logger)
	if err != nil {
		reg.Close()
		return nil, err
	}

	return &services{
		logger:  logger,
		stores:  reg,
		audit:   log,
		tracker: app.NewTracker(cfg, reg, log, logger),
	}, nil
}

func (s *services) Close() error {
	err := errors.Join(s.stores.Close(), s.audit.Close())
	_ = s.logger.Sync()
	return err
}
