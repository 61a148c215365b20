package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
)

// Module provides the API server and binds it to the application lifecycle.
var Module = fx.Module("api",
	fx.Provide(
		NewServer,
		NewHTTPServer,
	),
	fx.Invoke(
		serverLifecycle,
	),
)

// NewHTTPServer wraps the routed handler in an http.Server listening on the
// configured address.
func NewHTTPServer(s *Server, cfg config.Config) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func serverLifecycle(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Bind synchronously so a busy port fails startup.
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			logger.Info("Starting server", zap.String("addr", ln.Addr().String()))

			go func() { // non-blocking server start
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
