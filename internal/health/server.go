package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/voxa/internal/observe"
)

// shutdownTimeout bounds graceful shutdown of the operations listener.
const shutdownTimeout = 5 * time.Second

// Routes are the paths served by [NewMux].
var Routes = []string{"/healthz", "/readyz", "/metrics"}

// NewMux returns a mux serving [Routes], wrapped in the observe middleware.
func NewMux(h *Handler, m *observe.Metrics) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(m, Routes...)(mux)
}

// Serve listens on addr and serves [NewMux] until ctx is cancelled, then
// shuts down gracefully. It returns nil after a clean shutdown.
func Serve(ctx context.Context, addr string, h *Handler, m *observe.Metrics) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, NewMux(h, m))
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("operations listener started", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		slog.Info("operations listener stopped")
		return nil
	}
}
