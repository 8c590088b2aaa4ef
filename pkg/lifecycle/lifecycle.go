// Package lifecycle runs the long-lived parts of a service under one context.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// ShutdownTimeout bounds how long servers get to drain after the stop signal.
const ShutdownTimeout = 5 * time.Second

// Task runs until ctx is canceled. Returning an error stops every other task.
type Task func(ctx context.Context) error

// SignalContext is canceled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Run starts every task and waits for all of them. The first failure cancels the rest.
func Run(ctx context.Context, tasks ...Task) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task(ctx) })
	}
	return g.Wait()
}

// GRPC serves srv on addr and stops it gracefully when ctx is done.
func GRPC(srv *grpc.Server, addr string, l *zap.Logger) Task {
	return func(ctx context.Context) error {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info(ctx, l, "gRPC server listening", zap.String("addr", addr))
			errCh <- srv.Serve(lis)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("grpc serve: %w", err)
		case <-ctx.Done():
		}

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(ShutdownTimeout):
			logger.Warn(context.Background(), l, "gRPC server did not drain in time")
			srv.Stop()
		}
		return nil
	}
}

// HTTP serves srv and shuts it down when ctx is done.
func HTTP(srv *http.Server, l *zap.Logger) Task {
	return func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info(ctx, l, "HTTP server listening", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("http serve: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}
