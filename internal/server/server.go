package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/shared"
	"golang.org/x/oauth2"
)

// AwaitToken listens on addr until callback receives the redirect, ctx is cancelled, or timeout passes.
//
// The server is shut down before returning.
func AwaitToken(ctx context.Context, addr string, callback *Callback, timeout time.Duration, logger *log.Logger) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return Serve(ctx, listener, NewCallbackMux(callback, Logging(logger)), callback, timeout)
}

// Serve runs handler on listener and waits for the result of callback, which handler must route to.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, callback *Callback, timeout time.Duration) (*oauth2.Token, error) {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-callback.Done():
		if result.Err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Err)
		}
		return result.Token, nil
	case err := <-serveErr:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: no callback within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
