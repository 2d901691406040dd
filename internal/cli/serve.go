package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"lrc-translator/internal/config"
	"lrc-translator/internal/history"
	"lrc-translator/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload/paste translation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			var recorder history.Recorder
			if store := openHistory(ctx, cfg); store != nil {
				defer store.Close()
				recorder = store
			}

			return serve(ctx, cfg, server.NewRouter(cfg, server.DefaultBackendFactory, recorder))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to $LRC_LISTEN_ADDR or :8080)")
	return cmd
}

// serve blocks until ctx is cancelled or the listener fails.
func serve(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	log.Info().
		Str("address", listener.Addr().String()).
		Str("model", cfg.Model).
		Strs("languages", cfg.TargetLanguages).
		Msg("Server listening")

	return serveListener(ctx, listener, handler)
}

// serveListener serves on listener. Request contexts derive from ctx, so
// translations still running stop before their next backend call once ctx
// is cancelled.
func serveListener(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
