package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		autoSearch time.Duration
		origins    []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forms over HTTP and websockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			logger := log.New(cmd.ErrOrStderr(), "crudform: ", log.LstdFlags)
			srv := server.New(a.orch,
				server.WithLogger(logger),
				server.WithAutoSearchDelay(autoSearch),
				server.WithOriginPatterns(origins...),
			)
			httpServer := &http.Server{
				Addr:              opts.cfg.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Printf("listening on %s (%d forms)", opts.cfg.Addr, len(a.orch.Forms()))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("crudform: serve: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Printf("shutting down")
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&opts.cfg.Addr, "addr", opts.cfg.Addr, "Listen address")
	cmd.Flags().DurationVar(&autoSearch, "auto-search", 300*time.Millisecond, "Debounce for live search sessions; 0 disables")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "Extra origin host patterns allowed to open live sessions")
	return cmd
}
