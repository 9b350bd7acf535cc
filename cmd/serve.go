package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naka-gawa/repo-history/internal/server"
	"github.com/naka-gawa/repo-history/internal/usecase"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the history charts over HTTP and collects in the background",
	Long: `Starts an HTTP server rendering star, fork and watcher histories as line
graphs. When a GitHub token and repository are configured, a snapshot is
taken at startup and then every collect.interval, and POST /retrieve takes
one on demand.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e := setup(cmd, false)
		defer e.store.Close()
		logger := e.logger

		var collector *usecase.Collector
		if err := e.cfg.ValidateGitHub(); err != nil {
			logger.Warn().Err(err).Msg("Collection disabled; serving stored data only.")
		} else {
			c, err := newCollector(e)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
				os.Exit(1)
			}
			collector = c
		}

		historian := usecase.NewHistorian(e.store, logger.With().Str("component", "historian").Logger())
		var trigger server.Collector
		if collector != nil {
			trigger = collector
		}
		srv, err := server.New(historian, trigger, e.cfg.GitHub.Repo, e.cfg.Collect.RetrieveInterval,
			logger.With().Str("component", "server").Logger())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
			os.Exit(1)
		}

		httpServer := &http.Server{
			Addr:              e.cfg.Addr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			logger.Info().Str("addr", httpServer.Addr).Msg("Listening.")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
		if collector != nil {
			eg.Go(func() error {
				return collector.Poll(egCtx, e.cfg.GitHub.Repo, e.cfg.Collect.Interval)
			})
		}

		if err := eg.Wait(); err != nil {
			logger.Error().Err(err).Msg("Server stopped with an error.")
			os.Exit(1)
		}
		logger.Info().Msg("Server stopped.")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
