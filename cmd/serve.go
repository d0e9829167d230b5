package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RedWaffle007/sic-data-software/internal/api"
	"github.com/RedWaffle007/sic-data-software/internal/jobs"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		srv := &api.Server{
			Orchestrator: orch,
			Jobs:         jobs.NewStore(time.Duration(cfg.Jobs.TTLHours) * time.Hour),
			Datasets:     st,
			ExtractDir:   cfg.Output.SICExtractDir(),
			ResolveDir:   cfg.Output.CountyFilterDir(),
			EnrichedDir:  cfg.Output.EnrichedDir(),
		}

		// Enrichment backends are optional at startup. The handlers reject
		// requests for anything left unconfigured.
		if enricher, err := buildEnricher(cfg); err == nil {
			srv.Enricher = enricher
		} else {
			zap.L().Warn("registry enrichment disabled", zap.Error(err))
		}
		if directory, err := buildDirectoryEngine(cfg); err == nil {
			srv.Directory = directory
		} else {
			zap.L().Warn("directory enrichment disabled", zap.Error(err))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("http server listening", zap.String("addr", httpSrv.Addr))
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
