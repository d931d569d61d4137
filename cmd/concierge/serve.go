package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/cli"
	httpadapter "github.com/aretw0/concierge/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the conversation API described by /openapi.yaml, with a server-sent
event stream per session. When metrics are enabled, Prometheus metrics are
served on their own port under /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.WithInterrupt(cmd.Context())
		defer sigCtx.Stop()

		app, err := loadApp(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		port := app.Config.HTTP.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		handler := httpadapter.NewHandler(app.Assistant.Manager(), app.Assistant.Catalog(),
			httpadapter.WithStreams(app.Streams),
			httpadapter.WithLogger(app.Logger),
			httpadapter.WithVersion(concierge.Version),
		)
		servers := []*http.Server{{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}}
		if app.Registry != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
			servers = append(servers, &http.Server{
				Addr:              fmt.Sprintf(":%d", app.Config.Metrics.Port),
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			})
		}

		g, ctx := errgroup.WithContext(sigCtx)
		for _, srv := range servers {
			g.Go(func() error {
				app.Logger.Info("Listening", "address", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		}
		g.Go(func() error {
			<-ctx.Done()
			app.Logger.Info("Shutting down", "signal", sigCtx.Signal())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			var errs []error
			for _, srv := range servers {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					errs = append(errs, fmt.Errorf("graceful shutdown of %s: %w", srv.Addr, err))
					_ = srv.Close()
				}
			}
			return errors.Join(errs...)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
}
