package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpattn/gradtrack/internal/db"
	"github.com/rpattn/gradtrack/internal/importer"
	"github.com/rpattn/gradtrack/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrateOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP import API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if migrateOnStart {
				cfg, log, err := loadConfig(opts)
				if err != nil {
					return err
				}
				if err := db.RunMigrations(cfg.Database, log); err != nil {
					return err
				}
			}

			a, err := newApp(ctx, opts, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(a)
		},
	}
	cmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

func newRouter(a *app) http.Handler {
	importHandler := importer.NewHTTPHandler(a.service, a.cfg.Server.MaxUploadBytes())

	mux := http.NewServeMux()
	mux.Handle(importer.RoutePrefix, importHandler)
	mux.Handle(importer.RoutePrefix+"/", importHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.conn.Pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
	})

	return corsHandler.Handler(
		middleware.LoggingMiddleware(a.log)(
			middleware.CallerRoleMiddleware(mux),
		),
	)
}

func serve(a *app) error {
	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      newRouter(a),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.ReadTimeout * 4,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", server.Addr).Info("starting import API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	a.log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.log.Info("server exited")
	return nil
}
