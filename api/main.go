package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
	"github.com/factlake/factlake/api/config"
	"github.com/factlake/factlake/api/handlers"
	"github.com/factlake/factlake/api/metrics"
	"github.com/factlake/factlake/pkg/specs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// shuttingDown is set to true when shutdown signal is received.
	// Readiness probe checks this to immediately return 503.
	shuttingDown atomic.Bool
)

const defaultMetricsAddr = "0.0.0.0:0"

func main() {
	metricsAddrFlag := pflag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	listenAddrFlag := pflag.String("listen-addr", ":8080", "Address to listen on for the HTTP API")
	pflag.Parse()

	_ = godotenv.Load()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	config.Log = log
	log.Info("starting factlake api", "version", version, "commit", commit, "date", date)

	ctx := context.Background()

	if err := config.LoadStore(ctx, log); err != nil {
		log.Error("failed to load graph store", "error", err)
		os.Exit(1)
	}
	defer config.CloseStore(ctx)

	if err := config.LoadLocker(); err != nil {
		log.Error("failed to load workspace locker", "error", err)
		os.Exit(1)
	}

	specsDir := os.Getenv("SPECS_DIR")
	if specsDir == "" {
		specsDir = "./specs"
	}
	config.Specs = specs.NewIngestionRegistry(specsDir)

	schemasDir := os.Getenv("SCHEMAS_DIR")
	if schemasDir == "" {
		schemasDir = "./schemas"
	}
	config.Schemas = specs.NewRegistry(schemasDir)

	var metricsServer *http.Server
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		listener, err := net.Listen("tcp", *metricsAddrFlag)
		if err != nil {
			log.Warn("failed to start prometheus metrics listener", "error", err)
		} else {
			log.Info("prometheus metrics server listening", "addr", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsServer = &http.Server{Handler: mux}
			go func() {
				if err := metricsServer.Serve(listener); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server error", "error", err)
				}
			}()
		}
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	corsOrigins := []string{"*"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsOrigins = strings.Split(origins, ",")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("shutting down"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := config.Store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("store connection failed: " + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/workspace/{wid}", func(r chi.Router) {
		r.Post("/imports", handlers.CreateImport)
		r.Get("/imports", handlers.ListImports)
		r.Get("/imports/{id}", handlers.GetImport)
		r.Get("/imports/{id}/diff", handlers.GetImportDiff)

		r.Get("/entities", handlers.SearchEntities)
		r.Get("/entities/{id}", handlers.GetEntity)

		r.Get("/sources", handlers.ListSources)
		r.Post("/sources", handlers.CreateSource)
	})

	server := &http.Server{
		Addr:         *listenAddrFlag,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("api server starting", "addr", *listenAddrFlag)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-shutdown
	log.Info("received signal, shutting down gracefully", "signal", sig.String())

	shuttingDown.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown error", "error", err)
	} else {
		log.Info("server stopped gracefully")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error("metrics server shutdown error", "error", err)
		} else {
			log.Info("metrics server stopped gracefully")
		}
	}
}
