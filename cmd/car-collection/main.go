package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-car-collection/internal/config"
	carhttp "github.com/pribylovaa/go-car-collection/internal/http"
	"github.com/pribylovaa/go-car-collection/internal/http/handlers"
	"github.com/pribylovaa/go-car-collection/internal/http/middleware"
	"github.com/pribylovaa/go-car-collection/internal/service"
	"github.com/pribylovaa/go-car-collection/internal/storage"
	"github.com/pribylovaa/go-car-collection/internal/storage/memory"
	"github.com/pribylovaa/go-car-collection/internal/storage/minio"
	"github.com/pribylovaa/go-car-collection/internal/storage/mongo"
	"github.com/pribylovaa/go-car-collection/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting car-collection",
		slog.String("env", cfg.Env),
		slog.String("db_driver", cfg.DB.Driver),
		slog.Bool("s3_enabled", cfg.S3.Enabled),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := run(ctx, cfg, log, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	cancel()

	if err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

// run поднимает хранилища и HTTP-сервер и блокируется до отмены ctx
// или ошибки сервера. Открытые ресурсы закрываются при любом исходе.
// reg/gatherer — реестр метрик HTTP и источник для /metrics.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) error {
	const op = "main.run"

	// недоступная БД на старте — фатально.
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: open storage: %w", op, err)
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if cerr := st.Close(closeCtx); cerr != nil {
			log.Warn("storage_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	log.Info("storage_connected", slog.String("driver", cfg.DB.Driver))

	images, localImages, err := openImages(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: open image storage: %w", op, err)
	}

	svc := service.New(st, images, cfg.Auth)

	opts := carhttp.Options{
		Logger:      log,
		Timeout:     cfg.Timeouts.Request,
		BasePath:    cfg.HTTP.BasePath,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		Cookies:     cfg.Cookies,
		Images:      cfg.Images,
		Metrics:     middleware.NewMetrics(reg),
		LocalImages: localImages,
	}

	apiHandler := carhttp.NewRouter(svc, opts)

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("%s: listen %s: %w", op, httpAddr, err)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if serveErr != nil {
		return fmt.Errorf("%s: serve: %w", op, serveErr)
	}

	return nil
}

// openStorage подключает хранилище записей по db.driver.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.DB.Driver {
	case config.DriverMongo:
		st, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverPostgres:
		st, err := postgres.New(ctx, cfg.DB.URL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

// openImages подключает MinIO при s3.enabled, иначе — хранилище в памяти,
// которое раздаётся самим сервисом по /images/*.
func openImages(ctx context.Context, cfg *config.Config) (storage.ImageStorage, handlers.ImageOpener, error) {
	if cfg.S3.Enabled {
		st, err := minio.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	}

	st := memory.NewImageStorage(localImagesBaseURL(cfg), storage.ImageLimits{
		MaxSizeBytes:        cfg.Images.MaxSizeBytes,
		AllowedContentTypes: cfg.Images.AllowedContentTypes,
	})
	return st, st, nil
}

// localImagesBaseURL — публичный адрес /images: из s3.public_base_url, если задан,
// иначе http://localhost:<port><base_path>/images.
func localImagesBaseURL(cfg *config.Config) string {
	if cfg.S3.PublicBaseURL != "" {
		return strings.TrimRight(cfg.S3.PublicBaseURL, "/")
	}

	host := cfg.HTTP.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	return "http://" + net.JoinHostPort(host, cfg.HTTP.Port) + strings.TrimRight(cfg.HTTP.BasePath, "/") + "/images"
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
