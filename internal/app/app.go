package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/bakery-pos/internal/health"
	"github.com/vladislavdragonenkov/bakery-pos/internal/httpapi"
	"github.com/vladislavdragonenkov/bakery-pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/bakery-pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/bakery-pos/internal/service/checkout"
	"github.com/vladislavdragonenkov/bakery-pos/internal/service/outbox"
	"github.com/vladislavdragonenkov/bakery-pos/internal/service/reporting"
	"github.com/vladislavdragonenkov/bakery-pos/internal/version"
)

// Config описывает настройки запуска кассового сервиса.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// TaxRate — десятичная строка, например "0.05".
	TaxRate string
	// SeedCatalog наполняет пустой каталог стартовым ассортиментом.
	SeedCatalog bool

	KafkaBrokers       string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		GRPCAddr:           ":50051",
		MetricsAddr:        ":9090",
		StorageDriver:      StorageDriverMemory,
		TaxRate:            domain.DefaultTaxRate.String(),
		SeedCatalog:        true,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    50,
		OutboxMaxAttempts:  3,
	}
}

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	taxRate, err := parseTaxRate(cfg.TaxRate)
	if err != nil {
		return err
	}

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	catalogSvc := catalog.NewService(deps.Products, deps.Outbox, logger.WithField("component", "catalog"))
	if cfg.SeedCatalog {
		if err := catalogSvc.Seed(); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	factory := domain.NewOrderFactory(domain.DefaultOrderSeq, taxRate)
	engine := checkout.NewEngine(deps.Products, deps.Ledger, deps.Outbox, logger.WithField("component", "checkout"))
	reports := reporting.NewService(deps.Ledger, logger.WithField("component", "reporting"))

	// Kafka и outbox worker — опциональный контур событий.
	kafkaProducer := initKafkaProducer(cfg.KafkaBrokers, logger)
	if kafkaProducer != nil {
		opts := []outbox.Option{
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewDLQPublisher(kafkaProducer)),
		}
		if cfg.OutboxPollInterval > 0 {
			opts = append(opts, outbox.WithPollInterval(cfg.OutboxPollInterval))
		}
		if cfg.OutboxBatchSize > 0 {
			opts = append(opts, outbox.WithBatchSize(cfg.OutboxBatchSize))
		}
		if cfg.OutboxMaxAttempts > 0 {
			opts = append(opts, outbox.WithMaxAttempts(cfg.OutboxMaxAttempts))
		}
		worker := outbox.NewWorker(deps.Outbox, kafka.NewOutboxPublisher(kafkaProducer), opts...)
		go worker.Run(ctx)
	}

	// Бизнес-API.
	apiHandler := httpapi.NewHandler(catalogSvc, engine, reports, factory, logger.WithField("component", "httpapi"))
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.NewRouter(apiHandler)}

	// gRPC-сервер несёт только health и reflection: probe-поверхность для
	// оркестраторов, бизнес-методов на нём нет.
	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := grpchealth.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	// HTTP health checks на metrics-порту.
	healthHandler := healthcheck.NewHandler(version.String())
	if deps.Store != nil {
		store := deps.Store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(checkCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc addr %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Infof("gRPC health server listening on %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	shutdown := func() {
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		stoppedCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop exceeded timeout, forcing grpc stop")
			grpcServer.Stop()
		}

		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdown()
		return ctx.Err()
	case err := <-errCh:
		shutdown()
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func parseTaxRate(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return domain.DefaultTaxRate, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse tax rate %q: %w", raw, err)
	}
	if rate.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("tax rate must be non-negative, got %s", raw)
	}
	return rate, nil
}

// startMetricsServer запускает /metrics и health-endpoints для Prometheus
// и оркестраторов.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http server shutdown with error")
	}
}
