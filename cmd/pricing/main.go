package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/memory"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/mysql"
	pricingredis "github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/redis"
	httphandler "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
	"github.com/wyfcoding/optionpricing/pkg/cache"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/db"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/middleware"
	"github.com/wyfcoding/optionpricing/pkg/mq"
	"github.com/wyfcoding/optionpricing/pkg/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const BootstrapName = "pricing"

// AppContext 进程级依赖
type AppContext struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Command *application.PricingCommandService
	Query   *application.PricingQueryService
	Limiter ratelimit.RateLimiter
	Relay   *messaging.OutboxRelay
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/pricing/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	if err := logger.Init(logger.Config(cfg.Logger)); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCtx, cleanup, err := initService(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "failed to initialize service", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// 3. Interfaces
	grpcSrv := newGRPCServer(appCtx)
	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		logger.Error(ctx, "failed to listen for gRPC", "addr", cfg.GRPC.Addr(), "error", err)
		os.Exit(1)
	}
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      newRouter(appCtx),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 4. Start
	errCh := make(chan error, 2)
	go func() {
		logger.Info(ctx, "Starting gRPC server", "addr", cfg.GRPC.Addr())
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		logger.Info(ctx, "Starting HTTP server", "addr", cfg.HTTP.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	if appCtx.Relay != nil {
		go appCtx.Relay.Run(ctx)
	}

	// 5. Graceful Shutdown
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down server...")
	case err := <-errCh:
		logger.Error(context.Background(), "server failed", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "HTTP shutdown incomplete", "error", err)
	}
	grpcSrv.GracefulStop()
	logger.Info(shutdownCtx, "Server exiting")
}

// initService 按配置组装依赖；数据库、Redis、Kafka 均为可选
func initService(ctx context.Context, cfg *config.Config) (*AppContext, func(), error) {
	logger.Info(ctx, "initializing service dependencies...", "service", cfg.ServiceName, "version", cfg.Version)
	var closers []func()
	cleanup := func() {
		logger.Info(context.Background(), "cleaning up resources...")
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*AppContext, func(), error) {
		cleanup()
		return nil, nil, err
	}

	m := metrics.New(cfg.ServiceName)

	var (
		repo      domain.PricingRepository
		publisher domain.EventPublisher = messaging.LogEventPublisher{}
		outbox    *messaging.OutboxEventPublisher
	)
	if cfg.Database.DSN != "" {
		database, err := db.Init(ctx, db.Config{
			Driver:             cfg.Database.Driver,
			DSN:                cfg.Database.DSN,
			MaxOpenConns:       cfg.Database.MaxOpenConns,
			MaxIdleConns:       cfg.Database.MaxIdleConns,
			ConnMaxLifetime:    time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
			LogEnabled:         cfg.Database.LogEnabled,
			SlowQueryThreshold: time.Duration(cfg.Database.SlowQueryThreshold) * time.Millisecond,
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = database.Close() })

		if cfg.Database.AutoMigrate {
			models := append(mysql.Models(), &messaging.OutboxMessage{})
			if err := database.AutoMigrate(models...); err != nil {
				return fail(fmt.Errorf("migrate db failed: %w", err))
			}
		}
		repo = mysql.NewPricingRepository(database.DB)
		outbox = messaging.NewOutboxEventPublisher(database.DB, 5)
		publisher = outbox
	} else {
		logger.Warn(ctx, "database dsn is empty, using in-memory repository")
		repo = memory.NewPricingRepository()
	}

	var limiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	if cfg.Redis.Host != "" {
		redisCache, err := cache.New(ctx, cache.Config{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  time.Duration(cfg.Redis.ConnTimeout) * time.Second,
			ReadTimeout:  time.Duration(cfg.Redis.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Redis.WriteTimeout) * time.Second,
			Prefix:       cfg.ServiceName,
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = redisCache.Close() })
		repo = pricingredis.NewPricingCachedRepository(repo, redisCache, cfg.Pricing.CacheTTLDuration())
		if cfg.RateLimit.Backend == "redis" {
			limiter = ratelimit.NewRedisRateLimiter(redisCache.Client())
		}
	}

	var relay *messaging.OutboxRelay
	if len(cfg.Kafka.Brokers) > 0 {
		if outbox == nil {
			logger.Warn(ctx, "kafka configured without database, outbox relay disabled")
		} else {
			producer, err := mq.NewProducer(mq.KafkaConfig{Brokers: cfg.Kafka.Brokers})
			if err != nil {
				return fail(err)
			}
			closers = append(closers, func() { _ = producer.Close() })
			relay = messaging.NewOutboxRelay(outbox, producer, m, messaging.RelayConfig{
				Topic:     cfg.Kafka.Topic,
				Interval:  time.Duration(cfg.Kafka.RelayInterval) * time.Millisecond,
				BatchSize: cfg.Kafka.RelayBatchSize,
			})
		}
	}

	opts := application.Options{
		DefaultSteps:     cfg.Pricing.DefaultSteps,
		DefaultPaths:     cfg.Pricing.DefaultPaths,
		MaxResolution:    cfg.Pricing.MaxResolution,
		MaxLatticeSteps:  cfg.Pricing.MaxLatticeSteps,
		Seed:             cfg.Pricing.MonteCarloSeed,
		Partitions:       cfg.Pricing.MonteCarloPartitions,
		BatchConcurrency: cfg.Pricing.BatchConcurrency,
	}
	pricer := finance.NewPricer(finance.NewMonteCarloSimulator(opts.Seed, opts.Partitions))

	return &AppContext{
		Config:  cfg,
		Metrics: m,
		Command: application.NewPricingCommandService(repo, publisher, pricer, m, opts),
		Query:   application.NewPricingQueryService(repo, pricer, opts),
		Limiter: limiter,
		Relay:   relay,
	}, cleanup, nil
}

func newRouter(appCtx *AppContext) *gin.Engine {
	cfg := appCtx.Config
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinRequestIDMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(appCtx.Metrics),
		middleware.RateLimitMiddleware(appCtx.Limiter, cfg.RateLimit),
	)

	httphandler.NewPricingHandler(appCtx.Command, appCtx.Query).RegisterRoutes(&r.RouterGroup)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(appCtx.Metrics.Handler()))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"version":   cfg.Version,
			"timestamp": time.Now().Unix(),
		})
	})
	logger.Info(context.Background(), "HTTP routes registered", "service", BootstrapName)
	return r
}

func newGRPCServer(appCtx *AppContext) *grpc.Server {
	cfg := appCtx.Config
	s := grpc.NewServer(
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)),
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(),
			middleware.GRPCMetricsInterceptor(appCtx.Metrics),
			middleware.GRPCRateLimitInterceptor(appCtx.Limiter, cfg.RateLimit),
		),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(BootstrapName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, hs)
	reflection.Register(s)
	logger.Info(context.Background(), "gRPC server registered", "service", BootstrapName)
	return s
}
