package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/salonmonarch/booking/libs/auth"
	"github.com/salonmonarch/booking/libs/httpx"
	"github.com/salonmonarch/booking/libs/kafkax"
	otelx "github.com/salonmonarch/booking/libs/otel"
	"github.com/salonmonarch/booking/libs/runtime"
	"github.com/salonmonarch/booking/services/booking-service/internal/admins"
	"github.com/salonmonarch/booking/services/booking-service/internal/availability"
	"github.com/salonmonarch/booking/services/booking-service/internal/grpcserver"
	"github.com/salonmonarch/booking/services/booking-service/internal/handlers"
	"github.com/salonmonarch/booking/services/booking-service/internal/lifecycle"
	"github.com/salonmonarch/booking/services/booking-service/internal/notify"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC APIs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), s)
		},
	}
}

func serve(parent context.Context, s settings) error {
	logger := runtime.NewLogger(s.ServiceName, s.LogLevel)
	ctx, stop := runtime.SignalContext(parent)
	defer stop()

	defer setupTracing(ctx, s, logger)()

	issuer, err := auth.NewIssuer(s.JWTSecret, s.JWTTTL)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}
	cal, err := availability.NewCalendar(s.Calendar)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, s, logger, s.AutoMigrate)
	if err != nil {
		return err
	}
	defer st.close()
	ready := append([]runtime.ReadyCheck{}, st.ready...)

	// The dispatcher outlives the HTTP server so requests still in flight
	// during shutdown can enqueue.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()
	var (
		outbox  notify.Outbox
		workers sync.WaitGroup
	)
	if len(s.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(notify.KafkaConfig{Brokers: s.KafkaBrokers, Topic: s.KafkaTopic}, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close failed", "err", err)
			}
		}()
		outbox = notify.NewKafkaOutbox(writer, logger)
		ready = append(ready, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(s.KafkaBrokers)})
		logger.Info("notifications published to kafka", "topic", s.KafkaTopic)
	} else {
		dispatcher := newDispatcher(s, logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			dispatcher.Run(dispatchCtx)
		}()
		outbox = dispatcher
	}

	var limiter httpx.Limiter = httpx.NewMemoryRateLimiter(s.RateLimit, s.RateWindow)
	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, s.RateLimit, s.RateWindow, "salon:ratelimit")
		ready = append(ready, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	svc := lifecycle.NewService(st.appointments, cal, outbox, lifecycle.Options{
		AdminEmail:   s.AdminEmail,
		StoreTimeout: s.StoreTimeout,
		Logger:       logger,
	})
	adminSvc := admins.NewService(st.admins, issuer, admins.Options{
		RegistrationEnabled: s.RegistrationEnabled,
		StoreTimeout:        s.StoreTimeout,
		Logger:              logger,
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		Lifecycle:       svc,
		Admins:          adminSvc,
		Issuer:          issuer,
		Logger:          logger,
		WriteLimiter:    limiter,
		LimiterFailOpen: s.RateFailOpen,
		CORS:            httpx.CORSPolicy{AllowedOrigins: s.CORSOrigins, MaxAge: 10 * time.Minute},
		RequestTimeout:  15 * time.Second,
		ReadyChecks:     ready,
	})
	srv := &http.Server{
		Addr:              ":" + s.HTTPPort,
		Handler:           otelhttp.NewHandler(router, "booking"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.GRPCEnabled {
		lis, err := net.Listen("tcp", ":"+s.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gsrv := grpcserver.NewServer(logger)
		health := grpcserver.Register(gsrv, svc)
		go func() {
			logger.Info("grpc server starting", "addr", lis.Addr().String())
			if err := gsrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		defer func() {
			health.Shutdown()
			gsrv.GracefulStop()
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("server failed", "err", runErr)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	stopDispatch()
	workers.Wait()
	return runErr
}

func setupTracing(ctx context.Context, s settings, logger *slog.Logger) func() {
	shutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(s.ServiceName, version))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}
}
