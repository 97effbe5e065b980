package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/salonmonarch/booking/libs/kafkax"
	"github.com/salonmonarch/booking/libs/runtime"
	"github.com/salonmonarch/booking/services/booking-service/internal/notify"
)

func newNotifierCmd() *cobra.Command {
	var dedupeTTL time.Duration
	cmd := &cobra.Command{
		Use:   "notifier",
		Short: "Consume notification events from Kafka and deliver them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if len(s.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is required for the notifier")
			}

			logger := runtime.NewLogger(s.ServiceName+"-notifier", s.LogLevel)
			ctx, stop := runtime.SignalContext(cmd.Context())
			defer stop()
			defer setupTracing(ctx, s, logger)()

			var dedupe notify.Deduper = notify.NewMemoryDeduper(0)
			ready := []runtime.ReadyCheck{{Name: "kafka", Check: kafkax.ReadyCheck(s.KafkaBrokers)}}
			if s.RedisAddr != "" {
				rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
				defer func() { _ = rdb.Close() }()
				dedupe = notify.NewRedisDeduper(rdb, "salon:notify:seen", dedupeTTL)
				ready = append(ready, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
					return rdb.Ping(ctx).Err()
				}})
			}

			dispatcher := newDispatcher(s, logger)
			reader := notify.NewKafkaReader(notify.ConsumerConfig{
				Brokers: s.KafkaBrokers,
				GroupID: s.KafkaGroupID,
				Topic:   s.KafkaTopic,
			})
			consumer := notify.NewConsumer(reader, dedupe, dispatcher, logger)

			mux := http.NewServeMux()
			mux.Handle("/healthz", runtime.HealthHandler())
			mux.Handle("/readyz", runtime.ReadyHandler(2*time.Second, ready...))
			srv := &http.Server{Addr: ":" + s.HTTPPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("health server error", "err", err)
				}
			}()

			logger.Info("notifier starting", "topic", s.KafkaTopic, "group_id", s.KafkaGroupID)
			consumer.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			logger.Info("notifier stopped")
			return nil
		},
	}
	cmd.Flags().DurationVar(&dedupeTTL, "dedupe-ttl", 72*time.Hour, "how long delivered event ids are remembered in Redis")
	return cmd
}
