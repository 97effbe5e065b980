package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/salonmonarch/booking/libs/config"
	"github.com/salonmonarch/booking/libs/kafkax"
	"github.com/salonmonarch/booking/services/booking-service/internal/availability"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendMongo    = "mongo"
)

type settings struct {
	ServiceName string
	LogLevel    string
	HTTPPort    string
	GRPCPort    string
	GRPCEnabled bool

	Backend       string
	DatabaseURL   string
	DBMaxConns    int
	MongoURI      string
	MongoDatabase string
	AutoMigrate   bool
	StoreTimeout  time.Duration

	Calendar availability.Config

	AdminEmail          string
	RegistrationEnabled bool
	JWTSecret           string
	JWTTTL              time.Duration

	CORSOrigins []string

	RedisAddr      string
	RateLimit      int
	RateWindow     time.Duration
	RateFailOpen   bool
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaGroupID   string
	NotifyWorkers  int
	NotifyQueue    int
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPassword   string
	SMTPFrom       string
	SMSWebhookURL  string
	SMSWebhookAuth string
}

func loadSettings() (settings, error) {
	var (
		s   settings
		err error
	)
	s.ServiceName = config.String("SERVICE_NAME", "booking-service")
	s.LogLevel = config.String("LOG_LEVEL", "info")
	if s.HTTPPort, err = config.Port("PORT", "8080"); err != nil {
		return s, err
	}
	if s.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return s, err
	}
	s.GRPCEnabled = config.Bool("GRPC_ENABLED", true)

	s.Backend = strings.ToLower(config.String("STORE_BACKEND", backendMemory))
	switch s.Backend {
	case backendMemory:
	case backendPostgres:
		if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return s, err
		}
	case backendMongo:
		if s.MongoURI, err = config.RequiredString("MONGO_URI"); err != nil {
			return s, err
		}
	default:
		return s, fmt.Errorf("STORE_BACKEND must be memory, postgres or mongo (got %q)", s.Backend)
	}
	s.MongoDatabase = config.String("MONGO_DATABASE", "salon")
	if s.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10); err != nil {
		return s, err
	}
	s.AutoMigrate = config.Bool("AUTO_MIGRATE", true)
	if s.StoreTimeout, err = config.Duration("STORE_TIMEOUT", 3*time.Second); err != nil {
		return s, err
	}

	if s.Calendar, err = calendarConfig(); err != nil {
		return s, err
	}

	s.AdminEmail = config.String("ADMIN_NOTIFY_EMAIL", "")
	s.RegistrationEnabled = config.Bool("ADMIN_REGISTRATION_ENABLED", false)
	s.JWTSecret = config.String("JWT_SECRET", "")
	if s.JWTTTL, err = config.Duration("JWT_TTL", 30*24*time.Hour); err != nil {
		return s, err
	}

	s.CORSOrigins = config.List("CORS_ALLOWED_ORIGINS", nil)

	s.RedisAddr = config.String("REDIS_ADDR", "")
	if s.RateLimit, err = config.Int("RATE_LIMIT", 20); err != nil {
		return s, err
	}
	if s.RateWindow, err = config.Duration("RATE_WINDOW", time.Minute); err != nil {
		return s, err
	}
	s.RateFailOpen = config.Bool("RATE_LIMIT_FAIL_OPEN", true)

	s.KafkaBrokers = kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	s.KafkaTopic = config.String("KAFKA_NOTIFY_TOPIC", "salon.notifications.v1")
	s.KafkaGroupID = config.String("KAFKA_GROUP_ID", "salon-notifier")
	if s.NotifyWorkers, err = config.Int("NOTIFY_WORKERS", 4); err != nil {
		return s, err
	}
	if s.NotifyQueue, err = config.Int("NOTIFY_QUEUE_SIZE", 256); err != nil {
		return s, err
	}

	s.SMTPHost = config.String("SMTP_HOST", "")
	s.SMTPPort = config.String("SMTP_PORT", "1025")
	s.SMTPUser = config.String("SMTP_USER", "")
	s.SMTPPassword = config.String("SMTP_PASSWORD", "")
	s.SMTPFrom = config.String("SMTP_FROM", "")
	s.SMSWebhookURL = config.String("SMS_WEBHOOK_URL", "")
	s.SMSWebhookAuth = config.String("SMS_WEBHOOK_TOKEN", "")
	return s, nil
}

func calendarConfig() (availability.Config, error) {
	cfg := availability.DefaultConfig()
	var err error
	if raw := config.String("BUSINESS_OPEN", ""); raw != "" {
		if cfg.Open, err = availability.ParseClock(raw); err != nil {
			return cfg, fmt.Errorf("BUSINESS_OPEN: %w", err)
		}
	}
	if raw := config.String("BUSINESS_CLOSE", ""); raw != "" {
		if cfg.Close, err = availability.ParseClock(raw); err != nil {
			return cfg, fmt.Errorf("BUSINESS_CLOSE: %w", err)
		}
	}
	if cfg.Interval, err = config.Duration("SLOT_INTERVAL", cfg.Interval); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
