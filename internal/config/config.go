package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Bot       BotConfig
	MongoDB   MongoDBConfig
	Shortener ShortenerConfig
	RateLimit RateLimitConfig
	QR        QRConfig
	Kafka     KafkaConfig
	OTel      OTelConfig
	Monitor   MonitorConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
	Debug    bool
}

type ServerConfig struct {
	Port string
	Host string
}

type BotConfig struct {
	Token         string
	WebhookURL    string
	WebhookSecret string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type ShortenerConfig struct {
	BaseURL        string
	CodeLength     int
	MaxURLLength   int
	BlockedDomains []string
}

type RateLimitConfig struct {
	MaxURLsPerHour int
	// MaxURLsPerDay is accepted from the environment but not enforced
	// anywhere; the hourly cap is the only active limit.
	MaxURLsPerDay int
}

type QRConfig struct {
	BoxSize int
	Border  int
}

type KafkaConfig struct {
	Brokers     []string
	ClicksTopic string
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

type MonitorConfig struct {
	ServiceID   string
	ServiceName string
	Database    string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "shortly-bot"),
			Version:  GetEnv("APP_VERSION", "1.0.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
			Debug:    GetEnvBool("DEBUG", false),
		},
		Server: ServerConfig{
			Port: GetEnv("PORT", "5000"),
			Host: GetEnv("APP_HOST", "0.0.0.0"),
		},
		Bot: BotConfig{
			Token:         GetEnv("BOT_TOKEN", ""),
			WebhookURL:    GetEnv("WEBHOOK_URL", ""),
			WebhookSecret: GetEnv("WEBHOOK_SECRET_TOKEN", ""),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", ""),
			Database: GetEnv("DB_NAME", "url_shortener"),
		},
		Shortener: ShortenerConfig{
			BaseURL:        strings.TrimRight(GetEnv("BASE_URL", "http://localhost:5000"), "/"),
			CodeLength:     GetEnvInt("SHORT_CODE_LENGTH", 6),
			MaxURLLength:   GetEnvInt("MAX_URL_LENGTH", 2048),
			BlockedDomains: SplitCSV(GetEnv("BLOCKED_DOMAINS", "")),
		},
		RateLimit: RateLimitConfig{
			MaxURLsPerHour: GetEnvInt("MAX_URLS_PER_HOUR", 10),
			MaxURLsPerDay:  GetEnvInt("MAX_URLS_PER_DAY", 50),
		},
		QR: QRConfig{
			BoxSize: GetEnvInt("QR_BOX_SIZE", 10),
			Border:  GetEnvInt("QR_BORDER", 4),
		},
		Kafka: KafkaConfig{
			Brokers:     SplitCSV(GetEnv("KAFKA_BROKERS", "")),
			ClicksTopic: GetEnv("KAFKA_CLICKS_TOPIC", "shortener.clicks"),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
		Monitor: MonitorConfig{
			ServiceID:   GetEnv("MONITOR_SERVICE_ID", ""),
			ServiceName: GetEnv("MONITOR_SERVICE_NAME", "shortly-bot"),
			Database:    GetEnv("MONITOR_DB_NAME", "service_monitor"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []string

	if c.Bot.Token == "" {
		errs = append(errs, "BOT_TOKEN is required")
	}
	if c.MongoDB.URI == "" {
		errs = append(errs, "MONGODB_URI is required")
	}
	if c.Bot.WebhookURL == "" && !c.App.Debug {
		errs = append(errs, "WEBHOOK_URL is required in production")
	}
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 32 {
		errs = append(errs, fmt.Sprintf("SHORT_CODE_LENGTH must be between 4 and 32 (got %d)", c.Shortener.CodeLength))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, ", "))
	}
	return nil
}
