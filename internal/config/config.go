package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted in STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Logging struct {
		Dir   string
		Level string
	}
	API struct {
		Port     string
		BasePath string
	}
	Store struct {
		Backend string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Environment struct {
		APIKey       string
		PowerURL     string
		FetchTimeout time.Duration
	}
	Location struct {
		DefaultLatitude  float64
		DefaultLongitude float64
		GeocoderURL      string
	}
	Notification struct {
		QueueSize         int
		MaxWorkers        int
		MaxItems          int
		RetentionDays     int
		RetentionInterval time.Duration
		SummaryInterval   time.Duration
	}
	Telegram struct {
		BotToken  string
		ChatID    int64
		RateLimit int
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	var cfg Config

	cfg.Logging.Dir = getenv("LOG_DIR")
	cfg.Logging.Level = getenv("LOG_LEVEL")

	cfg.API.Port = getenv("API_PORT")
	cfg.API.BasePath = getenv("API_BASE_PATH")

	cfg.Store.Backend = getenv("STORE_BACKEND")
	cfg.DB.DSN = getenv("DB_DSN")

	cfg.Redis.Addr = getenv("REDIS_ADDR")
	cfg.Redis.Password = getenv("REDIS_PASSWORD")
	if n, err := strconv.Atoi(getenv("REDIS_DB")); err == nil {
		cfg.Redis.DB = n
	}

	cfg.Kafka.Broker = getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = getenv("KAFKA_GROUP_ID")

	cfg.Environment.APIKey = getenv("NASA_POWER_API_KEY")
	cfg.Environment.PowerURL = getenv("NASA_POWER_URL")
	if d, err := time.ParseDuration(getenv("FETCH_TIMEOUT")); err == nil {
		cfg.Environment.FetchTimeout = d
	}

	cfg.Location.DefaultLatitude = 41.8780
	cfg.Location.DefaultLongitude = -93.0977
	if v, err := strconv.ParseFloat(getenv("DEFAULT_LATITUDE"), 64); err == nil {
		cfg.Location.DefaultLatitude = v
	}
	if v, err := strconv.ParseFloat(getenv("DEFAULT_LONGITUDE"), 64); err == nil {
		cfg.Location.DefaultLongitude = v
	}
	cfg.Location.GeocoderURL = getenv("GEOCODER_URL")

	// Notification worker settings
	if qs, err := strconv.Atoi(getenv("QUEUE_SIZE")); err == nil {
		cfg.Notification.QueueSize = qs
	}
	if mw, err := strconv.Atoi(getenv("MAX_WORKERS")); err == nil {
		cfg.Notification.MaxWorkers = mw
	}
	// Unset keeps 200; an explicit 0 or below keeps every notification.
	cfg.Notification.MaxItems = 200
	if mi, err := strconv.Atoi(getenv("NOTIFICATION_MAX_ITEMS")); err == nil {
		cfg.Notification.MaxItems = max(mi, 0)
	}
	if rd, err := strconv.Atoi(getenv("RETENTION_DAYS")); err == nil {
		cfg.Notification.RetentionDays = rd
	}
	if d, err := time.ParseDuration(getenv("RETENTION_INTERVAL")); err == nil {
		cfg.Notification.RetentionInterval = d
	}
	if d, err := time.ParseDuration(getenv("SUMMARY_INTERVAL")); err == nil {
		cfg.Notification.SummaryInterval = d
	}

	cfg.Telegram.BotToken = getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	if rl, err := strconv.Atoi(getenv("TELEGRAM_RATE_LIMIT")); err == nil {
		cfg.Telegram.RateLimit = rl
	}

	// Apply defaults
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMemory
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "agrisense_refresh"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "agrisense"
	}
	if cfg.Environment.PowerURL == "" {
		cfg.Environment.PowerURL = "https://power.larc.nasa.gov/api/temporal/daily/point"
	}
	if cfg.Environment.FetchTimeout <= 0 {
		cfg.Environment.FetchTimeout = 5 * time.Second
	}
	if cfg.Location.GeocoderURL == "" {
		cfg.Location.GeocoderURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Notification.QueueSize == 0 {
		cfg.Notification.QueueSize = 500
	}
	if cfg.Notification.MaxWorkers == 0 {
		cfg.Notification.MaxWorkers = 4
	}
	if cfg.Notification.RetentionDays == 0 {
		cfg.Notification.RetentionDays = 7
	}
	if cfg.Notification.RetentionInterval <= 0 {
		cfg.Notification.RetentionInterval = time.Hour
	}
	if cfg.Notification.SummaryInterval <= 0 {
		cfg.Notification.SummaryInterval = 24 * time.Hour
	}
	if cfg.Telegram.RateLimit == 0 {
		cfg.Telegram.RateLimit = 1
	}

	// Validate required settings
	missing := []string{}
	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DB.DSN == "" {
			missing = append(missing, "DB_DSN")
		}
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	default:
		return Config{}, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.Store.Backend)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}
	if cfg.Location.DefaultLatitude < -90 || cfg.Location.DefaultLatitude > 90 ||
		cfg.Location.DefaultLongitude < -180 || cfg.Location.DefaultLongitude > 180 {
		return Config{}, fmt.Errorf("default location out of range: %v,%v",
			cfg.Location.DefaultLatitude, cfg.Location.DefaultLongitude)
	}

	return cfg, nil
}

// LiveDataEnabled reports whether the live NASA POWER fetch should be attempted.
func (c Config) LiveDataEnabled() bool {
	return c.Environment.APIKey != "" && c.Environment.APIKey != "demo-key"
}

// TelegramEnabled reports whether a Telegram chat is configured.
func (c Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
