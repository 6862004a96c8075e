package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	LogLevel       string
	StorageDriver  string
	MigrationsPath string
	DBMaxConns     int32
	DBConnTimeout  time.Duration

	JWTSecret string
	JWTIssuer string

	CORSAllowedOrigins []string
	RateLimit          string

	// Deal policy
	CloseRequiresZeroBalance bool
	LTVAlertThreshold        decimal.Decimal
	LTVCronSpec              string

	// Audit fan-out
	AuditDBEnabled    bool
	PosthogAPIKey     string
	PosthogEndpoint   string
	NATSURL           string
	NATSSubjectPrefix string

	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CLOSE_REQUIRES_ZERO_BALANCE", false)
	viper.SetDefault("LTV_ALERT_THRESHOLD", "80")
	viper.SetDefault("LTV_CRON_SPEC", "@every 1h")
	viper.SetDefault("AUDIT_DB_ENABLED", true)
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("NATS_SUBJECT_PREFIX", "deal_ledger")
	viper.SetDefault("METRICS_ENABLED", true)

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:              viper.GetString("PGSQL_URL"),
		Port:                     viper.GetString("PORT"),
		IsProduction:             viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:            viper.GetBool("ENABLE_DB_CHECK"),
		LogLevel:                 strings.ToLower(viper.GetString("LOG_LEVEL")),
		StorageDriver:            strings.ToLower(viper.GetString("STORAGE_DRIVER")),
		MigrationsPath:           viper.GetString("MIGRATIONS_PATH"),
		DBMaxConns:               viper.GetInt32("DB_MAX_CONNS"),
		DBConnTimeout:            viper.GetDuration("DB_CONNECT_TIMEOUT"),
		JWTSecret:                viper.GetString("JWT_SECRET"),
		JWTIssuer:                viper.GetString("JWT_ISSUER"),
		CORSAllowedOrigins:       splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimit:                viper.GetString("RATE_LIMIT"),
		CloseRequiresZeroBalance: viper.GetBool("CLOSE_REQUIRES_ZERO_BALANCE"),
		LTVCronSpec:              viper.GetString("LTV_CRON_SPEC"),
		AuditDBEnabled:           viper.GetBool("AUDIT_DB_ENABLED"),
		PosthogAPIKey:            viper.GetString("POSTHOG_API_KEY"),
		PosthogEndpoint:          viper.GetString("POSTHOG_ENDPOINT"),
		NATSURL:                  viper.GetString("NATS_URL"),
		NATSSubjectPrefix:        viper.GetString("NATS_SUBJECT_PREFIX"),
		MetricsEnabled:           viper.GetBool("METRICS_ENABLED"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case StorageDriverMemory:
		log.Println("Warning: STORAGE_DRIVER=memory, data is not persisted.")
	default:
		log.Printf("Warning: Unknown STORAGE_DRIVER ('%s'). Defaulting to %s.\n", cfg.StorageDriver, StorageDriverPostgres)
		cfg.StorageDriver = StorageDriverPostgres
	}

	if cfg.DBMaxConns <= 0 {
		log.Printf("Warning: Invalid value for DB_MAX_CONNS (%d). Defaulting to 10.\n", cfg.DBMaxConns)
		cfg.DBMaxConns = 10
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	thresholdStr := viper.GetString("LTV_ALERT_THRESHOLD")
	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil || threshold.IsNegative() {
		threshold = decimal.NewFromInt(80)
		log.Printf("Warning: Invalid value for LTV_ALERT_THRESHOLD ('%s'). Defaulting to %s.\n", thresholdStr, threshold.String())
	}
	cfg.LTVAlertThreshold = threshold

	if cfg.RateLimit == "" {
		cfg.RateLimit = "300-M"
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
