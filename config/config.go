package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	HTTP    ServerConfig
	MySQL   MySQLConfig
	Log     LogConfig
	Click   ClickConfig
	Billing BillingConfig
	Jobs    JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// ClickCredentials is the merchant credential tuple Click assigns per
// contracted service.
type ClickCredentials struct {
	MerchantID     string
	ServiceID      string
	SecretKey      string
	MerchantUserID string
}

type ClickConfig struct {
	APIBaseURL  string
	PayBaseURL  string
	HTTPTimeout time.Duration

	// Default is used when an incoming service id has no dedicated tuple.
	Default ClickCredentials

	// Services is keyed by Click service id.
	Services map[string]ClickCredentials

	// ServiceTypes maps platform service-type labels to Click service ids.
	ServiceTypes map[string]string
}

type BillingConfig struct {
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

// Platform service types billed through Click. Unknown labels fall back to
// the default tuple at runtime.
var defaultServiceTypeMap = map[string]string{
	"publication_fee":  "82154",
	"top_up":           "82154",
	"fast-track":       "82155",
	"translation":      "89248",
	"book_publication": "89248",
	"language_editing": "89248",
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	clickCfg, err := loadClickConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billing-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Click: clickCfg,
		Billing: BillingConfig{
			PendingTimeout:      getMinutesEnv("BILLING_PENDING_TIMEOUT_MINUTES", 24*60*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("BILLING_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("BILLING_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("BILLING_RECONCILE_INTERVAL_MINUTES", 5*time.Minute),
			ExpirePendingInterval: getMinutesEnv("BILLING_EXPIRE_PENDING_INTERVAL_MINUTES", 15*time.Minute),
		},
	}, nil
}

func loadClickConfig() (ClickConfig, error) {
	cfg := ClickConfig{
		APIBaseURL:  getEnv("CLICK_API_BASE_URL", "https://api.click.uz/v2/merchant"),
		PayBaseURL:  getEnv("CLICK_PAY_BASE_URL", "https://my.click.uz/services/pay"),
		HTTPTimeout: getSecondsEnv("CLICK_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		Default: ClickCredentials{
			MerchantID:     os.Getenv("CLICK_MERCHANT_ID"),
			ServiceID:      os.Getenv("CLICK_SERVICE_ID"),
			SecretKey:      os.Getenv("CLICK_SECRET_KEY"),
			MerchantUserID: os.Getenv("CLICK_MERCHANT_USER_ID"),
		},
		Services:     map[string]ClickCredentials{},
		ServiceTypes: map[string]string{},
	}

	// CLICK_SERVICE_IDS lists the per-service tuples to load, each from
	// CLICK_*_<service_id> variables.
	for _, serviceID := range splitList(os.Getenv("CLICK_SERVICE_IDS")) {
		creds := ClickCredentials{
			MerchantID:     os.Getenv("CLICK_MERCHANT_ID_" + serviceID),
			ServiceID:      serviceID,
			SecretKey:      os.Getenv("CLICK_SECRET_KEY_" + serviceID),
			MerchantUserID: os.Getenv("CLICK_MERCHANT_USER_ID_" + serviceID),
		}
		if creds.SecretKey == "" {
			return ClickConfig{}, errors.New("CLICK_SECRET_KEY_" + serviceID + " environment variable is required")
		}
		cfg.Services[serviceID] = creds
	}

	for label, serviceID := range defaultServiceTypeMap {
		cfg.ServiceTypes[label] = serviceID
	}
	for _, pair := range splitList(os.Getenv("CLICK_SERVICE_TYPE_MAP")) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return ClickConfig{}, errors.New("CLICK_SERVICE_TYPE_MAP entries must be label=service_id")
		}
		cfg.ServiceTypes[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	return cfg, nil
}

func splitList(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
