package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/billing?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "billing-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "BILLING_PENDING_TIMEOUT_MINUTES", "11")
	setEnv(t, "BILLING_RECONCILE_STALE_AFTER_MINUTES", "13")
	setEnv(t, "BILLING_JOB_BATCH_SIZE", "99")
	setEnv(t, "CLICK_HTTP_TIMEOUT_SECONDS", "7")
	unsetEnv(t, "CLICK_SERVICE_IDS")
	unsetEnv(t, "CLICK_SERVICE_TYPE_MAP")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "billing-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config: %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql lifetime: %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Billing.PendingTimeout != 11*time.Minute {
		t.Fatalf("unexpected pending timeout: %v", cfg.Billing.PendingTimeout)
	}
	if cfg.Billing.ReconcileStaleAfter != 13*time.Minute {
		t.Fatalf("unexpected reconcile stale after: %v", cfg.Billing.ReconcileStaleAfter)
	}
	if cfg.Billing.JobBatchSize != 99 {
		t.Fatalf("unexpected job batch size: %d", cfg.Billing.JobBatchSize)
	}
	if cfg.Click.HTTPTimeout != 7*time.Second {
		t.Fatalf("unexpected click http timeout: %v", cfg.Click.HTTPTimeout)
	}
	if cfg.Click.APIBaseURL != "https://api.click.uz/v2/merchant" {
		t.Fatalf("unexpected click api base url: %s", cfg.Click.APIBaseURL)
	}
}

func TestLoadPerServiceCredentials(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/billing?parseTime=true")
	setEnv(t, "CLICK_SERVICE_IDS", "82154, 89248")
	setEnv(t, "CLICK_MERCHANT_ID_82154", "45730")
	setEnv(t, "CLICK_SECRET_KEY_82154", "secret-a")
	setEnv(t, "CLICK_MERCHANT_USER_ID_82154", "63536")
	setEnv(t, "CLICK_MERCHANT_ID_89248", "45731")
	setEnv(t, "CLICK_SECRET_KEY_89248", "secret-b")
	setEnv(t, "CLICK_MERCHANT_USER_ID_89248", "63537")
	setEnv(t, "CLICK_SERVICE_TYPE_MAP", "review_fee=89248")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	creds, ok := cfg.Click.Services["82154"]
	if !ok {
		t.Fatal("expected credentials for service 82154")
	}
	if creds.MerchantID != "45730" || creds.SecretKey != "secret-a" || creds.ServiceID != "82154" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if cfg.Click.ServiceTypes["review_fee"] != "89248" {
		t.Fatalf("unexpected service type mapping: %+v", cfg.Click.ServiceTypes)
	}
	if cfg.Click.ServiceTypes["publication_fee"] != "82154" {
		t.Fatalf("expected built-in service type mapping to survive overrides")
	}
}

func TestLoadRejectsIncompleteServiceCredentials(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/billing?parseTime=true")
	setEnv(t, "CLICK_SERVICE_IDS", "82155")
	unsetEnv(t, "CLICK_SECRET_KEY_82155")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing per-service secret key")
	}
}
