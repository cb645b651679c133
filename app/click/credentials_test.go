package click

import (
	"testing"

	"github.com/ilmiyplatform/ms-go-billing/config"
)

func testClickConfig() config.ClickConfig {
	return config.ClickConfig{
		Default: config.ClickCredentials{
			MerchantID:     "m-1",
			ServiceID:      "82154",
			SecretKey:      "default-secret",
			MerchantUserID: "u-1",
		},
		Services: map[string]config.ClickCredentials{
			"89248": {
				MerchantID:     "m-2",
				ServiceID:      "89248",
				SecretKey:      "translation-secret",
				MerchantUserID: "u-2",
			},
		},
		ServiceTypes: map[string]string{
			"publication_fee": "82154",
			"translation":     "89248",
		},
	}
}

func TestNewResolverRequiresDefaultTuple(t *testing.T) {
	cfg := testClickConfig()
	cfg.Default.SecretKey = ""

	if _, err := NewResolver(cfg); err == nil {
		t.Fatal("expected error when default secret key is missing")
	}

	cfg = testClickConfig()
	cfg.Default.ServiceID = ""
	if _, err := NewResolver(cfg); err == nil {
		t.Fatal("expected error when default service id is missing")
	}
}

func TestResolverByServiceID(t *testing.T) {
	resolver, err := NewResolver(testClickConfig())
	if err != nil {
		t.Fatalf("new resolver failed: %v", err)
	}

	creds := resolver.ByServiceID("89248")
	if creds.SecretKey != "translation-secret" {
		t.Fatalf("expected dedicated tuple, got secret %q", creds.SecretKey)
	}

	creds = resolver.ByServiceID(" 89248 ")
	if creds.SecretKey != "translation-secret" {
		t.Fatalf("expected whitespace-tolerant lookup, got secret %q", creds.SecretKey)
	}

	creds = resolver.ByServiceID("99999")
	if creds.SecretKey != "default-secret" {
		t.Fatalf("expected fallback to default tuple, got secret %q", creds.SecretKey)
	}
}

func TestResolverByServiceType(t *testing.T) {
	resolver, err := NewResolver(testClickConfig())
	if err != nil {
		t.Fatalf("new resolver failed: %v", err)
	}

	creds := resolver.ByServiceType("translation")
	if creds.ServiceID != "89248" || creds.SecretKey != "translation-secret" {
		t.Fatalf("unexpected tuple for translation: %+v", creds)
	}

	// publication_fee maps to the default service id, which has no dedicated
	// tuple, so the default credentials apply.
	creds = resolver.ByServiceType("publication_fee")
	if creds.SecretKey != "default-secret" {
		t.Fatalf("unexpected tuple for publication_fee: %+v", creds)
	}

	creds = resolver.ByServiceType("unknown-label")
	if creds.SecretKey != "default-secret" {
		t.Fatalf("expected default tuple for unknown label, got %+v", creds)
	}
}
