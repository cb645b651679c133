package click

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ilmiyplatform/ms-go-billing/config"
)

func testCreds() Credentials {
	return Credentials{
		MerchantID:     "m-1",
		ServiceID:      "82154",
		SecretKey:      "test-secret",
		MerchantUserID: "42",
	}
}

func newTestClient(serverURL string) *Client {
	return NewClient(config.ClickConfig{
		APIBaseURL:  serverURL,
		PayBaseURL:  "https://my.click.uz/services/pay",
		HTTPTimeout: 2 * time.Second,
	})
}

func TestPaymentURL(t *testing.T) {
	client := newTestClient("https://api.example")
	amount := decimal.RequireFromString("50000")

	raw := client.PaymentURL(testCreds(), amount, "tx-1", "https://platform.example/return")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("payment url is not parseable: %v", err)
	}
	if !strings.HasPrefix(raw, "https://my.click.uz/services/pay?") {
		t.Fatalf("unexpected payment url base: %q", raw)
	}

	query := parsed.Query()
	if query.Get("service_id") != "82154" {
		t.Fatalf("unexpected service_id: %q", query.Get("service_id"))
	}
	if query.Get("merchant_id") != "m-1" {
		t.Fatalf("unexpected merchant_id: %q", query.Get("merchant_id"))
	}
	if query.Get("amount") != "50000.00" {
		t.Fatalf("unexpected amount: %q", query.Get("amount"))
	}
	if query.Get("transaction_param") != "tx-1" {
		t.Fatalf("unexpected transaction_param: %q", query.Get("transaction_param"))
	}
	if query.Get("return_url") != "https://platform.example/return" {
		t.Fatalf("unexpected return_url: %q", query.Get("return_url"))
	}
}

func TestPaymentURLOmitsEmptyReturnURL(t *testing.T) {
	client := newTestClient("https://api.example")

	raw := client.PaymentURL(testCreds(), decimal.RequireFromString("100"), "tx-1", "")
	if strings.Contains(raw, "return_url") {
		t.Fatalf("expected no return_url parameter, got %q", raw)
	}
}

func TestCreateInvoiceSendsAuthHeaderAndPassesThroughResponse(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/invoice/create" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Auth")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error_code":0,"invoice_id":991}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	raw, err := client.CreateInvoice(context.Background(), testCreds(), decimal.RequireFromString("50000"), "+998901234567", "tx-1")
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}

	parts := strings.Split(gotAuth, ":")
	if len(parts) != 3 || parts[0] != "42" || len(parts[1]) != 40 {
		t.Fatalf("malformed auth header: %q", gotAuth)
	}
	if gotBody["service_id"] != "82154" || gotBody["merchant_trans_id"] != "tx-1" {
		t.Fatalf("unexpected request body: %v", gotBody)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(raw, &response); err != nil {
		t.Fatalf("response is not raw provider JSON: %v", err)
	}
	if response["invoice_id"] != float64(991) {
		t.Fatalf("unexpected passthrough response: %v", response)
	}
}

func TestRequestCardTokenOmitsAuthHeader(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Auth") != ""
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error_code":0,"card_token":"tok-1"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.RequestCardToken(context.Background(), testCreds(), "8600000000000000", "0929", true); err != nil {
		t.Fatalf("request card token failed: %v", err)
	}
	if sawAuth {
		t.Fatal("card token request must not carry the Auth header")
	}
}

func TestClientErrorOnHTTPFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "merchant not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.PaymentStatus(context.Background(), testCreds(), "123"); err == nil {
		t.Fatal("expected error for HTTP failure status")
	}
}
