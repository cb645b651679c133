package click

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ilmiyplatform/ms-go-billing/config"
)

// Client talks to the Click merchant API. Calls are synchronous and
// best-effort; callers apply their own retry policy. Provider responses are
// passed through as raw JSON.
type Client struct {
	apiBaseURL string
	payBaseURL string
	httpClient *http.Client
}

func NewClient(cfg config.ClickConfig) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		payBaseURL: strings.TrimRight(cfg.PayBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PaymentURL builds the hosted payment page URL the user is redirected to.
func (c *Client) PaymentURL(creds Credentials, amount decimal.Decimal, merchantTransID, returnURL string) string {
	values := url.Values{}
	values.Set("service_id", creds.ServiceID)
	values.Set("merchant_id", creds.MerchantID)
	values.Set("amount", amount.StringFixed(2))
	values.Set("transaction_param", merchantTransID)
	if strings.TrimSpace(returnURL) != "" {
		values.Set("return_url", returnURL)
	}
	return c.payBaseURL + "?" + values.Encode()
}

func (c *Client) CreateInvoice(ctx context.Context, creds Credentials, amount decimal.Decimal, phoneNumber, merchantTransID string) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"service_id":        creds.ServiceID,
		"amount":            amount.InexactFloat64(),
		"phone_number":      phoneNumber,
		"merchant_trans_id": merchantTransID,
	}
	return c.doJSON(ctx, http.MethodPost, "/invoice/create", creds, payload)
}

func (c *Client) InvoiceStatus(ctx context.Context, creds Credentials, invoiceID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/invoice/status/%s/%s", url.PathEscape(creds.ServiceID), url.PathEscape(invoiceID))
	return c.doJSON(ctx, http.MethodGet, path, creds, nil)
}

func (c *Client) PaymentStatus(ctx context.Context, creds Credentials, paymentID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/payment/status/%s/%s", url.PathEscape(creds.ServiceID), url.PathEscape(paymentID))
	return c.doJSON(ctx, http.MethodGet, path, creds, nil)
}

// PaymentStatusByMTI queries payment status by the merchant transaction id
// and payment date (YYYY-MM-DD).
func (c *Client) PaymentStatusByMTI(ctx context.Context, creds Credentials, merchantTransID, date string) (json.RawMessage, error) {
	path := fmt.Sprintf("/payment/status_by_mti/%s/%s/%s",
		url.PathEscape(creds.ServiceID), url.PathEscape(merchantTransID), url.PathEscape(date))
	return c.doJSON(ctx, http.MethodGet, path, creds, nil)
}

func (c *Client) ReversePayment(ctx context.Context, creds Credentials, paymentID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/payment/reversal/%s/%s", url.PathEscape(creds.ServiceID), url.PathEscape(paymentID))
	return c.doJSON(ctx, http.MethodDelete, path, creds, nil)
}

// RequestCardToken is the one merchant API call Click accepts without the
// Auth header.
func (c *Client) RequestCardToken(ctx context.Context, creds Credentials, cardNumber, expireDate string, temporary bool) (json.RawMessage, error) {
	temporaryFlag := 0
	if temporary {
		temporaryFlag = 1
	}
	payload := map[string]interface{}{
		"service_id":  creds.ServiceID,
		"card_number": cardNumber,
		"expire_date": expireDate,
		"temporary":   temporaryFlag,
	}
	return c.do(ctx, http.MethodPost, "/card_token/request", "", payload)
}

func (c *Client) VerifyCardToken(ctx context.Context, creds Credentials, cardToken, smsCode string) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"service_id": creds.ServiceID,
		"card_token": cardToken,
		"sms_code":   smsCode,
	}
	return c.doJSON(ctx, http.MethodPost, "/card_token/verify", creds, payload)
}

func (c *Client) PayWithCardToken(ctx context.Context, creds Credentials, cardToken string, amount decimal.Decimal, merchantTransID string) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"service_id":        creds.ServiceID,
		"card_token":        cardToken,
		"amount":            amount.InexactFloat64(),
		"merchant_trans_id": merchantTransID,
	}
	return c.doJSON(ctx, http.MethodPost, "/card_token/payment", creds, payload)
}

func (c *Client) DeleteCardToken(ctx context.Context, creds Credentials, cardToken string) (json.RawMessage, error) {
	path := fmt.Sprintf("/card_token/%s/%s", url.PathEscape(creds.ServiceID), url.PathEscape(cardToken))
	return c.doJSON(ctx, http.MethodDelete, path, creds, nil)
}

type ReceiptItem struct {
	Name            string  `json:"name"`
	Count           int     `json:"count"`
	Price           float64 `json:"price"`
	Total           float64 `json:"total"`
	PaymentItemType int     `json:"payment_item_type"`
	TaxType         int     `json:"tax_type"`
}

// SendReceipt submits a fiscalization receipt to the tax authority through
// Click.
func (c *Client) SendReceipt(ctx context.Context, creds Credentials, transactionID string, amount decimal.Decimal, phoneNumber, email string, items []ReceiptItem) (json.RawMessage, error) {
	if len(items) == 0 {
		items = []ReceiptItem{{
			Name:            "Publication Service",
			Count:           1,
			Price:           amount.InexactFloat64(),
			Total:           amount.InexactFloat64(),
			PaymentItemType: 1,
			TaxType:         1,
		}}
	}

	payload := map[string]interface{}{
		"transaction_id": transactionID,
		"service_id":     creds.ServiceID,
		"amount":         amount.InexactFloat64(),
		"phone_number":   phoneNumber,
		"items":          items,
	}
	if strings.TrimSpace(email) != "" {
		payload["email"] = email
	}
	return c.doJSON(ctx, http.MethodPost, "/receipt/send", creds, payload)
}

func (c *Client) ReceiptStatus(ctx context.Context, creds Credentials, receiptID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/receipt/status/%s", url.PathEscape(receiptID))
	return c.doJSON(ctx, http.MethodGet, path, creds, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, creds Credentials, payload interface{}) (json.RawMessage, error) {
	return c.do(ctx, method, path, AuthHeader(creds, time.Now()), payload)
}

func (c *Client) do(ctx context.Context, method, path, authHeader string, payload interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Auth", authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("click request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return json.RawMessage(body), nil
}
