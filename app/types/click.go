package types

import (
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Click numeric error codes (wire contract).
const (
	ClickErrorSuccess             int32 = 0
	ClickErrorInvalidSignature    int32 = -1
	ClickErrorInvalidAmount       int32 = -2
	ClickErrorTransactionNotFound int32 = -5
	ClickErrorMissingFields       int32 = -8
	ClickErrorSystemError         int32 = -9
)

// ClickCallbackRequest carries one prepare or complete push from Click. All
// fields are kept as the exact strings received on the wire: the signature
// is computed over the provider's own formatting, so re-encoding a numeric
// field would break verification.
type ClickCallbackRequest struct {
	ClickTransID      string
	ServiceID         string
	MerchantTransID   string
	MerchantPrepareID string
	Amount            string
	Action            string
	Error             string
	ErrorNote         string
	ClickPaydocID     string
	SignTime          string
	SignString        string

	RawPayload string
}

// NewClickCallbackRequestFromContext parses a Click push body. Click posts
// url-encoded forms; JSON bodies are accepted for parity with the provider's
// sandbox tooling.
func NewClickCallbackRequestFromContext(ctx echo.Context) (*ClickCallbackRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	fields, err := parseCallbackFields(rawBody, contentType)
	if err != nil {
		return nil, err
	}

	return &ClickCallbackRequest{
		ClickTransID:      fields["click_trans_id"],
		ServiceID:         fields["service_id"],
		MerchantTransID:   fields["merchant_trans_id"],
		MerchantPrepareID: fields["merchant_prepare_id"],
		Amount:            fields["amount"],
		Action:            fields["action"],
		Error:             fields["error"],
		ErrorNote:         fields["error_note"],
		ClickPaydocID:     fields["click_paydoc_id"],
		SignTime:          fields["sign_time"],
		SignString:        fields["sign_string"],
		RawPayload:        string(rawBody),
	}, nil
}

func parseCallbackFields(rawBody []byte, contentType string) (map[string]string, error) {
	fields := map[string]string{}

	if strings.Contains(contentType, echo.MIMEApplicationJSON) {
		decoder := json.NewDecoder(strings.NewReader(string(rawBody)))
		// UseNumber keeps numeric fields in the provider's own notation.
		decoder.UseNumber()
		var payload map[string]interface{}
		if err := decoder.Decode(&payload); err != nil {
			return nil, err
		}
		for key, value := range payload {
			fields[key] = stringifyCallbackValue(value)
		}
		return fields, nil
	}

	values, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return nil, err
	}
	for key := range values {
		fields[key] = values.Get(key)
	}
	return fields, nil
}

func stringifyCallbackValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	}
}

// ClickTransIDInt parses click_trans_id for the response payload, where the
// provider expects it as a number.
func (r *ClickCallbackRequest) ClickTransIDInt() int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(r.ClickTransID), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type ClickPrepareResponse struct {
	ClickTransID      int64  `json:"click_trans_id,omitempty"`
	MerchantTransID   string `json:"merchant_trans_id,omitempty"`
	MerchantPrepareID string `json:"merchant_prepare_id,omitempty"`
	Error             int32  `json:"error"`
	ErrorNote         string `json:"error_note"`
}

type ClickCompleteResponse struct {
	ClickTransID      int64  `json:"click_trans_id,omitempty"`
	MerchantTransID   string `json:"merchant_trans_id,omitempty"`
	MerchantConfirmID string `json:"merchant_confirm_id,omitempty"`
	Error             int32  `json:"error"`
	ErrorNote         string `json:"error_note"`
}
