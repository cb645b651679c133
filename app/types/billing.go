package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ilmiyplatform/ms-go-billing/app/entity"
)

type CreateTransactionRequest struct {
	UserID               string `json:"user_id"`
	ArticleID            string `json:"article_id"`
	TranslationRequestID string `json:"translation_request_id"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	ServiceType          string `json:"service_type"`
}

func NewCreateTransactionRequestFromContext(ctx echo.Context) (*CreateTransactionRequest, error) {
	var body CreateTransactionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.UserID = strings.TrimSpace(body.UserID)
	body.ArticleID = strings.TrimSpace(body.ArticleID)
	body.TranslationRequestID = strings.TrimSpace(body.TranslationRequestID)
	body.Amount = strings.TrimSpace(body.Amount)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.ServiceType = strings.TrimSpace(body.ServiceType)

	return &body, nil
}

func (r *CreateTransactionRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if r.Amount == "" {
		return errors.New("amount is required")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if !entity.IsValidServiceType(r.ServiceType) {
		return errors.New("service_type is invalid")
	}
	return nil
}

type GetTransactionRequest struct {
	ID string
}

func NewGetTransactionRequestFromContext(ctx echo.Context) (*GetTransactionRequest, error) {
	return &GetTransactionRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetTransactionRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid transaction id")
	}
	return nil
}

type ListTransactionsRequest struct {
	UserID      string
	ServiceType string
	HasStatus   bool
	Status      string
	Limit       int32
	Offset      int32
}

func NewListTransactionsRequestFromContext(ctx echo.Context) (*ListTransactionsRequest, error) {
	req := &ListTransactionsRequest{
		UserID:      strings.TrimSpace(ctx.QueryParam("user_id")),
		ServiceType: strings.TrimSpace(ctx.QueryParam("service_type")),
		Limit:       100,
		Offset:      0,
	}

	if statusRaw := strings.TrimSpace(ctx.QueryParam("status")); statusRaw != "" {
		req.HasStatus = true
		req.Status = statusRaw
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListTransactionsRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.HasStatus {
		switch r.Status {
		case entity.StatusPending, entity.StatusCompleted, entity.StatusFailed, entity.StatusCancelled:
		default:
			return errors.New("invalid status")
		}
	}
	if r.ServiceType != "" && !entity.IsValidServiceType(r.ServiceType) {
		return errors.New("invalid service_type")
	}
	return nil
}

type PaymentURLRequest struct {
	ID        string
	ReturnURL string
}

func NewPaymentURLRequestFromContext(ctx echo.Context) (*PaymentURLRequest, error) {
	return &PaymentURLRequest{
		ID:        strings.TrimSpace(ctx.Param("id")),
		ReturnURL: strings.TrimSpace(ctx.QueryParam("return_url")),
	}, nil
}

func (r *PaymentURLRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid transaction id")
	}
	return nil
}

type CreateInvoiceRequest struct {
	ID          string
	PhoneNumber string `json:"phone_number"`
}

func NewCreateInvoiceRequestFromContext(ctx echo.Context) (*CreateInvoiceRequest, error) {
	var body CreateInvoiceRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.ID = strings.TrimSpace(ctx.Param("id"))
	body.PhoneNumber = strings.TrimSpace(body.PhoneNumber)
	return &body, nil
}

func (r *CreateInvoiceRequest) Validate() error {
	if r.ID == "" {
		return errors.New("invalid transaction id")
	}
	if r.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	return nil
}

type RequestCardTokenRequest struct {
	CardNumber  string `json:"card_number"`
	ExpireDate  string `json:"expire_date"`
	ServiceType string `json:"service_type"`
}

func NewRequestCardTokenRequestFromContext(ctx echo.Context) (*RequestCardTokenRequest, error) {
	var body RequestCardTokenRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.CardNumber = strings.TrimSpace(body.CardNumber)
	body.ExpireDate = strings.TrimSpace(body.ExpireDate)
	body.ServiceType = strings.TrimSpace(body.ServiceType)
	if body.ServiceType == "" {
		body.ServiceType = entity.ServiceTypePublicationFee
	}
	return &body, nil
}

func (r *RequestCardTokenRequest) Validate() error {
	if r.CardNumber == "" || r.ExpireDate == "" {
		return errors.New("card_number and expire_date are required")
	}
	return nil
}

type VerifyCardTokenRequest struct {
	CardToken   string `json:"card_token"`
	SMSCode     string `json:"sms_code"`
	ServiceType string `json:"service_type"`
}

func NewVerifyCardTokenRequestFromContext(ctx echo.Context) (*VerifyCardTokenRequest, error) {
	var body VerifyCardTokenRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.CardToken = strings.TrimSpace(body.CardToken)
	body.SMSCode = strings.TrimSpace(body.SMSCode)
	body.ServiceType = strings.TrimSpace(body.ServiceType)
	if body.ServiceType == "" {
		body.ServiceType = entity.ServiceTypePublicationFee
	}
	return &body, nil
}

func (r *VerifyCardTokenRequest) Validate() error {
	if r.CardToken == "" || r.SMSCode == "" {
		return errors.New("card_token and sms_code are required")
	}
	return nil
}

type PayWithCardTokenRequest struct {
	CardToken     string `json:"card_token"`
	TransactionID string `json:"transaction_id"`
}

func NewPayWithCardTokenRequestFromContext(ctx echo.Context) (*PayWithCardTokenRequest, error) {
	var body PayWithCardTokenRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.CardToken = strings.TrimSpace(body.CardToken)
	body.TransactionID = strings.TrimSpace(body.TransactionID)
	return &body, nil
}

func (r *PayWithCardTokenRequest) Validate() error {
	if r.CardToken == "" {
		return errors.New("card_token is required")
	}
	if r.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	return nil
}

type Transaction struct {
	ID                   string `json:"id"`
	UserID               string `json:"user_id"`
	ArticleID            string `json:"article_id,omitempty"`
	TranslationRequestID string `json:"translation_request_id,omitempty"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	ServiceType          string `json:"service_type"`
	Status               string `json:"status"`
	ClickTransID         string `json:"click_trans_id,omitempty"`
	ClickPaydocID        string `json:"click_paydoc_id,omitempty"`
	ErrorCode            *int32 `json:"error_code,omitempty"`
	ErrorNote            string `json:"error_note,omitempty"`
	CreatedAt            string `json:"created_at"`
	CompletedAt          string `json:"completed_at,omitempty"`
}

type TransactionEnvelopeResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type PaymentURLResponse struct {
	PaymentURL string `json:"payment_url"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
