package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ilmiyplatform/ms-go-billing/app/click"
	"github.com/ilmiyplatform/ms-go-billing/app/entity"
	"github.com/ilmiyplatform/ms-go-billing/app/repository"
	"github.com/ilmiyplatform/ms-go-billing/app/types"
	"github.com/ilmiyplatform/ms-go-billing/config"
)

const (
	defaultBatchSize = int32(100)
	defaultCurrency  = "UZS"
)

type transactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	FindByID(ctx context.Context, id string) (*entity.Transaction, error)
	List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error)
	StampClickTransID(ctx context.Context, id, clickTransID string) error
	Complete(ctx context.Context, id, clickPaydocID string, completedAt time.Time) (bool, error)
	Fail(ctx context.Context, id string, errorCode int32, errorNote string) (bool, error)
	Cancel(ctx context.Context, id, note string) (bool, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Transaction, error)
}

type transactionEventRepository interface {
	Create(ctx context.Context, event *entity.TransactionEvent) error
}

type callbackLogRepository interface {
	Create(ctx context.Context, log *entity.CallbackLog) error
}

type merchantClient interface {
	PaymentURL(creds click.Credentials, amount decimal.Decimal, merchantTransID, returnURL string) string
	CreateInvoice(ctx context.Context, creds click.Credentials, amount decimal.Decimal, phoneNumber, merchantTransID string) (json.RawMessage, error)
	PaymentStatusByMTI(ctx context.Context, creds click.Credentials, merchantTransID, date string) (json.RawMessage, error)
	RequestCardToken(ctx context.Context, creds click.Credentials, cardNumber, expireDate string, temporary bool) (json.RawMessage, error)
	VerifyCardToken(ctx context.Context, creds click.Credentials, cardToken, smsCode string) (json.RawMessage, error)
	PayWithCardToken(ctx context.Context, creds click.Credentials, cardToken string, amount decimal.Decimal, merchantTransID string) (json.RawMessage, error)
}

type BillingService struct {
	txRepo       transactionRepository
	eventRepo    transactionEventRepository
	callbackRepo callbackLogRepository
	resolver     *click.Resolver
	client       merchantClient
	billingCfg   config.BillingConfig
}

func NewBillingService(
	txRepo transactionRepository,
	eventRepo transactionEventRepository,
	callbackRepo callbackLogRepository,
	resolver *click.Resolver,
	client merchantClient,
	billingCfg config.BillingConfig,
) *BillingService {
	return &BillingService{
		txRepo:       txRepo,
		eventRepo:    eventRepo,
		callbackRepo: callbackRepo,
		resolver:     resolver,
		client:       client,
		billingCfg:   billingCfg,
	}
}

func (s *BillingService) CreateTransaction(ctx context.Context, req *types.CreateTransactionRequest) (*entity.Transaction, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if !entity.IsValidServiceType(req.ServiceType) {
		return nil, ErrInvalidRequest
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	now := time.Now().UTC()
	tx := &entity.Transaction{
		ID:                   uuid.NewString(),
		UserID:               strings.TrimSpace(req.UserID),
		ArticleID:            normalizeOptionalString(req.ArticleID),
		TranslationRequestID: normalizeOptionalString(req.TranslationRequestID),
		Amount:               amount,
		Currency:             currency,
		ServiceType:          req.ServiceType,
		Status:               entity.StatusPending,
		CreatedAt:            now,
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrTransactionAlreadyExists) {
			return nil, ErrTransactionAlreadyExists
		}
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
		TransactionID: tx.ID,
		EventType:     "transaction_created",
		NewStatus:     tx.Status,
		CreatedAt:     now,
	})

	return tx, nil
}

func (s *BillingService) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	tx, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *BillingService) ListTransactions(ctx context.Context, req *types.ListTransactionsRequest) ([]*entity.Transaction, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultBatchSize
	}

	filter := repository.TransactionFilter{
		UserID:      strings.TrimSpace(req.UserID),
		ServiceType: strings.TrimSpace(req.ServiceType),
		HasStatus:   req.HasStatus,
		Status:      req.Status,
		Limit:       limit,
		Offset:      req.Offset,
	}

	return s.txRepo.List(ctx, filter)
}

// PaymentURL builds the hosted Click payment page link for a transaction.
func (s *BillingService) PaymentURL(ctx context.Context, req *types.PaymentURLRequest) (string, error) {
	tx, err := s.GetTransaction(ctx, req.ID)
	if err != nil {
		return "", err
	}
	if entity.IsTerminalStatus(tx.Status) {
		return "", ErrInvalidStatus
	}

	creds := s.resolver.ByServiceType(tx.ServiceType)
	return s.client.PaymentURL(creds, tx.Amount, tx.ID, req.ReturnURL), nil
}

// CreateInvoice asks Click to push an invoice to the payer's phone. The
// provider's JSON answer is returned unmodified.
func (s *BillingService) CreateInvoice(ctx context.Context, req *types.CreateInvoiceRequest) (json.RawMessage, error) {
	tx, err := s.GetTransaction(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if entity.IsTerminalStatus(tx.Status) {
		return nil, ErrInvalidStatus
	}

	creds := s.resolver.ByServiceType(tx.ServiceType)
	return s.client.CreateInvoice(ctx, creds, tx.Amount, req.PhoneNumber, tx.ID)
}

func (s *BillingService) RequestCardToken(ctx context.Context, req *types.RequestCardTokenRequest) (json.RawMessage, error) {
	creds := s.resolver.ByServiceType(req.ServiceType)
	return s.client.RequestCardToken(ctx, creds, req.CardNumber, req.ExpireDate, true)
}

func (s *BillingService) VerifyCardToken(ctx context.Context, req *types.VerifyCardTokenRequest) (json.RawMessage, error) {
	creds := s.resolver.ByServiceType(req.ServiceType)
	return s.client.VerifyCardToken(ctx, creds, req.CardToken, req.SMSCode)
}

// PayWithCardToken charges a verified card token for a transaction. A
// provider-confirmed charge settles the local transaction with the returned
// payment id as settlement evidence.
func (s *BillingService) PayWithCardToken(ctx context.Context, req *types.PayWithCardTokenRequest) (json.RawMessage, error) {
	tx, err := s.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status == entity.StatusCompleted {
		return nil, ErrInvalidStatus
	}

	creds := s.resolver.ByServiceType(tx.ServiceType)
	raw, err := s.client.PayWithCardToken(ctx, creds, req.CardToken, tx.Amount, tx.ID)
	if err != nil {
		return nil, err
	}

	var result struct {
		ErrorCode int32       `json:"error_code"`
		PaymentID json.Number `json:"payment_id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return raw, nil
	}

	if result.ErrorCode == 0 && result.PaymentID.String() != "" {
		now := time.Now().UTC()
		paymentID := result.PaymentID.String()
		if err := s.txRepo.StampClickTransID(ctx, tx.ID, paymentID); err != nil {
			return raw, err
		}
		applied, err := s.txRepo.Complete(ctx, tx.ID, paymentID, now)
		if err != nil {
			return raw, err
		}
		if applied {
			oldStatus := tx.Status
			_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
				TransactionID: tx.ID,
				EventType:     "card_token_payment",
				OldStatus:     &oldStatus,
				NewStatus:     entity.StatusCompleted,
				ClickTransID:  &paymentID,
				CreatedAt:     now,
			})
		}
	}

	return raw, nil
}

// findTransaction treats malformed merchant references as not found; Click
// retries with whatever reference it was given, so a bad UUID must never
// surface as an internal error.
func (s *BillingService) findTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return s.txRepo.FindByID(ctx, id)
}

func (s *BillingService) batchSize() int32 {
	if s.billingCfg.JobBatchSize > 0 {
		return s.billingCfg.JobBatchSize
	}
	return defaultBatchSize
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
