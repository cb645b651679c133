package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ilmiyplatform/ms-go-billing/app/click"
	"github.com/ilmiyplatform/ms-go-billing/app/entity"
	"github.com/ilmiyplatform/ms-go-billing/app/types"
)

// Deviations within one tiyin are accepted; Click stringifies amounts
// inconsistently (50000 vs 50000.00) across its push variants.
var amountTolerance = decimal.New(1, -2)

// HandleClickPrepare processes the first phase of Click's two-phase push.
// It always returns a well-formed response: Click retries indefinitely on
// transport failures, so every internal error is reported as the protocol's
// system-error code instead.
func (s *BillingService) HandleClickPrepare(ctx context.Context, req *types.ClickCallbackRequest) *types.ClickPrepareResponse {
	if req.ClickTransID == "" || req.ServiceID == "" || req.MerchantTransID == "" ||
		req.Amount == "" || req.Action == "" || req.SignTime == "" {
		s.recordCallback(ctx, nil, entity.CallbackPhasePrepare, req, entity.CallbackLogRejected, "missing required fields")
		return &types.ClickPrepareResponse{Error: types.ClickErrorMissingFields, ErrorNote: "Missing required fields"}
	}

	creds := s.resolver.ByServiceID(req.ServiceID)
	expected := click.SignPrepare(creds.SecretKey,
		req.ClickTransID, req.ServiceID, req.MerchantTransID, req.Amount, req.Action, req.SignTime)
	if !click.VerifySignature(expected, req.SignString) {
		s.recordCallback(ctx, nil, entity.CallbackPhasePrepare, req, entity.CallbackLogRejected, "invalid signature")
		return &types.ClickPrepareResponse{Error: types.ClickErrorInvalidSignature, ErrorNote: "Invalid signature"}
	}

	tx, err := s.findTransaction(ctx, req.MerchantTransID)
	if err != nil {
		return s.prepareSystemError(ctx, req)
	}
	if tx == nil {
		s.recordCallback(ctx, nil, entity.CallbackPhasePrepare, req, entity.CallbackLogRejected, "transaction not found")
		return &types.ClickPrepareResponse{Error: types.ClickErrorTransactionNotFound, ErrorNote: "Transaction not found"}
	}

	claimed, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || claimed.Sub(tx.Amount).Abs().GreaterThan(amountTolerance) {
		s.recordCallback(ctx, &tx.ID, entity.CallbackPhasePrepare, req, entity.CallbackLogRejected, "amount mismatch")
		return &types.ClickPrepareResponse{Error: types.ClickErrorInvalidAmount, ErrorNote: "Invalid amount"}
	}

	response := &types.ClickPrepareResponse{
		ClickTransID:      req.ClickTransIDInt(),
		MerchantTransID:   req.MerchantTransID,
		MerchantPrepareID: tx.ID,
		Error:             types.ClickErrorSuccess,
		ErrorNote:         "Success",
	}

	// A prepare replayed against a settled transaction is acknowledged
	// without touching the row.
	if tx.Status == entity.StatusCompleted {
		s.recordCallback(ctx, &tx.ID, entity.CallbackPhasePrepare, req, entity.CallbackLogProcessed, "replay of completed transaction")
		return response
	}

	if err := s.txRepo.StampClickTransID(ctx, tx.ID, req.ClickTransID); err != nil {
		return s.prepareSystemError(ctx, req)
	}

	now := time.Now().UTC()
	clickTransID := req.ClickTransID
	_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
		TransactionID: tx.ID,
		EventType:     "click_prepared",
		NewStatus:     entity.StatusPending,
		ClickTransID:  &clickTransID,
		CreatedAt:     now,
	})
	s.recordCallback(ctx, &tx.ID, entity.CallbackPhasePrepare, req, entity.CallbackLogProcessed, "")

	return response
}

// HandleClickComplete processes the second phase. A success outcome settles
// the transaction only when Click supplies the payment document id; the
// document is the evidence of an actually settled payment, and a success
// signal without it leaves the transaction pending.
func (s *BillingService) HandleClickComplete(ctx context.Context, req *types.ClickCallbackRequest) *types.ClickCompleteResponse {
	if req.ClickTransID == "" || req.MerchantTransID == "" || req.SignTime == "" {
		s.recordCallback(ctx, nil, entity.CallbackPhaseComplete, req, entity.CallbackLogRejected, "missing required fields")
		return &types.ClickCompleteResponse{Error: types.ClickErrorMissingFields, ErrorNote: "Missing required fields"}
	}

	creds := s.resolver.ByServiceID(req.ServiceID)
	expected := click.SignComplete(creds.SecretKey,
		req.ClickTransID, req.MerchantTransID, req.MerchantPrepareID, req.Error, req.SignTime)
	if !click.VerifySignature(expected, req.SignString) {
		s.recordCallback(ctx, nil, entity.CallbackPhaseComplete, req, entity.CallbackLogRejected, "invalid signature")
		return &types.ClickCompleteResponse{Error: types.ClickErrorInvalidSignature, ErrorNote: "Invalid signature"}
	}

	tx, err := s.findTransaction(ctx, req.MerchantTransID)
	if err != nil {
		return s.completeSystemError(ctx, req)
	}
	if tx == nil {
		s.recordCallback(ctx, nil, entity.CallbackPhaseComplete, req, entity.CallbackLogRejected, "transaction not found")
		return &types.ClickCompleteResponse{Error: types.ClickErrorTransactionNotFound, ErrorNote: "Transaction not found"}
	}

	outcome, err := parseOutcomeCode(req.Error)
	if err != nil {
		return s.completeSystemError(ctx, req)
	}

	now := time.Now().UTC()
	clickTransID := req.ClickTransID

	switch {
	case outcome == 0 && req.ClickPaydocID != "":
		applied, err := s.txRepo.Complete(ctx, tx.ID, req.ClickPaydocID, now)
		if err != nil {
			return s.completeSystemError(ctx, req)
		}
		if applied {
			oldStatus := tx.Status
			_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
				TransactionID: tx.ID,
				EventType:     "click_completed",
				OldStatus:     &oldStatus,
				NewStatus:     entity.StatusCompleted,
				ClickTransID:  &clickTransID,
				CreatedAt:     now,
			})
			s.recordCallback(ctx, &tx.ID, entity.CallbackPhaseComplete, req, entity.CallbackLogProcessed, "")
		} else {
			// Lost the race or already settled; the replay is
			// acknowledged without a second write.
			s.recordCallback(ctx, &tx.ID, entity.CallbackPhaseComplete, req, entity.CallbackLogProcessed, "replay of settled transaction")
		}

	case outcome == 0:
		// Success signal without the settlement document: not a real
		// payment yet, the transaction stays pending.
		s.recordCallback(ctx, &tx.ID, entity.CallbackPhaseComplete, req, entity.CallbackLogProcessed, "success without paydoc id, awaiting settlement")

	default:
		errorNote := strings.TrimSpace(req.ErrorNote)
		if errorNote == "" {
			errorNote = "Payment failed"
		}
		applied, err := s.txRepo.Fail(ctx, tx.ID, outcome, errorNote)
		if err != nil {
			return s.completeSystemError(ctx, req)
		}
		if applied {
			oldStatus := tx.Status
			_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
				TransactionID: tx.ID,
				EventType:     "click_failed",
				OldStatus:     &oldStatus,
				NewStatus:     entity.StatusFailed,
				ClickTransID:  &clickTransID,
				CreatedAt:     now,
			})
		}
		s.recordCallback(ctx, &tx.ID, entity.CallbackPhaseComplete, req, entity.CallbackLogProcessed, "")
	}

	return &types.ClickCompleteResponse{
		ClickTransID:      req.ClickTransIDInt(),
		MerchantTransID:   req.MerchantTransID,
		MerchantConfirmID: tx.ID,
		Error:             types.ClickErrorSuccess,
		ErrorNote:         "Success",
	}
}

func (s *BillingService) prepareSystemError(ctx context.Context, req *types.ClickCallbackRequest) *types.ClickPrepareResponse {
	s.recordCallback(ctx, nil, entity.CallbackPhasePrepare, req, entity.CallbackLogRejected, "system error")
	return &types.ClickPrepareResponse{Error: types.ClickErrorSystemError, ErrorNote: "System error"}
}

func (s *BillingService) completeSystemError(ctx context.Context, req *types.ClickCallbackRequest) *types.ClickCompleteResponse {
	s.recordCallback(ctx, nil, entity.CallbackPhaseComplete, req, entity.CallbackLogRejected, "system error")
	return &types.ClickCompleteResponse{Error: types.ClickErrorSystemError, ErrorNote: "System error"}
}

func (s *BillingService) recordCallback(
	ctx context.Context,
	transactionID *string,
	phase string,
	req *types.ClickCallbackRequest,
	status int32,
	reason string,
) {
	now := time.Now().UTC()
	log := &entity.CallbackLog{
		TransactionID: transactionID,
		Phase:         phase,
		ClickTransID:  strings.TrimSpace(req.ClickTransID),
		PayloadJSON:   req.RawPayload,
		Status:        status,
		CreatedAt:     now,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		trimmed := truncate(reason, 1024)
		log.Error = &trimmed
	}
	_ = s.callbackRepo.Create(ctx, log)
}

// parseOutcomeCode reads Click's error field; an absent field counts as the
// success sentinel, matching the signing rules.
func parseOutcomeCode(raw string) (int32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	code, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(code), nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
