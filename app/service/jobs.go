package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ilmiyplatform/ms-go-billing/app/entity"
)

// RunExpirePendingBatch cancels transactions that were never paid within the
// configured window. Cancellation is only ever applied here, never from
// provider callbacks.
func (s *BillingService) RunExpirePendingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.billingCfg.PendingTimeout)
	items, err := s.txRepo.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, tx := range items {
		if tx == nil {
			continue
		}

		applied, err := s.txRepo.Cancel(ctx, tx.ID, "payment window expired")
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if !applied {
			continue
		}

		oldStatus := tx.Status
		_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
			TransactionID: tx.ID,
			EventType:     "transaction_expired",
			OldStatus:     &oldStatus,
			NewStatus:     entity.StatusCancelled,
			CreatedAt:     now,
		})
	}

	return firstErr
}

// Click payment_status values: 2 is a confirmed payment, negative values are
// failures or reversals, anything else is still in flight.
type paymentStatusResult struct {
	ErrorCode     int32       `json:"error_code"`
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus int32       `json:"payment_status"`
}

// RunReconcileBatch settles transactions that were prepared but whose
// complete push never arrived, by querying the provider's payment status by
// merchant transaction id.
func (s *BillingService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.billingCfg.ReconcileStaleAfter)
	items, err := s.txRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, tx := range items {
		if tx == nil || tx.ClickTransID == nil || strings.TrimSpace(*tx.ClickTransID) == "" {
			continue
		}

		creds := s.resolver.ByServiceType(tx.ServiceType)
		raw, err := s.client.PaymentStatusByMTI(ctx, creds, tx.ID, tx.CreatedAt.UTC().Format("2006-01-02"))
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		var result paymentStatusResult
		if err := json.Unmarshal(raw, &result); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if result.ErrorCode != 0 {
			continue
		}

		switch {
		case result.PaymentStatus == 2 && result.PaymentID.String() != "":
			applied, err := s.txRepo.Complete(ctx, tx.ID, result.PaymentID.String(), now)
			if err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
			if applied {
				oldStatus := tx.Status
				_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
					TransactionID: tx.ID,
					EventType:     "transaction_reconciled",
					OldStatus:     &oldStatus,
					NewStatus:     entity.StatusCompleted,
					ClickTransID:  tx.ClickTransID,
					CreatedAt:     now,
				})
			}

		case result.PaymentStatus < 0:
			applied, err := s.txRepo.Fail(ctx, tx.ID, result.PaymentStatus, "payment failed or reversed at provider")
			if err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
			if applied {
				oldStatus := tx.Status
				_ = s.eventRepo.Create(ctx, &entity.TransactionEvent{
					TransactionID: tx.ID,
					EventType:     "transaction_reconciled",
					OldStatus:     &oldStatus,
					NewStatus:     entity.StatusFailed,
					ClickTransID:  tx.ClickTransID,
					CreatedAt:     now,
				})
			}
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
