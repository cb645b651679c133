package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ilmiyplatform/ms-go-billing/app/entity"
)

func TestRunExpirePendingBatchCancelsStaleTransactions(t *testing.T) {
	repo := newServiceTxRepo()
	stale := seedPendingTransaction(repo, "50000")
	repo.transactions[stale.ID].CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	fresh := seedPendingTransaction(repo, "50000")
	eventRepo := &serviceEventRepo{}
	svc := newBillingServiceForTest(t, repo, eventRepo, &serviceCallbackRepo{}, &serviceMerchantClient{})

	if err := svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("expire batch failed: %v", err)
	}

	if repo.transactions[stale.ID].Status != entity.StatusCancelled {
		t.Fatalf("expected stale transaction cancelled, got %q", repo.transactions[stale.ID].Status)
	}
	if repo.transactions[fresh.ID].Status != entity.StatusPending {
		t.Fatalf("expected fresh transaction untouched, got %q", repo.transactions[fresh.ID].Status)
	}
	if len(eventRepo.events) != 1 || eventRepo.events[0].EventType != "transaction_expired" {
		t.Fatalf("expected transaction_expired event, got %+v", eventRepo.events)
	}
}

func TestRunReconcileBatchSettlesConfirmedPayment(t *testing.T) {
	repo := newServiceTxRepo()
	tx := seedPendingTransaction(repo, "50000")
	clickID := "1234567"
	repo.transactions[tx.ID].ClickTransID = &clickID
	repo.transactions[tx.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	eventRepo := &serviceEventRepo{}
	svc := newBillingServiceForTest(t, repo, eventRepo, &serviceCallbackRepo{}, &serviceMerchantClient{
		paymentStatusRaw: json.RawMessage(`{"error_code":0,"payment_id":889900,"payment_status":2}`),
	})

	if err := svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("reconcile batch failed: %v", err)
	}

	stored := repo.transactions[tx.ID]
	if stored.Status != entity.StatusCompleted {
		t.Fatalf("expected completed status, got %q", stored.Status)
	}
	if stored.ClickPaydocID == nil || *stored.ClickPaydocID != "889900" {
		t.Fatalf("expected stamped paydoc id, got %v", stored.ClickPaydocID)
	}
	if len(eventRepo.events) != 1 || eventRepo.events[0].EventType != "transaction_reconciled" {
		t.Fatalf("expected transaction_reconciled event, got %+v", eventRepo.events)
	}
}

func TestRunReconcileBatchFailsReversedPayment(t *testing.T) {
	repo := newServiceTxRepo()
	tx := seedPendingTransaction(repo, "50000")
	clickID := "1234567"
	repo.transactions[tx.ID].ClickTransID = &clickID
	repo.transactions[tx.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	svc := newBillingServiceForTest(t, repo, &serviceEventRepo{}, &serviceCallbackRepo{}, &serviceMerchantClient{
		paymentStatusRaw: json.RawMessage(`{"error_code":0,"payment_status":-4}`),
	})

	if err := svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("reconcile batch failed: %v", err)
	}

	stored := repo.transactions[tx.ID]
	if stored.Status != entity.StatusFailed {
		t.Fatalf("expected failed status, got %q", stored.Status)
	}
	if stored.ErrorCode == nil || *stored.ErrorCode != -4 {
		t.Fatalf("expected stored error code -4, got %v", stored.ErrorCode)
	}
}

func TestRunReconcileBatchLeavesInFlightPaymentAlone(t *testing.T) {
	repo := newServiceTxRepo()
	tx := seedPendingTransaction(repo, "50000")
	clickID := "1234567"
	repo.transactions[tx.ID].ClickTransID = &clickID
	repo.transactions[tx.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	svc := newBillingServiceForTest(t, repo, &serviceEventRepo{}, &serviceCallbackRepo{}, &serviceMerchantClient{
		paymentStatusRaw: json.RawMessage(`{"error_code":0,"payment_status":1}`),
	})

	if err := svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("reconcile batch failed: %v", err)
	}
	if repo.transactions[tx.ID].Status != entity.StatusPending {
		t.Fatalf("expected pending status, got %q", repo.transactions[tx.ID].Status)
	}
}

func TestRunReconcileBatchReportsFirstProviderError(t *testing.T) {
	repo := newServiceTxRepo()
	tx := seedPendingTransaction(repo, "50000")
	clickID := "1234567"
	repo.transactions[tx.ID].ClickTransID = &clickID
	repo.transactions[tx.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	svc := newBillingServiceForTest(t, repo, &serviceEventRepo{}, &serviceCallbackRepo{}, &serviceMerchantClient{
		paymentStatusErr: context.DeadlineExceeded,
	})

	if err := svc.RunReconcileBatch(context.Background()); err == nil {
		t.Fatal("expected provider error to surface")
	}
	if repo.transactions[tx.ID].Status != entity.StatusPending {
		t.Fatalf("expected pending status, got %q", repo.transactions[tx.ID].Status)
	}
}
