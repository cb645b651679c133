package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ilmiyplatform/ms-go-billing/app/entity"
)

var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
)

type TransactionFilter struct {
	UserID      string
	ServiceType string
	HasStatus   bool
	Status      string
	Limit       int32
	Offset      int32
}

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, article_id, translation_request_id,
			amount, currency, service_type, status,
			click_trans_id, click_paydoc_id, error_code, error_note,
			created_at, completed_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, user_id, article_id, translation_request_id,
			amount, currency, service_type, status,
			click_trans_id, click_paydoc_id, error_code, error_note,
			created_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		nullableStringValue(tx.ArticleID),
		nullableStringValue(tx.TranslationRequestID),
		tx.Amount.StringFixed(2),
		tx.Currency,
		tx.ServiceType,
		tx.Status,
		nullableStringValue(tx.ClickTransID),
		nullableStringValue(tx.ClickPaydocID),
		nullableInt32Value(tx.ErrorCode),
		nullableStringValue(tx.ErrorNote),
		tx.CreatedAt,
		nullableTimeValue(tx.CompletedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransactionAlreadyExists
		}
		return err
	}

	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?
	`

	tx := &entity.Transaction{}
	if err := scanTransaction(r.db.QueryRowContext(ctx, query, id), tx); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter TransactionFilter) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
	`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if strings.TrimSpace(filter.UserID) != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if strings.TrimSpace(filter.ServiceType) != "" {
		conditions = append(conditions, "service_type = ?")
		args = append(args, filter.ServiceType)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Transaction, 0)
	for rows.Next() {
		item := &entity.Transaction{}
		if err := scanTransaction(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// StampClickTransID records the provider transaction id during the prepare
// phase. Completed rows are never touched: a late prepare against a settled
// transaction must not rewrite its provider reference.
func (r *TransactionRepository) StampClickTransID(ctx context.Context, id, clickTransID string) error {
	query := `
		UPDATE transactions
		SET click_trans_id = ?
		WHERE id = ? AND status <> ?
	`

	result, err := r.db.ExecContext(ctx, query, clickTransID, id, entity.StatusCompleted)
	if err != nil {
		return err
	}
	if _, err := result.RowsAffected(); err != nil {
		return err
	}
	return nil
}

// Complete transitions a row to completed if and only if it is still
// pending. The status guard in the WHERE clause is what makes concurrent
// duplicate completes collapse to a single effective write.
func (r *TransactionRepository) Complete(ctx context.Context, id, clickPaydocID string, completedAt time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = ?, click_paydoc_id = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.StatusCompleted, clickPaydocID, completedAt,
		id, entity.StatusPending,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Fail transitions a still-pending row to failed with the provider's error
// code and note. Same status guard as Complete.
func (r *TransactionRepository) Fail(ctx context.Context, id string, errorCode int32, errorNote string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = ?, error_code = ?, error_note = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.StatusFailed, errorCode, errorNote,
		id, entity.StatusPending,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Cancel is only reachable from the expire-pending job, never from
// provider callbacks.
func (r *TransactionRepository) Cancel(ctx context.Context, id, note string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = ?, error_note = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, entity.StatusCancelled, note, id, entity.StatusPending)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *TransactionRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = ? AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	return r.listByQuery(ctx, query, entity.StatusPending, cutoff, limit)
}

func (r *TransactionRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = ?
		  AND click_trans_id IS NOT NULL
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	return r.listByQuery(ctx, query, entity.StatusPending, before, limit)
}

func (r *TransactionRepository) listByQuery(ctx context.Context, query string, args ...interface{}) ([]*entity.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Transaction, 0)
	for rows.Next() {
		item := &entity.Transaction{}
		if err := scanTransaction(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(scan rowScanner, tx *entity.Transaction) error {
	var articleID sql.NullString
	var translationRequestID sql.NullString
	var amountRaw string
	var clickTransID sql.NullString
	var clickPaydocID sql.NullString
	var errorCode sql.NullInt32
	var errorNote sql.NullString
	var completedAt sql.NullTime

	err := scan.Scan(
		&tx.ID,
		&tx.UserID,
		&articleID,
		&translationRequestID,
		&amountRaw,
		&tx.Currency,
		&tx.ServiceType,
		&tx.Status,
		&clickTransID,
		&clickPaydocID,
		&errorCode,
		&errorNote,
		&tx.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return err
	}
	tx.Amount = amount

	tx.ArticleID = stringPtrFromNull(articleID)
	tx.TranslationRequestID = stringPtrFromNull(translationRequestID)
	tx.ClickTransID = stringPtrFromNull(clickTransID)
	tx.ClickPaydocID = stringPtrFromNull(clickPaydocID)
	tx.ErrorCode = int32PtrFromNull(errorCode)
	tx.ErrorNote = stringPtrFromNull(errorNote)
	tx.CompletedAt = timePtrFromNull(completedAt)

	return nil
}
