package repository

import (
	"context"

	"github.com/ilmiyplatform/ms-go-billing/app/entity"
)

type CallbackLogRepository struct {
	db DBTX
}

func NewCallbackLogRepository(db DBTX) *CallbackLogRepository {
	return &CallbackLogRepository{db: db}
}

func (r *CallbackLogRepository) Create(ctx context.Context, log *entity.CallbackLog) error {
	query := `
		INSERT INTO callback_logs (
			transaction_id, phase, click_trans_id, payload_json, status, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableStringValue(log.TransactionID),
		log.Phase,
		log.ClickTransID,
		log.PayloadJSON,
		log.Status,
		nullableStringValue(log.Error),
		log.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = uint64(id)
	return nil
}
