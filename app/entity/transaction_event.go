package entity

import "time"

type TransactionEvent struct {
	ID uint64

	TransactionID string

	EventType string

	OldStatus *string
	NewStatus string

	ClickTransID *string
	PayloadJSON  *string

	CreatedAt time.Time
}
