package entity

import "time"

const (
	CallbackPhasePrepare  = "prepare"
	CallbackPhaseComplete = "complete"
)

const (
	CallbackLogProcessed int32 = 10
	CallbackLogRejected  int32 = 20
)

// CallbackLog records every inbound Click webhook, processed or rejected,
// so replays and drift against the provider can be audited.
type CallbackLog struct {
	ID uint64

	TransactionID *string

	Phase        string
	ClickTransID string
	PayloadJSON  string
	Status       int32
	Error        *string

	CreatedAt time.Time
}
