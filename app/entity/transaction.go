package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const (
	ServiceTypePublicationFee  = "publication_fee"
	ServiceTypeFastTrack       = "fast-track"
	ServiceTypeTranslation     = "translation"
	ServiceTypeBookPublication = "book_publication"
	ServiceTypeLanguageEditing = "language_editing"
	ServiceTypeTopUp           = "top_up"
)

// Transaction is the merchant-side payment record. Its UUID doubles as the
// merchant_trans_id reference Click echoes back in callbacks.
type Transaction struct {
	ID string

	UserID               string
	ArticleID            *string
	TranslationRequestID *string

	Amount      decimal.Decimal
	Currency    string
	ServiceType string
	Status      string

	ClickTransID  *string
	ClickPaydocID *string

	ErrorCode *int32
	ErrorNote *string

	CreatedAt   time.Time
	CompletedAt *time.Time
}

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func IsValidServiceType(serviceType string) bool {
	switch serviceType {
	case ServiceTypePublicationFee, ServiceTypeFastTrack, ServiceTypeTranslation,
		ServiceTypeBookPublication, ServiceTypeLanguageEditing, ServiceTypeTopUp:
		return true
	default:
		return false
	}
}
