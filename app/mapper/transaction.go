package mapper

import (
	"time"

	"github.com/ilmiyplatform/ms-go-billing/app/entity"
	"github.com/ilmiyplatform/ms-go-billing/app/types"
)

func TransactionToResponse(item *entity.Transaction) *types.Transaction {
	if item == nil {
		return nil
	}

	response := &types.Transaction{
		ID:                   item.ID,
		UserID:               item.UserID,
		ArticleID:            derefString(item.ArticleID),
		TranslationRequestID: derefString(item.TranslationRequestID),
		Amount:               item.Amount.StringFixed(2),
		Currency:             item.Currency,
		ServiceType:          item.ServiceType,
		Status:               item.Status,
		ClickTransID:         derefString(item.ClickTransID),
		ClickPaydocID:        derefString(item.ClickPaydocID),
		ErrorCode:            item.ErrorCode,
		ErrorNote:            derefString(item.ErrorNote),
		CreatedAt:            item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.CompletedAt != nil {
		response.CompletedAt = item.CompletedAt.UTC().Format(time.RFC3339)
	}
	return response
}

func TransactionsToResponse(items []*entity.Transaction) []*types.Transaction {
	result := make([]*types.Transaction, 0, len(items))
	for _, item := range items {
		result = append(result, TransactionToResponse(item))
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
