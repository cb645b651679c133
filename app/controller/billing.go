package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ilmiyplatform/ms-go-billing/app/factory"
	"github.com/ilmiyplatform/ms-go-billing/app/mapper"
	"github.com/ilmiyplatform/ms-go-billing/app/service"
	"github.com/ilmiyplatform/ms-go-billing/app/types"
)

type BillingController struct {
	billingService *service.BillingService
	logger         logrus.FieldLogger
}

func NewBillingController(billingService *service.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
		logger:         factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BillingController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BillingController) CreateTransaction(ctx echo.Context) error {
	req, err := types.NewCreateTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.CreateTransaction(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidAmount):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTransactionAlreadyExists):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create transaction failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionToResponse(item)})
}

func (c *BillingController) GetTransaction(ctx echo.Context) error {
	req, err := types.NewGetTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.GetTransaction(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get transaction failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionToResponse(item)})
}

func (c *BillingController) ListTransactions(ctx echo.Context) error {
	req, err := types.NewListTransactionsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.billingService.ListTransactions(ctx.Request().Context(), req)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List transactions failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListTransactionsResponse{Transactions: mapper.TransactionsToResponse(items)})
}

func (c *BillingController) PaymentURL(ctx echo.Context) error {
	req, err := types.NewPaymentURLRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	paymentURL, err := c.billingService.PaymentURL(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Payment URL failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.PaymentURLResponse{PaymentURL: paymentURL})
}

func (c *BillingController) CreateInvoice(ctx echo.Context) error {
	req, err := types.NewCreateInvoiceRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	raw, err := c.billingService.CreateInvoice(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create invoice failed")
			return c.writeError(ctx, http.StatusBadGateway, "payment provider unavailable")
		}
	}

	return ctx.JSONBlob(http.StatusOK, raw)
}

func (c *BillingController) RequestCardToken(ctx echo.Context) error {
	req, err := types.NewRequestCardTokenRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	raw, err := c.billingService.RequestCardToken(ctx.Request().Context(), req)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Request card token failed")
		return c.writeError(ctx, http.StatusBadGateway, "payment provider unavailable")
	}

	return ctx.JSONBlob(http.StatusOK, raw)
}

func (c *BillingController) VerifyCardToken(ctx echo.Context) error {
	req, err := types.NewVerifyCardTokenRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	raw, err := c.billingService.VerifyCardToken(ctx.Request().Context(), req)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Verify card token failed")
		return c.writeError(ctx, http.StatusBadGateway, "payment provider unavailable")
	}

	return ctx.JSONBlob(http.StatusOK, raw)
}

func (c *BillingController) PayWithCardToken(ctx echo.Context) error {
	req, err := types.NewPayWithCardTokenRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	raw, err := c.billingService.PayWithCardToken(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Pay with card token failed")
			return c.writeError(ctx, http.StatusBadGateway, "payment provider unavailable")
		}
	}

	return ctx.JSONBlob(http.StatusOK, raw)
}

// ClickPrepare handles Click's prepare push. The response is always HTTP
// 200 with a protocol body; a transport-level failure would make Click
// retry forever with no backoff on our side.
func (c *BillingController) ClickPrepare(ctx echo.Context) error {
	logger := factory.LoggerWithContext(c.logger, ctx)

	response := func() (response *types.ClickPrepareResponse) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).Error("Click prepare panicked")
				response = &types.ClickPrepareResponse{Error: types.ClickErrorSystemError, ErrorNote: "System error"}
			}
		}()

		req, err := types.NewClickCallbackRequestFromContext(ctx)
		if err != nil {
			logger.WithError(err).Warn("Click prepare payload unreadable")
			return &types.ClickPrepareResponse{Error: types.ClickErrorMissingFields, ErrorNote: "Missing required fields"}
		}
		return c.billingService.HandleClickPrepare(ctx.Request().Context(), req)
	}()

	if response.Error != types.ClickErrorSuccess {
		logger.WithField("error", response.Error).Warn("Click prepare rejected")
	}
	return ctx.JSON(http.StatusOK, response)
}

// ClickComplete handles Click's complete push. Same transport contract as
// ClickPrepare.
func (c *BillingController) ClickComplete(ctx echo.Context) error {
	logger := factory.LoggerWithContext(c.logger, ctx)

	response := func() (response *types.ClickCompleteResponse) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).Error("Click complete panicked")
				response = &types.ClickCompleteResponse{Error: types.ClickErrorSystemError, ErrorNote: "System error"}
			}
		}()

		req, err := types.NewClickCallbackRequestFromContext(ctx)
		if err != nil {
			logger.WithError(err).Warn("Click complete payload unreadable")
			return &types.ClickCompleteResponse{Error: types.ClickErrorMissingFields, ErrorNote: "Missing required fields"}
		}
		return c.billingService.HandleClickComplete(ctx.Request().Context(), req)
	}()

	if response.Error != types.ClickErrorSuccess {
		logger.WithField("error", response.Error).Warn("Click complete rejected")
	}
	return ctx.JSON(http.StatusOK, response)
}

func (c *BillingController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
