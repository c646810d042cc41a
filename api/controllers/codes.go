package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixelgrove/gamecrate-backend/api/responses"
	"github.com/pixelgrove/gamecrate-backend/api/validators"
	codesvc "github.com/pixelgrove/gamecrate-backend/internal/codes"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
)

// CodeRedeem consumes a digital download code.
func CodeRedeem(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "codes service unavailable"))
			return
		}

		var payload redeemCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RedeemCode(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newDigitalCodeResponse(*record))
	}
}

// GiftCardApply spends gift card balance against an order total and
// returns the amount actually applied.
func GiftCardApply(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "codes service unavailable"))
			return
		}

		var payload applyGiftCardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderTotal, err := decimal.NewFromString(payload.OrderTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order total"))
			return
		}
		if orderTotal.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order total must not be negative"))
			return
		}

		applied, err := svc.ApplyGiftCard(r.Context(), payload.Code, orderTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, applyGiftCardResponse{AmountApplied: applied})
	}
}

// CodeList returns every code issued to the caller.
func CodeList(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "codes service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]digitalCodeResponse, 0, len(records))
		for _, record := range records {
			resp = append(resp, newDigitalCodeResponse(record))
		}
		responses.WriteSuccess(w, resp)
	}
}

type redeemCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type applyGiftCardRequest struct {
	Code       string `json:"code" validate:"required"`
	OrderTotal string `json:"order_total" validate:"required"`
}

type applyGiftCardResponse struct {
	AmountApplied decimal.Decimal `json:"amount_applied"`
}

type digitalCodeResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderID          uuid.UUID       `json:"order_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	Code             string          `json:"code"`
	Type             string          `json:"type"`
	Redeemed         bool            `json:"redeemed"`
	OriginalValue    decimal.Decimal `json:"original_value"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	SentAt           time.Time       `json:"sent_at"`
	RedeemedAt       *time.Time      `json:"redeemed_at,omitempty"`
}

func newDigitalCodeResponse(record models.DigitalCode) digitalCodeResponse {
	return digitalCodeResponse{
		ID:               record.ID,
		OrderID:          record.OrderID,
		ProductID:        record.ProductID,
		Code:             record.Code,
		Type:             string(record.Type),
		Redeemed:         record.Redeemed,
		OriginalValue:    record.OriginalValue,
		RemainingBalance: record.RemainingBalance,
		SentAt:           record.SentAt,
		RedeemedAt:       record.RedeemedAt,
	}
}
