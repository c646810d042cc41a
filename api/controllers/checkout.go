package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixelgrove/gamecrate-backend/api/middleware"
	"github.com/pixelgrove/gamecrate-backend/api/responses"
	"github.com/pixelgrove/gamecrate-backend/api/validators"
	checkoutsvc "github.com/pixelgrove/gamecrate-backend/internal/checkout"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
)

// Checkout submits the caller's cart through the purchase pipeline.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), checkoutsvc.Input{
			UserID:         userID,
			SessionID:      sessionID,
			PointsToRedeem: payload.PointsToRedeem,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type checkoutRequest struct {
	PointsToRedeem int `json:"points_to_redeem" validate:"min=0"`
}

type checkoutResponse struct {
	OrderID      uuid.UUID       `json:"order_id"`
	FinalTotal   decimal.Decimal `json:"final_total"`
	PointsEarned int             `json:"points_earned"`
	CodesIssued  []string        `json:"codes_issued"`
	Warnings     []string        `json:"warnings,omitempty"`
}

func newCheckoutResponse(result *checkoutsvc.Result) checkoutResponse {
	if result == nil {
		return checkoutResponse{CodesIssued: []string{}}
	}
	codes := result.CodesIssued
	if codes == nil {
		codes = []string{}
	}
	return checkoutResponse{
		OrderID:      result.OrderID,
		FinalTotal:   result.FinalTotal,
		PointsEarned: result.PointsEarned,
		CodesIssued:  codes,
		Warnings:     result.Warnings,
	}
}

func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
