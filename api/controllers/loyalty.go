package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pixelgrove/gamecrate-backend/api/responses"
	loyaltysvc "github.com/pixelgrove/gamecrate-backend/internal/loyalty"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
)

// LoyaltyBalance returns the caller's current points balance.
func LoyaltyBalance(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loyalty service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loyaltyBalanceResponse{UserID: userID, Balance: balance})
	}
}

// LoyaltyHistory returns the caller's ledger, newest first.
func LoyaltyHistory(svc loyaltysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loyalty service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactions, err := svc.History(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]loyaltyTransactionResponse, 0, len(transactions))
		for _, txn := range transactions {
			resp = append(resp, newLoyaltyTransactionResponse(txn))
		}
		responses.WriteSuccess(w, resp)
	}
}

type loyaltyBalanceResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int       `json:"balance"`
}

type loyaltyTransactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Type        string     `json:"type"`
	Delta       int        `json:"delta"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newLoyaltyTransactionResponse(txn models.LoyaltyTransaction) loyaltyTransactionResponse {
	return loyaltyTransactionResponse{
		ID:          txn.ID,
		OrderID:     txn.OrderID,
		Type:        string(txn.Type),
		Delta:       txn.Delta,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt,
	}
}
