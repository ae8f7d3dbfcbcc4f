package handlers

import (
	"context"
	"net/http"
	"strconv"

	apimodels "github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/respond"
)

// LedgerService отдает баланс и историю кредитов.
type LedgerService interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Entries(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
}

// CreditsHandler обслуживает баланс и журнал кредитов.
type CreditsHandler struct {
	ledger LedgerService
}

// NewCreditsHandler создает обработчик кредитов.
func NewCreditsHandler(ledger LedgerService) *CreditsHandler {
	return &CreditsHandler{ledger: ledger}
}

// Balance возвращает баланс текущего пользователя.
func (h *CreditsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "CreditsHandler:Balance", err)
		return
	}
	respond.JSON(w, http.StatusOK, apimodels.BalanceResponse{Balance: balance})
}

// Ledger возвращает последние записи журнала, ?limit= задает их число.
func (h *CreditsHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respond.Error(w, http.StatusBadRequest, apimodels.CodeInvalidRequest, "Некорректный параметр limit")
			return
		}
		limit = n
	}

	entries, err := h.ledger.Entries(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, "CreditsHandler:Ledger", err)
		return
	}
	out := make([]apimodels.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		entry := apimodels.LedgerEntry{ID: e.ID, Delta: e.Delta, Reason: e.Reason, CreatedAt: e.CreatedAt}
		if e.Vertical != nil {
			entry.Vertical = *e.Vertical
		}
		out = append(out, entry)
	}
	respond.JSON(w, http.StatusOK, apimodels.LedgerResponse{Entries: out})
}
