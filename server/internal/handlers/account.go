package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/respond"
	"github.com/go-chi/chi/v5"
)

// AuditService проверяет инварианты журнала пользователя.
type AuditService interface {
	Check(ctx context.Context, userID string) (*models.AuditReport, error)
}

// StatementService формирует и отдает выписки.
type StatementService interface {
	Create(ctx context.Context, userID string) (*models.StatementResponse, error)
	Open(ctx context.Context, userID, id string) (io.ReadCloser, error)
}

// AccountHandler обслуживает аудит и выписки текущего пользователя.
type AccountHandler struct {
	audit      AuditService
	statements StatementService
}

// NewAccountHandler создает обработчик аккаунта.
func NewAccountHandler(audit AuditService, statements StatementService) *AccountHandler {
	return &AccountHandler{audit: audit, statements: statements}
}

// Audit возвращает отчет о проверке журнала и доступов.
func (h *AccountHandler) Audit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	report, err := h.audit.Check(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "AccountHandler:Audit", err)
		return
	}
	respond.JSON(w, http.StatusOK, report)
}

// CreateStatement формирует CSV-выписку по журналу.
func (h *AccountHandler) CreateStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.statements.Create(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "AccountHandler:CreateStatement", err)
		return
	}
	respond.JSON(w, http.StatusCreated, resp)
}

// GetStatement отдает ранее сформированную выписку.
func (h *AccountHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	rc, err := h.statements.Open(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, "AccountHandler:GetStatement", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="statement-`+id+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("[AccountHandler:GetStatement] Ошибка отправки выписки %s: %v", id, err)
	}
}
