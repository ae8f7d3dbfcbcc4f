package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/middleware"
	"github.com/ShakilAhmedRego/VMV5/server/internal/respond"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/go-chi/chi/v5"
)

// RecordsService отдает записи вертикали.
type RecordsService interface {
	List(ctx context.Context, v verticals.Vertical) ([]models.Record, error)
}

// AccessService отдает выданные доступы.
type AccessService interface {
	Granted(ctx context.Context, v verticals.Vertical, userID string) (map[string]struct{}, error)
}

// UnlockService выполняет разблокировку.
type UnlockService interface {
	Unlock(ctx context.Context, v verticals.Vertical, userID string, ids []string) (*services.UnlockResult, error)
}

// maxUnlockBody ограничивает размер тела запроса разблокировки.
const maxUnlockBody = 1 << 20

// VerticalsHandler обслуживает каталог вертикалей, записи, доступы и разблокировку.
type VerticalsHandler struct {
	registry *verticals.Registry
	records  RecordsService
	access   AccessService
	unlock   UnlockService
}

// NewVerticalsHandler создает обработчик вертикалей.
func NewVerticalsHandler(
	registry *verticals.Registry,
	records RecordsService,
	access AccessService,
	unlock UnlockService,
) *VerticalsHandler {
	return &VerticalsHandler{registry: registry, records: records, access: access, unlock: unlock}
}

// List возвращает каталог вертикалей.
func (h *VerticalsHandler) List(w http.ResponseWriter, _ *http.Request) {
	list := h.registry.List()
	out := make([]models.VerticalInfo, 0, len(list))
	for _, v := range list {
		out = append(out, models.VerticalInfo{
			Key:       v.Key,
			Label:     v.Label,
			IDField:   v.RecordIDField,
			Procedure: v.Procedure,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}

// Records возвращает первые записи вертикали.
func (h *VerticalsHandler) Records(w http.ResponseWriter, r *http.Request) {
	v, ok := h.vertical(w, r)
	if !ok {
		return
	}
	records, err := h.records.List(r.Context(), v)
	if err != nil {
		writeServiceError(w, "VerticalsHandler:Records", err)
		return
	}
	respond.JSON(w, http.StatusOK, models.RecordsResponse{
		Vertical: v.Key,
		IDField:  v.RecordIDField,
		Records:  records,
	})
}

// Grants возвращает ID, открытые текущему пользователю.
func (h *VerticalsHandler) Grants(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	v, ok := h.vertical(w, r)
	if !ok {
		return
	}
	granted, err := h.access.Granted(r.Context(), v, userID)
	if err != nil {
		writeServiceError(w, "VerticalsHandler:Grants", err)
		return
	}
	ids := make([]string, 0, len(granted))
	for id := range granted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	respond.JSON(w, http.StatusOK, models.GrantsResponse{Vertical: v.Key, IDs: ids})
}

// Unlock разблокирует записи вертикали: POST /api/verticals/{key}/unlock {"ids": [...]}.
func (h *VerticalsHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	v, ok := h.vertical(w, r)
	if !ok {
		return
	}
	var req models.UnlockRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUnlockBody)).Decode(&req); err != nil {
		log.Printf("[VerticalsHandler:Unlock] Ошибка декодирования запроса: %v", err)
		respond.Error(w, http.StatusBadRequest, models.CodeInvalidRequest, "Неверный формат запроса")
		return
	}
	h.doUnlock(w, r, v, userID, req.IDs)
}

// Procedure - вызов разблокировки по имени процедуры вертикали:
// POST /api/rpc/{procedure} {"<параметр процедуры>": [...]}.
func (h *VerticalsHandler) Procedure(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "procedure")
	v, err := h.registry.ByProcedure(name)
	if err != nil {
		respond.Error(w, http.StatusNotFound, models.CodeNotFound, "Процедура не найдена: "+name)
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUnlockBody)).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, models.CodeInvalidRequest, "Неверный формат запроса")
		return
	}
	raw, ok := body[v.ProcedureParam]
	if !ok {
		respond.Error(w, http.StatusBadRequest, models.CodeInvalidRequest,
			"Отсутствует параметр "+v.ProcedureParam)
		return
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		respond.Error(w, http.StatusBadRequest, models.CodeInvalidRequest,
			"Параметр "+v.ProcedureParam+" должен быть массивом строк")
		return
	}
	h.doUnlock(w, r, v, userID, ids)
}

func (h *VerticalsHandler) doUnlock(w http.ResponseWriter, r *http.Request, v verticals.Vertical, userID string, ids []string) {
	res, err := h.unlock.Unlock(r.Context(), v, userID, ids)
	if err != nil {
		writeServiceError(w, "VerticalsHandler:Unlock", err)
		return
	}
	resp := models.UnlockResponse{
		Vertical: res.Vertical,
		Granted:  res.Granted,
		Charged:  res.Charged,
	}
	if res.BalanceKnown {
		resp.Balance = &res.Balance
	}
	respond.JSON(w, http.StatusOK, resp)
}

// vertical находит вертикаль по ключу из URL. Неизвестный ключ - 404.
func (h *VerticalsHandler) vertical(w http.ResponseWriter, r *http.Request) (verticals.Vertical, bool) {
	key := chi.URLParam(r, "key")
	v, err := h.registry.Get(key)
	if err != nil {
		if errors.Is(err, verticals.ErrUnknownVertical) {
			respond.Error(w, http.StatusNotFound, models.CodeNotFound, "Вертикаль не найдена: "+key)
			return verticals.Vertical{}, false
		}
		writeServiceError(w, "VerticalsHandler", err)
		return verticals.Vertical{}, false
	}
	return v, true
}

// userFromRequest достает ID пользователя, положенный middleware аутентификации.
func userFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Println("[Handlers] Не удалось получить ID пользователя из контекста")
		respond.Error(w, http.StatusUnauthorized, models.CodeUnauthorized, "Требуется аутентификация")
		return "", false
	}
	return userID, true
}
