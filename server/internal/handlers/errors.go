package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/respond"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
)

// writeServiceError переводит ошибку сервиса в HTTP-статус и машиночитаемый код.
func writeServiceError(w http.ResponseWriter, component string, err error) {
	var insufficient *services.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		respond.JSON(w, http.StatusPaymentRequired, models.ErrorResponse{
			Code:      models.CodeInsufficientCredits,
			Message:   insufficient.Error(),
			Required:  insufficient.Required,
			Available: insufficient.Available,
			Shortfall: insufficient.Shortfall(),
		})
	case errors.Is(err, services.ErrInvalidRequest):
		respond.Error(w, http.StatusBadRequest, models.CodeInvalidRequest, err.Error())
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrStatementNotFound):
		respond.Error(w, http.StatusNotFound, models.CodeNotFound, err.Error())
	case errors.Is(err, services.ErrStorageUnavailable), errors.Is(err, services.ErrStatementsDisabled):
		log.Printf("[%s] Хранилище недоступно: %v", component, err)
		respond.Error(w, http.StatusServiceUnavailable, models.CodeStorageUnavailable,
			"Хранилище временно недоступно, повторите запрос")
	default:
		log.Printf("[%s] Внутренняя ошибка: %v", component, err)
		respond.Error(w, http.StatusInternalServerError, models.CodeInternal, "Внутренняя ошибка сервера")
	}
}
