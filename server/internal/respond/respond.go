// Package respond пишет JSON-ответы API.
package respond

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ShakilAhmedRego/VMV5/models"
)

// JSON кодирует v в тело ответа с указанным статусом.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Статус уже отправлен, остается только залогировать.
		log.Printf("[Respond] Ошибка кодирования ответа: %v", err)
	}
}

// Error отправляет models.ErrorResponse.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, models.ErrorResponse{Code: code, Message: message})
}
