package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/respond"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
)

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
}

// AuthHandler обрабатывает HTTP-запросы, связанные с аутентификацией.
type AuthHandler struct {
	service AuthService
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Register обрабатывает запрос на регистрацию нового пользователя.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeCredentials(w, r, &req.Username, &req.Password, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			respond.Error(w, http.StatusConflict, models.CodeConflict, err.Error())
			return
		}
		writeServiceError(w, "AuthHandler:Register", err)
		return
	}

	respond.JSON(w, http.StatusCreated, user)
}

// Login обрабатывает запрос на вход пользователя.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeCredentials(w, r, &req.Username, &req.Password, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, models.CodeUnauthorized, err.Error())
			return
		}
		writeServiceError(w, "AuthHandler:Login", err)
		return
	}

	respond.JSON(w, http.StatusOK, resp)
}

// decodeCredentials декодирует тело запроса и проверяет, что имя и пароль заданы.
func decodeCredentials(w http.ResponseWriter, r *http.Request, username, password *string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса: %v", err)
		respond.Error(w, http.StatusBadRequest, models.CodeInvalidRequest, "Неверный формат запроса")
		return false
	}
	if *username == "" || *password == "" {
		respond.Error(w, http.StatusBadRequest, models.CodeInvalidRequest, "Имя пользователя и пароль не могут быть пустыми")
		return false
	}
	return true
}
