package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ShakilAhmedRego/VMV5/models"
)

var (
	// ErrAuthorization сигнализирует об ошибке авторизации (401).
	ErrAuthorization = errors.New("ошибка авторизации")
	// ErrInsufficientCredits - на балансе меньше кредитов, чем стоит разблокировка.
	ErrInsufficientCredits = errors.New("недостаточно кредитов")
	// ErrStorageUnavailable - сервер или его хранилище недоступны. Результат операции неизвестен,
	// перед повтором нужно перечитать доступы и баланс.
	ErrStorageUnavailable = errors.New("хранилище недоступно")
	// ErrRateLimited - превышен лимит запросов (429).
	ErrRateLimited = errors.New("слишком много запросов")
	// ErrNotFound - ресурс не найден (404).
	ErrNotFound = errors.New("не найдено")
	// ErrConflict - конфликт, например имя пользователя занято (409).
	ErrConflict = errors.New("конфликт")
	// ErrInvalidRequest - сервер отверг запрос как некорректный (400).
	ErrInvalidRequest = errors.New("некорректный запрос")
)

// InsufficientCreditsError несет суммы из ответа 402.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("недостаточно кредитов: нужно %d, доступно %d", e.Required, e.Available)
}

// Is позволяет сравнивать с ErrInsufficientCredits через errors.Is.
func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// Shortfall возвращает, сколько кредитов не хватает.
func (e *InsufficientCreditsError) Shortfall() int64 {
	if d := e.Required - e.Available; d > 0 {
		return d
	}
	return 0
}

// RateLimitedError несет время, через которое можно повторить запрос.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("слишком много запросов, повторите через %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Error - прочие ошибки сервера с кодом и сообщением из тела ответа.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ошибка сервера (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("ошибка сервера: статус %d", e.Status)
}

// Unwrap сопоставляет статус с сентинелом, чтобы работал errors.Is.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuthorization
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrStorageUnavailable
	}
	return nil
}

// decodeError превращает ответ с ошибкой в типизированную ошибку.
func decodeError(resp *http.Response) error {
	var body models.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || body.Code == models.CodeInsufficientCredits:
		return &InsufficientCreditsError{Required: body.Required, Available: body.Available}
	case resp.StatusCode == http.StatusTooManyRequests || body.Code == models.CodeRateLimited:
		retry := time.Second
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
			retry = time.Duration(s) * time.Second
		}
		return &RateLimitedError{RetryAfter: retry}
	case body.Code == models.CodeStorageUnavailable:
		return &Error{Status: http.StatusServiceUnavailable, Code: body.Code, Message: body.Message}
	}
	return &Error{Status: resp.StatusCode, Code: body.Code, Message: body.Message}
}
