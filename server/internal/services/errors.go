package services

import (
	"errors"
	"fmt"
)

// Кастомные ошибки сервиса.
var (
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrUsernameTaken      = errors.New("имя пользователя уже занято")
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrInvalidRequest     = errors.New("некорректный запрос")

	// ErrInsufficientCredits - баланса не хватает на разблокировку. Ничего не записано.
	ErrInsufficientCredits = errors.New("недостаточно кредитов")
	// ErrStorageUnavailable - хранилище недоступно. Можно повторить, состояние нужно перечитать.
	ErrStorageUnavailable = errors.New("хранилище недоступно")
	// ErrInvariantViolation - обнаружено нарушение инварианта журнала или доступов.
	ErrInvariantViolation = errors.New("нарушение инварианта")

	ErrStatementNotFound  = errors.New("выписка не найдена")
	ErrStatementsDisabled = errors.New("хранилище выписок не настроено")
)

// InsufficientCreditsError описывает нехватку кредитов.
// errors.Is(err, ErrInsufficientCredits) для неё истинно.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("%s: требуется %d, доступно %d", ErrInsufficientCredits, e.Required, e.Available)
}

// Is сопоставляет ошибку с ErrInsufficientCredits.
func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// Shortfall - сколько кредитов не хватает.
func (e *InsufficientCreditsError) Shortfall() int64 {
	if e.Required <= e.Available {
		return 0
	}
	return e.Required - e.Available
}

// storageErr оборачивает ошибку хранилища в ErrStorageUnavailable.
// Ошибки сервиса пробрасываются без изменений.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrInsufficientCredits, ErrStorageUnavailable, ErrInvariantViolation,
		ErrUserNotFound, ErrInvalidRequest,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
