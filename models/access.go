package models

import "time"

// MaxRecords - сколько записей вертикали отдается за один запрос.
// Пагинации нет: клиент всегда видит первые 200 записей по убыванию идентификатора.
const MaxRecords = 200

// Record - запись вертикали. Ядро не знает её схему, кроме поля-идентификатора.
type Record map[string]any

// VerticalInfo описывает вертикаль в каталоге.
type VerticalInfo struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	IDField   string `json:"id_field"`
	Procedure string `json:"procedure"`
}

// RecordsResponse - ответ со списком записей вертикали.
type RecordsResponse struct {
	Vertical string   `json:"vertical"`
	IDField  string   `json:"id_field"`
	Records  []Record `json:"records"`
}

// GrantsResponse - ответ со списком разблокированных идентификаторов.
type GrantsResponse struct {
	Vertical string   `json:"vertical"`
	IDs      []string `json:"ids"`
}

// UnlockRequest - тело запроса на разблокировку записей.
type UnlockRequest struct {
	IDs []string `json:"ids"`
}

// UnlockResponse - результат разблокировки.
// Granted содержит только новые идентификаторы, за которые были списаны кредиты.
type UnlockResponse struct {
	Vertical string   `json:"vertical"`
	Granted  []string `json:"granted"`
	Charged  int64    `json:"charged"`
	// Balance - баланс после разблокировки. nil, если сервер не смог его прочитать.
	Balance *int64 `json:"balance,omitempty"`
}

// BalanceResponse - текущий баланс кредитов.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// LedgerEntry - запись журнала кредитов в API.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Vertical  string    `json:"vertical,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerResponse - история операций по кредитам.
type LedgerResponse struct {
	Entries []LedgerEntry `json:"entries"`
}

// StatementResponse - сведения о сформированной выписке.
type StatementResponse struct {
	ID      string `json:"id"`
	Entries int    `json:"entries"`
	Balance int64  `json:"balance"`
}

// AuditFinding - одно обнаруженное нарушение инварианта.
type AuditFinding struct {
	Kind     string `json:"kind"`
	Vertical string `json:"vertical,omitempty"`
	Detail   string `json:"detail"`
}

// AuditReport - результат проверки инвариантов журнала и доступов.
type AuditReport struct {
	UserID   string         `json:"user_id"`
	Balance  int64          `json:"balance"`
	Findings []AuditFinding `json:"findings"`
}

// OK сообщает, что нарушений не найдено.
func (r AuditReport) OK() bool { return len(r.Findings) == 0 }

// Машиночитаемые коды ошибок API.
const (
	CodeInsufficientCredits = "insufficient_credits"
	CodeStorageUnavailable  = "storage_unavailable"
	CodeInvalidRequest      = "invalid_request"
	CodeUnauthorized        = "unauthorized"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeRateLimited         = "rate_limited"
	CodeInternal            = "internal"
)

// ErrorResponse - тело ответа с ошибкой.
// Required/Available/Shortfall заполняются только для insufficient_credits.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Required  int64  `json:"required,omitempty"`
	Available int64  `json:"available,omitempty"`
	Shortfall int64  `json:"shortfall,omitempty"`
}
