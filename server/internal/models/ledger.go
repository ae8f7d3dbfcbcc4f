package models

import "time"

// Причины появления записи в журнале кредитов.
const (
	ReasonSignupBonus = "signup_bonus"
	ReasonAdminGrant  = "admin_grant"
	ReasonUnlock      = "unlock"
)

// LedgerEntry - строка таблицы credit_ledger.
// Журнал только дополняется: строки не изменяются и не удаляются.
type LedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Delta     int64     `db:"delta" json:"delta"`
	Reason    string    `db:"reason" json:"reason"`
	Vertical  *string   `db:"vertical" json:"vertical,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// VerticalDebit - сумма списаний пользователя по одной вертикали.
type VerticalDebit struct {
	Vertical string `db:"vertical"`
	Debited  int64  `db:"debited"`
}
