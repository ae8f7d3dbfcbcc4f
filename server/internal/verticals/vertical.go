// Package verticals описывает конфигурацию вертикалей: какие таблицы хранят записи,
// какие - выданные доступы, и под каким именем вызывается процедура разблокировки.
// Все вертикали обслуживаются одним и тем же кодом, отличаются они только этим описанием.
package verticals

import (
	"errors"
	"fmt"
	"regexp"
)

// Vertical - неизменяемое описание одной вертикали.
type Vertical struct {
	Key            string `yaml:"key"`
	Label          string `yaml:"label"`
	RecordTable    string `yaml:"record_table"`
	RecordIDField  string `yaml:"record_id_field"`
	GrantTable     string `yaml:"grant_table"`
	GrantIDField   string `yaml:"grant_id_field"`
	Procedure      string `yaml:"procedure"`
	ProcedureParam string `yaml:"procedure_param"`
}

// identPattern - допустимые SQL-идентификаторы и ключи.
// Имена таблиц и колонок подставляются в запросы, поэтому проверяются до использования.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ErrInvalidVertical возвращается при некорректном описании вертикали.
var ErrInvalidVertical = errors.New("некорректное описание вертикали")

// Validate проверяет, что все имена заданы и безопасны для подстановки в SQL.
func (v Vertical) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"key", v.Key},
		{"record_table", v.RecordTable},
		{"record_id_field", v.RecordIDField},
		{"grant_table", v.GrantTable},
		{"grant_id_field", v.GrantIDField},
		{"procedure", v.Procedure},
		{"procedure_param", v.ProcedureParam},
	}
	for _, f := range fields {
		if !identPattern.MatchString(f.value) {
			return fmt.Errorf("%w: поле %s = %q", ErrInvalidVertical, f.name, f.value)
		}
	}
	if v.GrantIDField == "user_id" {
		return fmt.Errorf("%w: grant_id_field не может называться user_id", ErrInvalidVertical)
	}
	return nil
}
