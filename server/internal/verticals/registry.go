package verticals

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownVertical возвращается, если вертикаль с таким ключом не зарегистрирована.
var ErrUnknownVertical = errors.New("неизвестная вертикаль")

// Registry - набор вертикалей, загружаемый при старте. После создания не изменяется.
type Registry struct {
	byKey       map[string]Vertical
	byProcedure map[string]Vertical
	keys        []string
}

// NewRegistry проверяет описания и строит реестр.
// Ключи, таблицы доступов и имена процедур должны быть уникальны.
func NewRegistry(list []Vertical) (*Registry, error) {
	r := &Registry{
		byKey:       make(map[string]Vertical, len(list)),
		byProcedure: make(map[string]Vertical, len(list)),
	}
	grantTables := make(map[string]string, len(list))

	for _, v := range list {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byKey[v.Key]; dup {
			return nil, fmt.Errorf("%w: ключ %q повторяется", ErrInvalidVertical, v.Key)
		}
		if _, dup := r.byProcedure[v.Procedure]; dup {
			return nil, fmt.Errorf("%w: процедура %q повторяется", ErrInvalidVertical, v.Procedure)
		}
		if other, dup := grantTables[v.GrantTable]; dup {
			return nil, fmt.Errorf("%w: таблица доступов %q у %q и %q",
				ErrInvalidVertical, v.GrantTable, other, v.Key)
		}
		if v.Label == "" {
			v.Label = v.Key
		}
		r.byKey[v.Key] = v
		r.byProcedure[v.Procedure] = v
		grantTables[v.GrantTable] = v.Key
		r.keys = append(r.keys, v.Key)
	}
	sort.Strings(r.keys)
	return r, nil
}

// Default возвращает реестр со встроенными вертикалями.
func Default() *Registry {
	r, err := NewRegistry(builtin())
	if err != nil {
		// Встроенный список проверяется тестами, сюда попасть нельзя.
		panic(err)
	}
	return r
}

// Get возвращает вертикаль по ключу.
func (r *Registry) Get(key string) (Vertical, error) {
	v, ok := r.byKey[key]
	if !ok {
		return Vertical{}, fmt.Errorf("%w: %q", ErrUnknownVertical, key)
	}
	return v, nil
}

// ByProcedure находит вертикаль по имени процедуры разблокировки.
func (r *Registry) ByProcedure(name string) (Vertical, error) {
	v, ok := r.byProcedure[name]
	if !ok {
		return Vertical{}, fmt.Errorf("%w: процедура %q", ErrUnknownVertical, name)
	}
	return v, nil
}

// List возвращает вертикали, отсортированные по ключу.
func (r *Registry) List() []Vertical {
	out := make([]Vertical, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.byKey[k])
	}
	return out
}

// Len - количество вертикалей.
func (r *Registry) Len() int { return len(r.keys) }
