package verticals

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig - формат YAML-файла с вертикалями.
//
//	replace_builtin: false
//	verticals:
//	  - key: dealflow
//	    record_table: companies
//	    ...
type fileConfig struct {
	ReplaceBuiltin bool       `yaml:"replace_builtin"`
	Verticals      []Vertical `yaml:"verticals"`
}

// LoadFile читает вертикали из YAML-файла. Если путь пустой, возвращает встроенный реестр.
// Описания из файла заменяют встроенные с тем же ключом, остальные добавляются.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла вертикалей '%s': %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора файла вертикалей '%s': %w", path, err)
	}
	log.Printf("[Verticals] Загружено %d вертикалей из '%s'", r.Len(), path)
	return r, nil
}

// Parse строит реестр из содержимого YAML.
func Parse(data []byte) (*Registry, error) {
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	var base []Vertical
	if !cfg.ReplaceBuiltin {
		base = builtin()
	}
	return NewRegistry(merge(base, cfg.Verticals))
}

// merge накладывает overrides на base по ключу, сохраняя порядок.
func merge(base, overrides []Vertical) []Vertical {
	idx := make(map[string]int, len(base))
	out := make([]Vertical, 0, len(base)+len(overrides))
	for _, v := range base {
		idx[v.Key] = len(out)
		out = append(out, v)
	}
	for _, v := range overrides {
		if i, ok := idx[v.Key]; ok {
			out[i] = v
			continue
		}
		idx[v.Key] = len(out)
		out = append(out, v)
	}
	return out
}
