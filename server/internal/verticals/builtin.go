package verticals

// DefaultKey - вертикаль, открываемая клиентом по умолчанию.
const DefaultKey = "dealflow"

// builtin возвращает встроенные вертикали.
// Для каждой: записи в <key>_records, доступы в <key>_access, процедура unlock_<key>.
func builtin() []Vertical {
	labels := []struct{ key, label string }{
		{"dealflow", "Deal Flow"},
		{"salesintel", "Sales Intelligence"},
		{"supplyintel", "Supply Chain Intelligence"},
		{"clinicalintel", "Clinical Trials"},
		{"legalintel", "Legal Dockets"},
		{"marketresearch", "Market Research"},
		{"academicintel", "Academic Research"},
		{"creatorintel", "Creator Economy"},
		{"gamingintel", "Gaming Intelligence"},
		{"realestateintel", "Real Estate"},
		{"privatecreditintel", "Private Credit"},
		{"cyberintel", "Cyber Risk"},
		{"biopharmintel", "Biopharma"},
		{"industrialintel", "Industrial Intelligence"},
		{"govintel", "Government Contracts"},
		{"insuranceintel", "Insurance Intelligence"},
	}

	out := make([]Vertical, 0, len(labels))
	for _, l := range labels {
		out = append(out, Vertical{
			Key:            l.key,
			Label:          l.label,
			RecordTable:    l.key + "_records",
			RecordIDField:  "id",
			GrantTable:     l.key + "_access",
			GrantIDField:   "record_id",
			Procedure:      "unlock_" + l.key,
			ProcedureParam: "record_ids",
		})
	}
	return out
}
