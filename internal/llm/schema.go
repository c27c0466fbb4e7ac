package llm

// BuildContractJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the extraction response as a generic map. Unknown fields must be explicit
// nulls, not omitted keys; the response shape is externally controlled, so
// schema validation is advisory and per-field coercion remains the last line
// of defense.
func BuildContractJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"vendor_name":        nullableString(),
			"start_date":         nullableDate(),
			"end_date":           nullableDate(),
			"renewal_date":       nullableDate(),
			"renewal_term":       nullableString(),
			"notice_period_days": map[string]any{"type": []string{"integer", "string", "null"}},
			"notice_deadline":    nullableDate(),
			"uncertain_fields": map[string]any{
				"type":  []string{"array", "null"},
				"items": map[string]any{"type": "string"},
			},
			"candidate_dates": map[string]any{
				"type": []string{"object", "null"},
				"additionalProperties": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"extraction_notes": nullableString(),
		},
		"required": []string{
			"vendor_name", "start_date", "end_date", "renewal_date",
			"renewal_term", "notice_period_days", "notice_deadline",
			"uncertain_fields", "candidate_dates", "extraction_notes",
		},
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func nullableDate() map[string]any {
	return map[string]any{
		"type":    []string{"string", "null"},
		"pattern": `^\d{4}-\d{2}-\d{2}`,
	}
}
