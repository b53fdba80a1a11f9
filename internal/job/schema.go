package job

// BuildRequestJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. The oneOf branches make the three PDF sources mutually
// exclusive: a payload with zero or with two sources matches zero or two
// branches and fails validation.
func BuildRequestJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"pdf_url":    map[string]any{"type": "string", "minLength": 1, "pattern": `^https?://`},
			"pdf_path":   map[string]any{"type": "string", "minLength": 1},
			"pdf_base64": map[string]any{"type": "string", "minLength": 1},
			"prompt":     map[string]any{"type": "string"},
			"output_dir": map[string]any{"type": "string"},
		},
		"oneOf": []any{
			map[string]any{"required": []string{"pdf_url"}},
			map[string]any{"required": []string{"pdf_path"}},
			map[string]any{"required": []string{"pdf_base64"}},
		},
	}
}
