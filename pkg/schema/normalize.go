package schema

import "strings"

// Normalize trims identifiers, folds numeric scalars to float64, drops blank
// or repeated parent references, and turns empty slices into nil so two
// equivalent schemas compare equal. It does not validate; see
// validation.CheckSchema.
func Normalize(form FormSchema) FormSchema {
	out := form.Clone()
	out.ID = strings.TrimSpace(out.ID)
	out.CreatedAt = strings.TrimSpace(out.CreatedAt)
	for idx := range out.Fields {
		out.Fields[idx] = normalizeField(out.Fields[idx])
	}
	return out
}

// NormalizeValues folds DefaultValue and rule values to float64 where they
// are numeric and leaves every other attribute, including empty slices, as
// is. Stores apply it on save so every backend returns the same value.
func NormalizeValues(form FormSchema) FormSchema {
	out := form.Clone()
	for idx := range out.Fields {
		field := &out.Fields[idx]
		field.DefaultValue = NormalizeScalar(field.DefaultValue)
		for r := range field.Validations {
			field.Validations[r].Value = NormalizeScalar(field.Validations[r].Value)
		}
	}
	return out
}

func normalizeField(field Field) Field {
	field.ID = strings.TrimSpace(field.ID)
	if kind, err := ParseKind(string(field.Type)); err == nil {
		field.Type = kind
	}
	field.DefaultValue = NormalizeScalar(field.DefaultValue)
	field.DerivationLogic = strings.TrimSpace(field.DerivationLogic)

	if len(field.Validations) == 0 {
		field.Validations = nil
	}
	for idx := range field.Validations {
		field.Validations[idx].Value = NormalizeScalar(field.Validations[idx].Value)
	}

	field.ParentFields = normalizeParents(field.ParentFields)

	if len(field.Options) == 0 {
		field.Options = nil
	}
	return field
}

func normalizeParents(parents []string) []string {
	if len(parents) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(parents))
	out := make([]string, 0, len(parents))
	for _, parent := range parents {
		trimmed := strings.TrimSpace(parent)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
