package schema

// Clone returns a deep copy of the schema. Scalars stored in DefaultValue and
// rule values are immutable and shared.
func (s FormSchema) Clone() FormSchema {
	out := s
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for idx, field := range s.Fields {
			out.Fields[idx] = field.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	if f.Validations != nil {
		out.Validations = append([]ValidationRule(nil), f.Validations...)
	}
	if f.ParentFields != nil {
		out.ParentFields = append([]string(nil), f.ParentFields...)
	}
	if f.Options != nil {
		out.Options = append([]Option(nil), f.Options...)
	}
	return out
}

// CloneAll deep copies a slice of schemas.
func CloneAll(forms []FormSchema) []FormSchema {
	if forms == nil {
		return nil
	}
	out := make([]FormSchema, len(forms))
	for idx, form := range forms {
		out[idx] = form.Clone()
	}
	return out
}
