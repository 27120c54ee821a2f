package schemagen

// fieldSet collects the fields of one type and rejects duplicate names.
type fieldSet struct {
	typeName string
	fields   []*FieldDef
	sources  map[string]string
}

func newFieldSet(typeName string) *fieldSet {
	return &fieldSet{typeName: typeName, sources: make(map[string]string)}
}

func (s *fieldSet) add(f *FieldDef, source string) error {
	if first, exists := s.sources[f.Name]; exists {
		return &DuplicateFieldError{Type: s.typeName, Field: f.Name, First: first, Second: source}
	}
	s.sources[f.Name] = source
	s.fields = append(s.fields, f)
	return nil
}

func (s *fieldSet) list() []*FieldDef {
	return s.fields
}

func (s *fieldSet) names() []string {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		names = append(names, f.Name)
	}
	return names
}
