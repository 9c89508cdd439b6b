package schema

import (
	"time"
)

// Input is form-encoded submission data: every value submitted under a key,
// in submission order. url.Values and multipart.Form.Value convert directly.
type Input map[string][]string

// Schema is an ordered set of field rules. Schemas are built once at
// definition time and are safe for concurrent use.
type Schema struct {
	rules []Rule
	index map[string]int
}

// Object builds a schema from rules. A later rule replaces an earlier one
// with the same name, keeping the earlier position.
func Object(rules ...Rule) *Schema {
	s := &Schema{index: make(map[string]int, len(rules))}
	for _, r := range rules {
		s.put(r)
	}
	return s
}

func (s *Schema) put(r Rule) {
	if i, ok := s.index[r.Name()]; ok {
		s.rules[i] = r
		return
	}
	s.index[r.Name()] = len(s.rules)
	s.rules = append(s.rules, r)
}

// Merge returns a new schema holding s's rules followed by other's. Fields
// present in both take other's rule.
func (s *Schema) Merge(other *Schema) *Schema {
	out := Object(s.rules...)
	for _, r := range other.rules {
		out.put(r)
	}
	return out
}

// Fields returns the field names in declaration order
func (s *Schema) Fields() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name()
	}
	return names
}

// Rule returns the rule for name
func (s *Schema) Rule(name string) (Rule, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.rules[i], true
}

// Validate coerces and checks in against every rule. Keys in the input that
// the schema does not declare are ignored. On failure the returned Values is
// nil: there is no partial result.
func (s *Schema) Validate(in Input, now time.Time) (Values, FieldErrors) {
	values := make(Values, len(s.rules))
	errs := FieldErrors{}
	for _, r := range s.rules {
		v, messages := r.Parse(in[r.Name()], now)
		if len(messages) > 0 {
			errs[r.Name()] = messages
			continue
		}
		values[r.Name()] = v
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}
