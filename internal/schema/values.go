package schema

import "time"

// Values is a validated record: one entry per schema field, nil for absent
// optional fields. Getters return the zero value on a missing key or a type
// mismatch.
type Values map[string]any

func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// OptString returns nil when the optional field was absent
func (v Values) OptString(key string) *string {
	s, ok := v[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

func (v Values) Strings(key string) []string {
	s, _ := v[key].([]string)
	if s == nil {
		return []string{}
	}
	return s
}

func (v Values) Time(key string) time.Time {
	t, _ := v[key].(time.Time)
	return t
}
