package schema

import (
	"mime/multipart"
	"strconv"
)

// FromMultipart returns the textual parts of a multipart form. File parts
// are not included; images travel separately.
func FromMultipart(form *multipart.Form) Input {
	in := make(Input, len(form.Value))
	for k, v := range form.Value {
		in[k] = v
	}
	return in
}

// Without returns a copy of in lacking the given keys
func (in Input) Without(keys ...string) Input {
	out := make(Input, len(in))
	for k, v := range in {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// FromJSON flattens a decoded JSON object into form-style input. Scalars
// become one value, arrays become repeated values and null is treated as
// absent.
func FromJSON(obj map[string]any) Input {
	in := make(Input, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
		case []any:
			values := make([]string, 0, len(val))
			for _, item := range val {
				if s, ok := scalar(item); ok {
					values = append(values, s)
				}
			}
			in[k] = values
		default:
			if s, ok := scalar(val); ok {
				in[k] = []string{s}
			}
		}
	}
	return in
}

func scalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	}
	return "", false
}
