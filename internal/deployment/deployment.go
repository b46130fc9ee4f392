// Package deployment holds the structured configuration the agent negotiates
// with the user: one EC2 instance config and one scaling-group config, both
// created with valid defaults at session start and mutated field-by-field by
// validated partial updates. The set of fields per config is closed; unknown
// names are rejected by lookup against an explicit field table rather than
// discovered at runtime.
package deployment

import (
	"fmt"
	"math"
)

// Partial updates arrive as map[string]any straight from the classifier. A nil
// value is the "not mentioned" sentinel and leaves the field untouched. The
// helpers below coerce the loosely-typed values the model produces into field
// types, refusing anything ambiguous.

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		// Models regularly emit 3.0 for integer parameters.
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		// A single zone mentioned without list syntax.
		return []string{l}, true
	}
	return nil, false
}

func typeErr(config, field, want string, got any) error {
	return fmt.Errorf("%s config field %s expects %s, got %v", config, field, want, got)
}

func unknownFieldErr(config, field string) error {
	return fmt.Errorf("%s config has no parameter %q. Please select a valid parameter to modify.", config, field)
}
