package validation

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v2"
)

// Record is a case keyed by JSON field name, as the form and the wire see it.
type Record map[string]any

// IsValid reports whether value is an acceptable answer for field.
//
// Rules apply in order: nil and blank strings are invalid, false is a valid
// answer, NaN and infinities are invalid, and numeric zero is invalid only for
// number fields the schema does not mark ZeroValid.
func IsValid(field string, value any) bool {
	value, ok := deref(value)
	if !ok {
		return false
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return true
	}

	f, numeric := toFloat(value)
	if !numeric {
		return true
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if f == 0 {
		if spec, known := Lookup(field); known && spec.Kind == KindNumber && !spec.ZeroValid {
			return false
		}
	}
	return true
}

// InvalidFields applies IsValid to every required field of rec and returns
// the names that fail. Absent keys count as nil.
func InvalidFields(rec Record) *set.Set[string] {
	required := RequiredFields()
	invalid := set.New[string](len(required))
	for _, name := range required {
		if !IsValid(name, rec[name]) {
			invalid.Insert(name)
		}
	}
	return invalid
}

// SortedNames returns the members of a field set in lexical order.
func SortedNames(fields *set.Set[string]) []string {
	if fields == nil {
		return []string{}
	}
	names := fields.Slice()
	sort.Strings(names)
	return names
}

func deref(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	}
	return 0, false
}
