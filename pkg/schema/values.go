package schema

import (
	"encoding/json"
	"math"
)

// NormalizeScalar folds the numeric types produced by decoders (YAML ints,
// json.Number, Go literals) into float64 so values compare the same way after
// a JSON round trip. Other values are returned unchanged.
func NormalizeScalar(value any) any {
	if f, ok := ToFloat(value); ok {
		return f
	}
	return value
}

// ToFloat converts Go numeric types to float64. Strings are not parsed.
func ToFloat(value any) (float64, bool) {
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
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
