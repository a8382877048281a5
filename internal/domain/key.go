package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeKey renders a join key in the one text form both sides of a join
// are compared in. Strings are trimmed and upper-cased; integers, floats and
// numeric strings render in their shortest decimal form (840, 840.0 and
// "840.0" all become "840"); nil and blank values become "", which never
// matches anything.
func NormalizeKey(v any) string {
	switch k := v.(type) {
	case nil:
		return ""
	case string:
		k = strings.TrimSpace(k)
		if f, ok := parseNumericKey(k); ok {
			return formatKeyFloat(f)
		}
		return strings.ToUpper(k)
	case fmt.Stringer:
		return NormalizeKey(k.String())
	case float64:
		return formatKeyFloat(k)
	case float32:
		return formatKeyFloat(float64(k))
	case int:
		return strconv.Itoa(k)
	case int64:
		return strconv.FormatInt(k, 10)
	case int32:
		return strconv.FormatInt(int64(k), 10)
	case uint:
		return strconv.FormatUint(uint64(k), 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	default:
		return NormalizeKey(fmt.Sprint(k))
	}
}

func formatKeyFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseNumericKey accepts finite decimal numbers only, so names such as
// "NaN" or "Inf" stay text.
func parseNumericKey(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if c := s[0]; c != '-' && c != '+' && c != '.' && (c < '0' || c > '9') {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
