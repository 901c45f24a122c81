package expect

import (
	"strconv"
	"strings"
	"time"

	"github.com/veriq-labs/veriq/pkg/dataset"
)

// dateLayouts are the formats accepted when coercing strings to dates.
// Kept in lockstep with what the relational backend's DATE cast accepts.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// asNumber coerces a cell to float64. Strings are parsed; booleans and
// dates are not numbers.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asString renders a cell the way the relational view would cast it to
// VARCHAR, so string-based checks agree across backends.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format("2006-01-02")
	default:
		return ""
	}
}

// valueKey builds an equality key for uniqueness and set-membership
// comparisons. Values of different logical types never collide.
func valueKey(v any) string {
	switch k := v.(type) {
	case float64:
		return "n:" + strconv.FormatFloat(k, 'g', -1, 64)
	case int:
		return "n:" + strconv.FormatFloat(float64(k), 'g', -1, 64)
	case int64:
		return "n:" + strconv.FormatFloat(float64(k), 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(k)
	case string:
		return "s:" + k
	case time.Time:
		return "t:" + k.Format("2006-01-02")
	default:
		return "?"
	}
}

// coercible reports whether a non-null cell can be coerced to the
// declared logical type without loss. Mirrors TRY_CAST in the SQL
// backend: unparsable values are violations, parsable ones pass.
func coercible(v any, target string) bool {
	switch target {
	case "string":
		return true
	case "number":
		_, ok := asNumber(v)
		return ok
	case "boolean":
		switch b := v.(type) {
		case bool:
			return true
		case string:
			// Same literal set the relational backend's BOOLEAN cast accepts.
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "false", "t", "f", "1", "0":
				return true
			}
			return false
		case float64:
			return b == 0 || b == 1
		default:
			return false
		}
	case "date":
		switch d := v.(type) {
		case time.Time:
			return true
		case string:
			for _, layout := range dateLayouts {
				if _, err := time.Parse(layout, strings.TrimSpace(d)); err == nil {
					return true
				}
			}
			return false
		default:
			return false
		}
	default:
		return false
	}
}

func isNull(v any) bool { return dataset.IsNull(v) }
