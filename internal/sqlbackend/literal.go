package sqlbackend

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// quoteString renders a single-quoted SQL string literal.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatLiteral renders a configuration value as a SQL literal. Only
// scalar types that appear in suite kwargs are supported.
func formatLiteral(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return quoteString(x), nil
	case float64:
		return formatNumber(x), nil
	case float32:
		return formatNumber(float64(x)), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case time.Time:
		return "DATE " + quoteString(x.Format("2006-01-02")), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}
