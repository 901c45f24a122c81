package sqlrunner

import (
	"regexp"
	"strings"

	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
)

// PlaceholderToken is the only permitted table reference in a custom
// SQL query. It is substituted with the engine's registered table alias
// at execution time, never with caller-supplied text.
const PlaceholderToken = "{table_name}"

// CountColumn is the column name the outermost projection must expose.
const CountColumn = "violation_count"

// forbiddenKeywords guards against accidental mutation of the
// snapshot table. The runner executes read-only queries only.
var forbiddenKeywords = regexp.MustCompile(`(?i)\b(DROP|DELETE|UPDATE|INSERT|CREATE|ALTER|TRUNCATE|EXEC|EXECUTE|MERGE)\b`)

// validateQuery enforces the static contract on the query text.
func validateQuery(query string) *core.RuleError {
	if !strings.Contains(query, PlaceholderToken) {
		return core.NewRuleError(core.ErrPlaceholderMissing,
			"query must reference the dataset via the %s placeholder", PlaceholderToken)
	}
	if m := forbiddenKeywords.FindString(query); m != "" {
		return core.NewRuleError(core.ErrContractViolation,
			"forbidden SQL keyword %q in custom query", strings.ToUpper(m))
	}
	return nil
}

// normalizeBooleanLiterals rewrites comparisons of boolean-typed
// columns against the legacy integer literals 1/0 (and Python-style
// True/False) into canonical boolean form, so both spellings produce
// identical violation sets.
func normalizeBooleanLiterals(query string, snap *dataset.Snapshot) string {
	for _, col := range snap.Columns() {
		if col.Type != dataset.TypeBoolean {
			continue
		}
		re := regexp.MustCompile(`(?i)(\b` + regexp.QuoteMeta(col.Name) + `\b\s*(?:=|!=|<>)\s*)(TRUE|FALSE|1|0)\b`)
		query = re.ReplaceAllStringFunc(query, func(m string) string {
			sub := re.FindStringSubmatch(m)
			lit := "TRUE"
			switch strings.ToUpper(sub[2]) {
			case "FALSE", "0":
				lit = "FALSE"
			}
			return sub[1] + lit
		})
	}
	return query
}

// deriveRowIDQuery extracts the violation predicate from a count query
// of the canonical shape
//
//	SELECT COUNT(*) AS violation_count FROM {table_name} WHERE <predicate>
//
// so the violating row ids can be materialized under the same
// predicate. Queries with joins, aliases or grouping between the
// placeholder and the WHERE clause are not derivable; those report a
// count with no row-level granularity.
func deriveRowIDQuery(query string) (string, bool) {
	upper := strings.ToUpper(query)

	if !strings.HasPrefix(strings.TrimSpace(upper), "SELECT") {
		return "", false
	}

	phIdx := strings.Index(query, PlaceholderToken)
	if phIdx < 0 {
		return "", false
	}
	if !strings.Contains(upper[:phIdx], "COUNT(") {
		return "", false
	}

	rest := query[phIdx+len(PlaceholderToken):]
	restUpper := strings.ToUpper(rest)

	whereIdx := strings.Index(restUpper, "WHERE ")
	if whereIdx < 0 {
		return "", false
	}
	// Only whitespace may sit between the table reference and WHERE;
	// anything else (aliases, joins) changes the row shape.
	if strings.TrimSpace(rest[:whereIdx]) != "" {
		return "", false
	}

	pred := strings.TrimSpace(rest[whereIdx+len("WHERE "):])
	predUpper := strings.ToUpper(pred)
	if pred == "" || strings.Contains(predUpper, "GROUP BY") || strings.Contains(predUpper, "ORDER BY") {
		return "", false
	}
	// A predicate cut out of a subquery closes parens it never opened.
	if !balancedParens(pred) {
		return "", false
	}

	return pred, true
}

func balancedParens(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
