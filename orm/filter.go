package orm

import (
	"strings"

	"github.com/satishbabariya/pgorm/sqltype"
)

// comparators lists the accepted comparison operators.
var comparators = []string{
	"=", "!=", "<>", "<", "<=", ">", ">=",
	"LIKE", "ILIKE", "NOT LIKE", "NOT ILIKE",
	"IS", "IS NOT", "IN", "NOT IN",
}

// normalizeComparator upper-cases op, collapses inner whitespace and checks
// it against the accepted operators.
func normalizeComparator(table, op string) (string, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(op), " "))
	for _, c := range comparators {
		if c == norm {
			return norm, nil
		}
	}
	return "", &ValidationError{
		Table: table,
		Field: op,
		Valid: comparators,
		Kind:  ErrInvalidComparator,
	}
}

// comparison renders col <op> value. Symbolic operators are written without
// surrounding spaces, keyword operators with them.
func comparison(e sqltype.Escaper, col, op string, value any) string {
	v := sqltype.ValueOf(value)
	if _, null := v.(sqltype.Null); null {
		switch op {
		case "=":
			op = "IS"
		case "!=", "<>":
			op = "IS NOT"
		}
	}

	switch op {
	case "IN", "NOT IN":
		return col + " " + op + " " + valueList(e, v)
	case "=", "!=", "<>", "<", "<=", ">", ">=":
		return col + op + sqltype.Escape(e, v)
	default:
		return col + " " + op + " " + sqltype.Escape(e, v)
	}
}

// valueList renders v as a parenthesized list for IN. A non-array value is a
// list of one; an empty array matches nothing.
func valueList(e sqltype.Escaper, v sqltype.Value) string {
	arr, ok := v.(sqltype.Array)
	if !ok {
		return "(" + sqltype.Escape(e, v) + ")"
	}
	if len(arr) == 0 {
		return "(NULL)"
	}
	parts := make([]string, len(arr))
	for i, elem := range arr {
		parts[i] = sqltype.Escape(e, elem)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
