package sqltype

import "strings"

// EscapeIdentifier quotes a table or column name.
func EscapeIdentifier(e Escaper, name string) string {
	return e.QuoteIdentifier(name)
}

// EscapeQualified quotes a column name qualified by its table.
func EscapeQualified(e Escaper, table, column string) string {
	return e.QuoteIdentifier(table) + "." + e.QuoteIdentifier(column)
}

// EscapeValue classifies v and renders it as SQL literal text.
func EscapeValue(e Escaper, v any) string {
	return Escape(e, ValueOf(v))
}

// Escape renders a classified value as SQL literal text.
//
// Arrays use the ARRAY constructor. Nested arrays are written one level
// deeper without the keyword, so [][]int{{1, 2}, {3}} renders as
// ARRAY[['1','2'],['3']]. An array with an empty level anywhere is written
// as a quoted array literal instead, so [][]int{{1}, {}} renders as
// '{{"1"},{}}'.
func Escape(e Escaper, v Value) string {
	return escape(e, v, false)
}

func escape(e Escaper, v Value, inArray bool) string {
	switch x := v.(type) {
	case Null:
		return "NULL"
	case Bool:
		if x {
			return "true"
		}
		return "false"
	case Custom:
		return x.Type.ToDBString(e)
	case Array:
		if !inArray && hasEmptyLevel(x) && !hasCustom(x) {
			var b strings.Builder
			writeArrayLiteral(&b, x)
			return e.QuoteLiteral(b.String())
		}
		parts := make([]string, len(x))
		for i, elem := range x {
			parts[i] = escape(e, elem, true)
		}
		body := "[" + strings.Join(parts, ",") + "]"
		if inArray {
			return body
		}
		return "ARRAY" + body
	case Scalar:
		return e.QuoteLiteral(string(x))
	default:
		return "NULL"
	}
}

func hasEmptyLevel(a Array) bool {
	if len(a) == 0 {
		return true
	}
	for _, elem := range a {
		if sub, ok := elem.(Array); ok && hasEmptyLevel(sub) {
			return true
		}
	}
	return false
}

func hasCustom(a Array) bool {
	for _, elem := range a {
		switch x := elem.(type) {
		case Custom:
			return true
		case Array:
			if hasCustom(x) {
				return true
			}
		}
	}
	return false
}

var arrayElem = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// writeArrayLiteral writes a in the brace form of a Postgres array literal.
func writeArrayLiteral(b *strings.Builder, a Array) {
	b.WriteByte('{')
	for i, elem := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		switch x := elem.(type) {
		case Array:
			writeArrayLiteral(b, x)
		case Bool:
			if x {
				b.WriteString("true")
			} else {
				b.WriteString("false")
			}
		case Scalar:
			b.WriteByte('"')
			b.WriteString(arrayElem.Replace(string(x)))
			b.WriteByte('"')
		default:
			b.WriteString("NULL")
		}
	}
	b.WriteByte('}')
}
