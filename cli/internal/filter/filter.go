// Package filter parses the --where expressions of the select and describe
// commands, e.g.
//
//	name like 'a%' and age >= 18 and deleted_at is null and id in (1, 2)
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/pgorm/orm"
)

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(AND|NOT|LIKE|ILIKE|IN|IS|NULL|TRUE|FALSE)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Op", Pattern: `!=|<>|<=|>=|=|<|>`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[expr](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
)

type expr struct {
	Conds []*cond `parser:"@@ ( 'and' @@ )*"`
}

type cond struct {
	Field string   `parser:"@Ident"`
	Op    []string `parser:"( @Op | @( 'not'? ( 'like' | 'ilike' | 'in' ) ) | @( 'is' 'not'? ) )"`
	Value *value   `parser:"@@"`
}

type value struct {
	Null   bool    `parser:"  @'null'"`
	Bool   *string `parser:"| @( 'true' | 'false' )"`
	Number *string `parser:"| @Number"`
	String *string `parser:"| @String"`
	List   *list   `parser:"| @@"`
}

type list struct {
	Open  bool     `parser:"@'('"`
	Items []*value `parser:"( @@ ( ',' @@ )* )? ')'"`
}

// Condition is one comparison of a filter expression.
type Condition struct {
	Field      string
	Comparator string
	Value      any
}

// Parse parses a filter expression. An empty expression yields no
// conditions.
func Parse(src string) ([]Condition, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	e, err := parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	conds := make([]Condition, len(e.Conds))
	for i, c := range e.Conds {
		conds[i] = Condition{
			Field:      c.Field,
			Comparator: strings.ToUpper(strings.Join(c.Op, " ")),
			Value:      c.Value.native(),
		}
	}
	return conds, nil
}

func (v *value) native() any {
	switch {
	case v.Null:
		return nil
	case v.Bool != nil:
		return strings.EqualFold(*v.Bool, "true")
	case v.Number != nil:
		if n, err := strconv.ParseInt(*v.Number, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(*v.Number, 64)
		return f
	case v.String != nil:
		s := *v.String
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	case v.List != nil:
		items := make([]any, len(v.List.Items))
		for i, item := range v.List.Items {
			items[i] = item.native()
		}
		return items
	}
	return nil
}

// Apply adds conds to q as FilterOp calls.
func Apply[T any](q *orm.Query[T], conds []Condition) *orm.Query[T] {
	for _, c := range conds {
		q = q.FilterOp(c.Field, c.Comparator, c.Value)
	}
	return q
}
