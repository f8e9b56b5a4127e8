package sqldb

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// batchRules tokenize just enough SQL to find statement boundaries: quoted
// strings, quoted identifiers and comments may contain semicolons.
func batchRules(str string) []lexer.SimpleRule {
	return []lexer.SimpleRule{
		{Name: "LineComment", Pattern: `--[^\n]*`},
		{Name: "BlockComment", Pattern: `(?s)/\*.*?\*/`},
		{Name: "String", Pattern: str},
		{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"`},
		{Name: "Backtick", Pattern: "`[^`]*`"},
		{Name: "DollarString", Pattern: `(?s)\$\$.*?\$\$`},
		{Name: "Semi", Pattern: `;`},
		{Name: "Word", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Other", Pattern: `.`},
	}
}

var (
	batchLexer = lexer.MustSimple(batchRules(`'(?:[^']|'')*'`))
	// backslashBatchLexer also treats a backslash as escaping the next
	// character inside a string literal.
	backslashBatchLexer = lexer.MustSimple(batchRules(`'(?:[^'\\]|\\.|'')*'`))
)

// statement is one statement of a batch.
type statement struct {
	text string
	// keyword is the leading keyword, upper-cased.
	keyword string
	// returning is set when the statement carries a RETURNING clause.
	returning bool
}

// rowKeywords are the leading keywords of statements that produce a row set.
var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"TABLE":    true,
	"DESCRIBE": true,
}

// returnsRows reports whether the statement must be run as a query.
func (s statement) returnsRows() bool {
	return rowKeywords[s.keyword] || s.returning
}

// splitBatch splits a batch into its statements, dropping empty ones.
// backslashEscapes selects string literals in which a backslash escapes the
// next character.
func splitBatch(sql string, backslashEscapes bool) ([]statement, error) {
	def := batchLexer
	if backslashEscapes {
		def = backslashBatchLexer
	}
	lex, err := def.LexString("", sql)
	if err != nil {
		return nil, err
	}
	symbols := def.Symbols()
	semi := symbols["Semi"]
	word := symbols["Word"]
	comments := map[lexer.TokenType]bool{
		symbols["LineComment"]:  true,
		symbols["BlockComment"]: true,
		symbols["Whitespace"]:   true,
	}

	var (
		out     []statement
		cur     strings.Builder
		current statement
		empty   = true
	)
	flush := func() {
		if !empty {
			current.text = strings.TrimSpace(cur.String())
			out = append(out, current)
		}
		cur.Reset()
		current = statement{}
		empty = true
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("split batch: %w", err)
		}
		if tok.EOF() {
			break
		}
		if tok.Type == semi {
			flush()
			continue
		}
		cur.WriteString(tok.Value)
		if comments[tok.Type] {
			continue
		}
		if tok.Type == word {
			upper := strings.ToUpper(tok.Value)
			if empty {
				current.keyword = upper
			} else if upper == "RETURNING" {
				current.returning = true
			}
		}
		empty = false
	}
	flush()
	return out, nil
}
