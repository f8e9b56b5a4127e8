package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgorm/cli/internal/filter"
	"github.com/satishbabariya/pgorm/cli/internal/ui"
	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/orm"
	"github.com/satishbabariya/pgorm/result"
)

// selectOptions are the builder options shared by select and describe.
type selectOptions struct {
	columns []string
	where   string
	order   []string
	joins   []string
	limit   int
	offset  int
}

func (o *selectOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&o.columns, "columns", "c", nil, "columns to select (default: all)")
	f.StringVarP(&o.where, "where", "w", "", `filter, e.g. "name like 'a%' and age >= 18"`)
	f.StringSliceVarP(&o.order, "order", "o", nil, "sort columns as name[:asc|:desc]")
	f.StringArrayVar(&o.joins, "join", nil, "raw join clause (repeatable)")
	f.IntVar(&o.limit, "limit", -1, "maximum number of rows")
	f.IntVar(&o.offset, "offset", -1, "rows to skip")
}

// build composes the query for table on c.
func (o *selectOptions) build(ctx context.Context, c *conn.Conn, name string) (*orm.Query[result.Row], error) {
	table, err := discover(ctx, c, name)
	if err != nil {
		return nil, err
	}
	if len(o.columns) > 0 {
		for _, col := range o.columns {
			if !table.HasColumn(col) {
				return nil, fmt.Errorf("unknown column %q (table %s has %s)", col, name, strings.Join(table.Columns, ", "))
			}
		}
		table.Columns = o.columns
	}

	conds, err := filter.Parse(o.where)
	if err != nil {
		return nil, err
	}

	q := filter.Apply(orm.NewQuery[result.Row](c, table, orm.RowLoader), conds)
	for _, j := range o.joins {
		q = q.Join(j)
	}
	for _, term := range o.order {
		field, dir, _ := strings.Cut(term, ":")
		q = q.SortBy(field, strings.ToUpper(dir))
	}
	q = q.LimitOffset(o.limit, o.offset)
	return q, q.Err()
}

// discover reads the column names of a table from an empty SELECT *.
func discover(ctx context.Context, c *conn.Conn, name string) (orm.Table, error) {
	res, err := c.Query(ctx, "SELECT * FROM "+c.QuoteIdentifier(name)+" LIMIT 0")
	if err != nil {
		return orm.Table{}, fmt.Errorf("describe %s: %w", name, err)
	}
	rs, ok := res.(*result.QueryResult)
	if !ok {
		return orm.Table{}, fmt.Errorf("describe %s: no row set", name)
	}
	return orm.Table{Name: name, Columns: rs.Columns()}, nil
}

func newSelectCommand() *cobra.Command {
	var (
		opts      selectOptions
		printOnly bool
		count     bool
	)

	cmd := &cobra.Command{
		Use:   "select <table>",
		Short: "Compose and run a SELECT on one table",
		Example: `  pgorm select users --columns id,name --where "name like 'a%'" --order name:desc --limit 10
  pgorm select users --where "deleted_at is null" --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(cmd, func(ctx context.Context, c *conn.Conn) error {
				q, err := opts.build(ctx, c, args[0])
				if err != nil {
					return err
				}

				if printOnly {
					sql, err := q.QueryString()
					if err != nil {
						return err
					}
					fmt.Fprintln(out(cmd), sql)
					return nil
				}
				if count {
					n, err := q.Count(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(out(cmd), n)
					return nil
				}

				res, err := q.Result(ctx)
				if err != nil {
					return err
				}
				return printResult(out(cmd), res)
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the SQL instead of running it")
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matching rows")
	return cmd
}

func newDescribeCommand() *cobra.Command {
	var (
		opts selectOptions
		raw  bool
	)

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Show a table's columns, row count and the composed query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(cmd, func(ctx context.Context, c *conn.Conn) error {
				q, err := opts.build(ctx, c, args[0])
				if err != nil {
					return err
				}
				sql, err := q.QueryString()
				if err != nil {
					return err
				}
				n, err := q.Count(ctx)
				if err != nil {
					return err
				}

				report := describeMarkdown(q.Table(), n, sql)
				if raw {
					_, err := fmt.Fprint(out(cmd), report)
					return err
				}
				return ui.Markdown(out(cmd), report)
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering it")
	return cmd
}

func describeMarkdown(table orm.Table, rows int64, sql string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", table.Name)
	b.WriteString("| # | Column |\n|---|---|\n")
	for i, col := range table.Columns {
		fmt.Fprintf(&b, "| %d | %s |\n", i+1, col)
	}
	fmt.Fprintf(&b, "\n**Rows:** %d\n\n", rows)
	fmt.Fprintf(&b, "```sql\n%s\n```\n", sql)
	return b.String()
}
