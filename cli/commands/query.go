package commands

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgorm/cli/internal/ui"
	"github.com/satishbabariya/pgorm/conn"
)

func newQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql|->",
		Short: "Run SQL and print the last statement's result",
		Long: `Run SQL and print the result of its last statement. Earlier statements of a
batch are executed but their results are discarded; use multi to see them.
Pass - to read the SQL from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			return withConn(cmd, func(ctx context.Context, c *conn.Conn) error {
				res, err := c.Query(ctx, sql)
				if err != nil {
					return err
				}
				return printResult(out(cmd), res)
			})
		},
	}
}

func newMultiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "multi <sql|->",
		Short: "Run a batch and print every statement's result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}
			return withConn(cmd, func(ctx context.Context, c *conn.Conn) error {
				results, err := c.MultiQuery(ctx, sql)
				if err != nil {
					return err
				}
				return printResults(cmd, results)
			})
		},
	}
}

func newExecCommand() *cobra.Command {
	var yes, tx bool

	cmd := &cobra.Command{
		Use:   "exec <sql|->",
		Short: "Run a modifying statement",
		Long: `Run a statement that modifies data and print the number of affected rows.
Asks for confirmation unless --yes is given. With --tx the statement runs in
a transaction that is rolled back if it fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, args)
			if err != nil {
				return err
			}

			if !yes {
				ui.Code(out(cmd), sql)
				ok := false
				prompt := &survey.Confirm{Message: "Run this statement?", Default: false}
				if err := survey.AskOne(prompt, &ok); err != nil {
					return err
				}
				if !ok {
					ui.Warning(out(cmd), "aborted")
					return nil
				}
			}

			return withConn(cmd, func(ctx context.Context, c *conn.Conn) error {
				var n int64
				run := func(ctx context.Context, c *conn.Conn) error {
					var err error
					n, err = c.Exec(ctx, sql)
					if errors.Is(err, conn.ErrReturnedRows) {
						return errors.New("statement returned rows; use query instead")
					}
					return err
				}

				var err error
				if tx {
					err = c.InTransaction(ctx, run)
				} else {
					err = run(ctx, c)
				}
				if err != nil {
					return err
				}
				ui.Success(out(cmd), "%d rows affected", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&tx, "tx", false, "run inside a transaction")
	return cmd
}
