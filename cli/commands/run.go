package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgorm/cli/internal/config"
	"github.com/satishbabariya/pgorm/cli/internal/ui"
	"github.com/satishbabariya/pgorm/cli/internal/watch"
	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/result"
)

func newRunCommand() *cobra.Command {
	var (
		watchFile bool
		debounce  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <file.sql>",
		Short: "Run a SQL file, optionally again on every change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			return withConn(cmd, func(ctx context.Context, c *conn.Conn) error {
				runFile := func(ctx context.Context) error {
					return runSQLFile(ctx, cmd, c, file)
				}
				if !watchFile {
					return runFile(ctx)
				}

				w, err := watch.New(file, debounce, func(ctx context.Context) error {
					if err := runFile(ctx); err != nil {
						ui.Error(cmd.ErrOrStderr(), "%v", err)
					}
					return nil
				})
				if err != nil {
					return err
				}
				ui.Note(out(cmd), "watching %s, press Ctrl+C to stop", file)
				return w.Run(ctx)
			})
		},
	}

	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "re-run when the file changes")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-running")
	return cmd
}

func runSQLFile(ctx context.Context, cmd *cobra.Command, c *conn.Conn, file string) error {
	b, err := afero.ReadFile(config.AppFs, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	results, err := c.MultiQuery(ctx, string(b))
	if err != nil {
		return err
	}
	return printResults(cmd, results)
}

func printResults(cmd *cobra.Command, results []result.Result) error {
	for i, res := range results {
		if len(results) > 1 {
			ui.Header(out(cmd), "-- result %d: %s", i+1, res.CommandTag())
		}
		if err := printResult(out(cmd), res); err != nil {
			return err
		}
	}
	return nil
}
