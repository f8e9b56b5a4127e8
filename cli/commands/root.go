package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgorm/cli/internal/config"
	"github.com/satishbabariya/pgorm/cli/internal/ui"
	"github.com/satishbabariya/pgorm/cli/internal/version"
	"github.com/satishbabariya/pgorm/internal/debug"
)

type cfgKey struct{}

// NewRootCommand builds the pgorm command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pgorm",
		Short: "Run queries through a pipelined database connection",
		Long: `pgorm sends SQL through a single pipelined connection and composes
SELECT statements from filter, sort and join options.

The connection is configured with --driver and --dsn, the PGORM_DRIVER and
PGORM_DSN environment variables (DATABASE_URL is used as a fallback DSN),
.env files or a .pgorm.yaml config file.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.AppFs, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Debug {
				debug.SetOutput(cmd.ErrOrStderr(), true)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey{}, cfg))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("driver", "", "driver: pgwire, postgres, sqlite3 or mysql (default pgwire)")
	flags.String("dsn", "", "data source name")
	flags.String("config", "", "config file (default .pgorm.yaml)")
	flags.Bool("debug", false, "log statements to stderr")

	root.AddCommand(
		newQueryCommand(),
		newMultiCommand(),
		newExecCommand(),
		newSelectCommand(),
		newDescribeCommand(),
		newRunCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute is the main entry point for the CLI
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		ui.Error(root.ErrOrStderr(), "%v", err)
	}
	return err
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(cfgKey{}).(*config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }

func readSQL(cmd *cobra.Command, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected one SQL argument, got %d", len(args))
	}
	if args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
