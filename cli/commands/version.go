package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgorm/cli/internal/ui"
	"github.com/satishbabariya/pgorm/cli/internal/version"
	"github.com/satishbabariya/pgorm/conn"
)

func newVersionCommand() *cobra.Command {
	var server bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(out(cmd), version.Get().FullString())
			if !server {
				return nil
			}

			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			return withConn(cmd, func(ctx context.Context, c *conn.Conn) error {
				s, err := c.ServerVersion(ctx)
				if errors.Is(err, conn.ErrNoVersion) {
					return fmt.Errorf("driver %s does not report a server version", cfg.Driver)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Server Version: %s\n", s)

				if err := version.CheckServer(s, cfg.MinServerVersion); err != nil {
					return err
				}
				if cfg.MinServerVersion != "" {
					ui.Success(out(cmd), "server satisfies minimum version %s", cfg.MinServerVersion)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&server, "server", false, "also connect and report the server version")
	return cmd
}
