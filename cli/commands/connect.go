package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgorm/cli/internal/config"
	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/driver"
	"github.com/satishbabariya/pgorm/driver/pgwire"
	"github.com/satishbabariya/pgorm/driver/sqldb"
	"github.com/satishbabariya/pgorm/internal/debug"
	"github.com/satishbabariya/pgorm/retry"
)

const pgwireDriver = "pgwire"

// open connects the configured driver, retrying transient failures.
func open(ctx context.Context, cfg *config.Config) (driver.Driver, error) {
	if cfg.DSN == "" && !strings.HasPrefix(cfg.Driver, "sqlite") {
		return nil, fmt.Errorf("no data source configured: set --dsn, PGORM_DSN or DATABASE_URL")
	}

	var dial func(context.Context) (driver.Driver, error)
	if cfg.Driver == pgwireDriver {
		dial = func(ctx context.Context) (driver.Driver, error) {
			d, err := pgwire.Connect(ctx, cfg.DSN)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	} else {
		if _, err := sqldb.Lookup(cfg.Driver); err != nil {
			return nil, fmt.Errorf("%w (or %s)", err, pgwireDriver)
		}
		dial = func(ctx context.Context) (driver.Driver, error) {
			d, err := sqldb.Open(ctx, cfg.Driver, cfg.DSN)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	}

	return retry.DoValue(ctx, dial, retry.WithMaxAttempts(cfg.Retries))
}

// withConn runs fn on a connection that is closed afterwards.
func withConn(cmd *cobra.Command, fn func(ctx context.Context, c *conn.Conn) error) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	d, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	c := conn.New(d, conn.WithRescheduleInterval(cfg.RescheduleInterval))
	debug.Debug("connected", "driver", cfg.Driver, "conn_id", c.ID())

	err = fn(ctx, c)
	if cerr := c.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
