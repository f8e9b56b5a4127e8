package conn_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/driver"
	"github.com/satishbabariya/pgorm/driver/drivertest"
	"github.com/satishbabariya/pgorm/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func single(col string, v any) *driver.Raw {
	return drivertest.Tuples(drivertest.NewRows([]string{col}, []any{v}))
}

func firstValue(t *testing.T, res result.Result, col string) string {
	t.Helper()
	q, ok := res.(*result.QueryResult)
	require.True(t, ok, "expected a query result, got %T", res)
	row, err := q.NthRow(0)
	require.NoError(t, err)
	return row.String(col)
}

func TestQueryLastResultIsAuthoritative(t *testing.T) {
	c, d := newConn(t)
	ctx := context.Background()
	d.On("SELECT 1; SELECT 2", single("n", 1), single("n", 2))

	res, err := c.Query(ctx, "SELECT 1; SELECT 2")
	require.NoError(t, err)
	assert.Equal(t, "2", firstValue(t, res, "n"))
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())
}

func TestQueryModify(t *testing.T) {
	c, d := newConn(t)
	d.On("DELETE FROM t", drivertest.Modified(4))

	n, err := c.Exec(context.Background(), "DELETE FROM t")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	d.On("SELECT 1", single("n", 1))
	_, err = c.Exec(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, conn.ErrReturnedRows)
}

func TestQueryConnectionErrors(t *testing.T) {
	c, d := newConn(t)
	ctx := context.Background()

	d.FailDispatch("SELECT 1", errors.New("broken pipe"))
	_, err := c.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, conn.ErrConnection)
	assert.ErrorContains(t, err, "broken pipe")

	d.On("SELECT 2")
	_, err = c.Query(ctx, "SELECT 2")
	assert.ErrorIs(t, err, conn.ErrConnection)

	d.OnFunc("SELECT 3", func() ([]*driver.Raw, error) {
		return nil, errors.New("unexpected EOF")
	})
	_, err = c.Query(ctx, "SELECT 3")
	var connErr *conn.ConnError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "drain", connErr.Op)

	// The connection stays usable.
	_, err = c.Query(ctx, "SELECT 4")
	assert.NoError(t, err)
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())
}

func TestQueryStatementError(t *testing.T) {
	c, d := newConn(t)
	d.On("SELECT * FROM missing", drivertest.Failed(`relation "missing" does not exist`))

	_, err := c.Query(context.Background(), "SELECT * FROM missing")
	assert.ErrorIs(t, err, result.ErrStatement)
	assert.ErrorContains(t, err, "missing")
}

func TestSecondCallerDrainsPriorAndRunsSynchronously(t *testing.T) {
	c, d := newConn(t, conn.WithRescheduleInterval(time.Hour))
	ctx := context.Background()
	d.On("SELECT 'first'", single("v", "first"))
	d.On("SELECT 'second'", single("v", "second"))

	releaseReady := d.HoldReady()
	defer releaseReady()

	type outcome struct {
		res result.Result
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := c.Query(ctx, "SELECT 'first'")
		firstDone <- outcome{res, err}
	}()

	require.Eventually(t, func() bool {
		return c.PipelineStatus() == conn.PipelineAwaitingDispatch
	}, time.Second, time.Millisecond)

	_, err := c.MultiQuery(ctx, "SELECT 'multi'")
	assert.ErrorIs(t, err, conn.ErrRequestInFlight)

	res, err := c.Query(ctx, "SELECT 'second'")
	require.NoError(t, err)
	assert.Equal(t, "second", firstValue(t, res, "v"))
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())
	assert.Equal(t, []string{"SELECT 'first'", "SELECT 'second'"}, d.Statements())

	select {
	case <-firstDone:
		t.Fatal("first caller resumed before the driver reported ready")
	default:
	}

	releaseReady()
	got := <-firstDone
	require.NoError(t, got.err)
	assert.Equal(t, "first", firstValue(t, got.res, "v"))
}

func TestFirstCallerDrainsItsOwnResult(t *testing.T) {
	c, d := newConn(t)
	d.Latency = 5 * time.Millisecond
	d.On("SELECT 'slow'", single("v", "slow"))

	res, err := c.Query(context.Background(), "SELECT 'slow'")
	require.NoError(t, err)
	assert.Equal(t, "slow", firstValue(t, res, "v"))
}

func TestMultiQuery(t *testing.T) {
	c, d := newConn(t)
	d.On("INSERT INTO t VALUES (1); SELECT n FROM t",
		drivertest.Modified(1),
		single("n", 1),
	)

	results, err := c.MultiQuery(context.Background(), "INSERT INTO t VALUES (1); SELECT n FROM t")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, result.ModifyResult{AffectedRows: 1, Tag: "UPDATE 1"}, results[0])
	assert.Equal(t, "1", firstValue(t, results[1], "n"))
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())
}

func TestMultiQueryStopsAtFailingStatement(t *testing.T) {
	c, d := newConn(t)
	ctx := context.Background()
	batch := "INSERT INTO t VALUES (1); SELECT * FROM missing; SELECT 2"
	d.On(batch, drivertest.Modified(1), drivertest.Failed(`relation "missing" does not exist`))

	results, err := c.MultiQuery(ctx, batch)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, result.ErrStatement)
	assert.ErrorContains(t, err, "missing")
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())

	_, err = c.Query(ctx, "SELECT 3")
	assert.NoError(t, err)
}

func TestCallerDeadlineDoesNotAbandonStatement(t *testing.T) {
	c, d := newConn(t)
	d.On("SELECT 'late'", single("v", "late"))
	release := d.Hold()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	type outcome struct {
		res result.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.Query(ctx, "SELECT 'late'")
		done <- outcome{res, err}
	}()

	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	release()

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, "late", firstValue(t, got.res, "v"))
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())
}

func TestSuspendedCallerResumesAfterCancel(t *testing.T) {
	c, d := newConn(t, conn.WithRescheduleInterval(time.Hour))
	d.On("SELECT 'first'", single("v", "first"))
	releaseReady := d.HoldReady()
	defer releaseReady()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var got result.Result
	go func() {
		res, err := c.Query(ctx, "SELECT 'first'")
		got = res
		done <- err
	}()
	require.Eventually(t, func() bool {
		return c.PipelineStatus() == conn.PipelineAwaitingDispatch
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		t.Fatalf("suspended caller returned early: %v", err)
	case <-time.After(10 * time.Millisecond):
	}

	// The next caller settles the suspended statement into its slot.
	_, err := c.Query(context.Background(), "SELECT 'second'")
	require.NoError(t, err)
	releaseReady()
	require.NoError(t, <-done)
	assert.Equal(t, "first", firstValue(t, got, "v"))
}

func TestConcurrentCallersGetTheirOwnResults(t *testing.T) {
	c, d := newConn(t)
	d.Latency = time.Millisecond

	const callers = 25
	for i := 0; i < callers; i++ {
		d.On(fmt.Sprintf("SELECT %d", i), single("n", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Query(context.Background(), fmt.Sprintf("SELECT %d", i))
			if err != nil {
				errs <- err
				return
			}
			q := res.(*result.QueryResult)
			row, err := q.NthRow(0)
			if err != nil {
				errs <- err
				return
			}
			if got := row.String("n"); got != fmt.Sprint(i) {
				errs <- fmt.Errorf("caller %d got result %s", i, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, d.Statements(), callers)
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())
}

func TestCloseSettlesSuspendedCaller(t *testing.T) {
	c, d := newConn(t, conn.WithRescheduleInterval(time.Hour))
	ctx := context.Background()
	d.On("SELECT 1", single("n", 1))
	releaseReady := d.HoldReady()

	done := make(chan error, 1)
	go func() {
		_, err := c.Query(ctx, "SELECT 1")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return c.PipelineStatus() == conn.PipelineAwaitingDispatch
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Close(ctx))
	releaseReady()
	assert.NoError(t, <-done)
}

func TestServerVersionSettlesSuspendedCaller(t *testing.T) {
	c, d := newConn(t, conn.WithRescheduleInterval(time.Hour))
	ctx := context.Background()
	d.Version = "16.2"
	d.On("SELECT 1", single("n", 1))
	releaseReady := d.HoldReady()
	defer releaseReady()

	done := make(chan error, 1)
	go func() {
		_, err := c.Query(ctx, "SELECT 1")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return c.PipelineStatus() == conn.PipelineAwaitingDispatch
	}, time.Second, time.Millisecond)

	v, err := c.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "16.2", v)
	assert.Equal(t, conn.PipelineIdle, c.PipelineStatus())

	releaseReady()
	assert.NoError(t, <-done)
}

func TestServerVersionUnsupported(t *testing.T) {
	c := conn.New(struct{ driver.Driver }{drivertest.New()})
	_, err := c.ServerVersion(context.Background())
	assert.ErrorIs(t, err, conn.ErrNoVersion)
}

func TestEscaping(t *testing.T) {
	c, _ := newConn(t)
	assert.Equal(t, `"Name"`, c.EscapeIdentifier("Name"))
	assert.Equal(t, `'O''Brien'`, c.EscapeValue("O'Brien"))
	assert.Equal(t, "NULL", c.EscapeValue(nil))
	assert.Equal(t, "ARRAY['1','2']", c.EscapeValue([]int{1, 2}))
}

func TestProvider(t *testing.T) {
	c, _ := newConn(t, conn.WithID("primary"))
	assert.Equal(t, "primary", c.ID())
	assert.Same(t, c, c.Conn())

	prev := conn.Default()
	t.Cleanup(func() { conn.SetDefault(prev) })

	p := conn.DefaultProvider()
	conn.SetDefault(c)
	assert.Same(t, c, p.Conn())
}
