package maintenance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	calls int
	err   error
}

func (f *fakePruner) PruneExpiredLinkStates() (int64, error) {
	f.calls++
	return 2, f.err
}

type fakeSweeper struct {
	calls int
}

func (f *fakeSweeper) DeleteOrphans() (int64, error) {
	f.calls++
	return 0, nil
}

func TestNewRunnerRejectsBadSchedule(t *testing.T) {
	_, err := NewRunner("not a cron line", &fakePruner{}, &fakeSweeper{}, nil)
	require.Error(t, err)
	require.ErrorContains(t, err, "invalid maintenance schedule")
}

func TestNewRunnerAcceptsStandardExpressions(t *testing.T) {
	for _, expr := range []string{"0 4 * * *", "*/15 * * * *", "30 2 1 * 0"} {
		_, err := NewRunner(expr, &fakePruner{}, &fakeSweeper{}, nil)
		require.NoError(t, err, "expression %q", expr)
	}
}

func TestRunOnceExecutesAllJobs(t *testing.T) {
	pruner := &fakePruner{}
	sweeper := &fakeSweeper{}

	runner, err := NewRunner("0 4 * * *", pruner, sweeper, nil)
	require.NoError(t, err)

	runner.RunOnce()
	require.Equal(t, 1, pruner.calls)
	require.Equal(t, 1, sweeper.calls)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	pruner := &fakePruner{err: errors.New("db locked")}
	sweeper := &fakeSweeper{}

	runner, err := NewRunner("0 4 * * *", pruner, sweeper, nil)
	require.NoError(t, err)

	runner.RunOnce()
	require.Equal(t, 1, sweeper.calls)
}

func TestStartStop(t *testing.T) {
	runner, err := NewRunner("0 4 * * *", &fakePruner{}, &fakeSweeper{}, nil)
	require.NoError(t, err)

	runner.Start()

	done := make(chan struct{})
	go func() {
		runner.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
