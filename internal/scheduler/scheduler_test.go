package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashcards/internal/consistency"
	"github.com/example/flashcards/internal/graph"
)

type fakeRepairer struct {
	calls  atomic.Int32
	report consistency.Report
	err    error
}

func (f *fakeRepairer) Repair(ctx context.Context) (consistency.Report, error) {
	f.calls.Add(1)
	return f.report, f.err
}

func TestSchedulerRunsRepair(t *testing.T) {
	repairer := &fakeRepairer{}
	s := New(repairer, 20*time.Millisecond, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return repairer.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerDisabled(t *testing.T) {
	repairer := &fakeRepairer{}
	s := New(repairer, 0, nil)
	require.NoError(t, s.Start())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Zero(t, repairer.calls.Load())
}

func TestRunNow(t *testing.T) {
	repairer := &fakeRepairer{report: consistency.Report{MissingChildren: []graph.Edge{{From: 1, To: 2}}}}
	s := New(repairer, time.Hour, nil)

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, int32(1), repairer.calls.Load())

	repairer.err = errors.New("store down")
	_, err = s.RunNow(context.Background())
	assert.EqualError(t, err, "store down")
}
