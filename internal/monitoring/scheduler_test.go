package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaintainer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeMaintainer) Maintain(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(&fakeMaintainer{}, "every now and then")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid maintenance schedule")
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	m := &fakeMaintainer{}
	s, err := NewScheduler(m, "@every 1s")
	require.NoError(t, err)

	s.Run()
	defer s.Stop()

	require.Eventually(t, func() bool { return s.Runs() >= 1 }, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, m.calls.Load(), int32(1))
}

func TestScheduler_FailedRunNotCounted(t *testing.T) {
	m := &fakeMaintainer{err: errors.New("disk full")}
	s, err := NewScheduler(m, "@daily")
	require.NoError(t, err)

	s.runMaintenance()
	assert.Equal(t, int32(1), m.calls.Load())
	assert.Zero(t, s.Runs())
}

func TestCollectHostStats(t *testing.T) {
	stats, err := CollectHostStats(context.Background())
	if err != nil {
		t.Skipf("host stats unavailable here: %v", err)
	}
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.MemoryTotalMB)
}
