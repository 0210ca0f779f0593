package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GoSim-25-26J-441/playground-sync/internal/metrics"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakePurger) PurgeDeleted(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, olderThan)
	return f.n, f.err
}

func TestScheduler_RunOnce(t *testing.T) {
	purger := &fakePurger{n: 3}
	m := metrics.NewSyncMetrics(prometheus.NewRegistry())
	s := NewScheduler(purger, "", 30*24*time.Hour, zaptest.NewLogger(t), m)
	now := time.Date(2026, 4, 30, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, purger.cutoffs, 1)
	assert.Equal(t, time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC), purger.cutoffs[0])
	assert.Equal(t, float64(3), testutil.ToFloat64(m.TombstonesPurged))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemoteOps.WithLabelValues("purge", "ok")))
}

func TestScheduler_RunOnceFailure(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down")}
	s := NewScheduler(purger, "", time.Hour, zaptest.NewLogger(t), nil)

	_, err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(&fakePurger{}, DefaultSchedule, time.Hour, zaptest.NewLogger(t), nil)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakePurger{}, "every night", time.Hour, zaptest.NewLogger(t), nil)
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every night")
}
