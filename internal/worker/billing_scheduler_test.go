package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardflow/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubscriptionService struct {
	ports.SubscriptionService

	thresholds []time.Time
	processed  int
	err        error
}

func (s *stubSubscriptionService) ProcessDueSubscriptions(_ context.Context, threshold time.Time) (int, error) {
	s.thresholds = append(s.thresholds, threshold)
	return s.processed, s.err
}

func TestBillingSchedulerRunOncePassesCurrentTimeAsThreshold(t *testing.T) {
	subs := &stubSubscriptionService{processed: 3}
	clock := &fixedClock{now: workerTestTime}
	scheduler := NewBillingScheduler(subs, clock, "@every 1m", zerolog.Nop())

	scheduler.RunOnce(context.Background())

	require.Len(t, subs.thresholds, 1)
	assert.Equal(t, workerTestTime, subs.thresholds[0])
}

func TestBillingSchedulerRunOnceSwallowsPassError(t *testing.T) {
	subs := &stubSubscriptionService{err: errors.New("database unavailable")}
	scheduler := NewBillingScheduler(subs, &fixedClock{now: workerTestTime}, "@every 1m", zerolog.Nop())

	scheduler.RunOnce(context.Background())
	scheduler.RunOnce(context.Background())

	assert.Len(t, subs.thresholds, 2)
}

func TestBillingSchedulerStartRejectsBadCronSpec(t *testing.T) {
	scheduler := NewBillingScheduler(&stubSubscriptionService{}, ports.SystemClock{}, "not a cron spec", zerolog.Nop())
	assert.Error(t, scheduler.Start())
}

func TestBillingSchedulerStartAndStop(t *testing.T) {
	scheduler := NewBillingScheduler(&stubSubscriptionService{}, ports.SystemClock{}, "@every 1h", zerolog.Nop())
	require.NoError(t, scheduler.Start())
	scheduler.Stop()
}
