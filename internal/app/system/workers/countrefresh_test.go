package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	metricsstore "github.com/dalemusser/grouphub/internal/app/store/metrics"
	"github.com/dalemusser/grouphub/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCountRefresh_PublishesOnStart(t *testing.T) {
	m := metrics.New()
	var calls atomic.Int32
	w := newCountRefresh(func(context.Context) (metricsstore.Counts, error) {
		calls.Add(1)
		return metricsstore.Counts{Users: 3, Groups: 2, ActiveMembers: 5}, nil
	}, m, zap.NewNop(), time.Hour)

	w.Start()
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	w.Stop()

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Totals.WithLabelValues("users")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Totals.WithLabelValues("groups")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.Totals.WithLabelValues("active_members")))
}

func TestCountRefresh_Ticks(t *testing.T) {
	var calls atomic.Int32
	w := newCountRefresh(func(context.Context) (metricsstore.Counts, error) {
		calls.Add(1)
		return metricsstore.Counts{}, nil
	}, nil, zap.NewNop(), 10*time.Millisecond)

	w.Start()
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	w.Stop()
	w.Stop()
}

func TestCountRefresh_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	done := make(chan struct{})
	w := newCountRefresh(func(context.Context) (metricsstore.Counts, error) {
		defer close(done)
		return metricsstore.Counts{Users: 1}, errors.New("boom")
	}, m, zap.New(core), time.Hour)

	w.Start()
	<-done
	w.Stop()

	assert.Equal(t, 1, logs.FilterMessage("collection count failed").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Totals.WithLabelValues("users")))
}

func TestCountRefresh_StopBeforeStart(t *testing.T) {
	w := newCountRefresh(func(context.Context) (metricsstore.Counts, error) {
		return metricsstore.Counts{}, nil
	}, nil, zap.NewNop(), time.Minute)
	w.Stop()
}
