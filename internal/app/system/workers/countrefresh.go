// internal/app/system/workers/countrefresh.go
package workers

import (
	"context"
	"sync"
	"time"

	metricsstore "github.com/dalemusser/grouphub/internal/app/store/metrics"
	"github.com/dalemusser/grouphub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CountRefresh is a background worker that samples collection totals into
// the grouphub_store_documents gauge.
type CountRefresh struct {
	fetch    func(ctx context.Context) (metricsstore.Counts, error)
	metrics  *metrics.Metrics
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCountRefresh creates a refresher that counts db every interval.
func NewCountRefresh(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger, interval time.Duration) *CountRefresh {
	return newCountRefresh(func(ctx context.Context) (metricsstore.Counts, error) {
		return metricsstore.FetchCounts(ctx, db, time.Now().UTC())
	}, m, logger, interval)
}

func newCountRefresh(fetch func(context.Context) (metricsstore.Counts, error), m *metrics.Metrics, logger *zap.Logger, interval time.Duration) *CountRefresh {
	return &CountRefresh{
		fetch:    fetch,
		metrics:  m,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start samples once immediately, then on every tick.
func (w *CountRefresh) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("count refresh worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once, and before Start.
func (w *CountRefresh) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("count refresh worker stopped")
}

func (w *CountRefresh) run() {
	defer w.wg.Done()

	w.refresh()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refresh()
		}
	}
}

func (w *CountRefresh) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := w.fetch(ctx)
	if err != nil {
		// partial counts are still published
		w.log.Warn("collection count failed", zap.Error(err))
	}

	w.metrics.SetTotal("users", c.Users)
	w.metrics.SetTotal("groups", c.Groups)
	w.metrics.SetTotal("active_members", c.ActiveMembers)
	w.metrics.SetTotal("payments", c.Payments)
	w.metrics.SetTotal("pending_verifications", c.PendingVerifications)
}
