package sales

import (
	"context"
	"time"

	"go-biz-server/internal/metrics"
	"go-biz-server/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper fails PendingPayment transactions whose callback never arrived,
// so every pending payment eventually reaches a terminal state.
type Sweeper struct {
	db       *gorm.DB
	log      *zap.Logger
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(db *gorm.DB, log *zap.Logger, timeout, interval time.Duration) *Sweeper {
	return &Sweeper{db: db, log: log, timeout: timeout, interval: interval, now: time.Now}
}

// Run loops until the context is cancelled. Call it in its own goroutine.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.Sweep(ctx); err != nil {
				w.log.Error("payment sweep failed", zap.Error(err))
			} else if n > 0 {
				w.log.Info("expired stale pending payments", zap.Int64("count", n))
			}
		}
	}
}

// Sweep fails every PendingPayment transaction whose push was accepted
// more than the timeout ago. The window is anchored on pending_at, not
// the creation time: a sale may sit Created for a while before a retried
// push succeeds, and the customer still gets the full window to approve.
// Same conditional update as the callback path, so a callback landing at
// the same moment wins or loses cleanly, never both.
func (w *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.timeout)

	res := w.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ? AND pending_at < ?", models.StatusPendingPayment, cutoff).
		Update("status", models.StatusFailed)
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		metrics.PaymentsExpired.Add(float64(res.RowsAffected))
	}
	return res.RowsAffected, nil
}
