package workers

import (
	"context"
	"time"

	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
)

const (
	pendingAlertThreshold = 500
	outboxMaxLen          = 10000
)

// MailQueueMonitor reports outbox backlog and keeps the stream bounded
type MailQueueMonitor struct {
	redisQueue *common.RedisQueueService
	metrics    *metrics.MetricsRegistry
}

func NewMailQueueMonitor(redisQueue *common.RedisQueueService, m *metrics.MetricsRegistry) *MailQueueMonitor {
	return &MailQueueMonitor{redisQueue: redisQueue, metrics: m}
}

func (m *MailQueueMonitor) Start(ctx context.Context, interval time.Duration) {
	logging.Info("Starting outbox monitoring", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Info("Outbox monitor shutting down")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check records the backlog and trims acknowledged history.
func (m *MailQueueMonitor) Check(ctx context.Context) {
	length, err := m.redisQueue.GetQueueLength(ctx, constants.MailOutboxStream)
	if err != nil {
		logging.Error("Failed to read outbox length", "error", err.Error())
		return
	}
	pending, err := m.redisQueue.GetPendingCount(ctx, constants.MailOutboxStream, constants.MailOutboxGroup)
	if err != nil {
		// group not created yet
		pending = 0
	}

	m.metrics.SetMailBacklog(length, pending)
	if pending > pendingAlertThreshold {
		logging.Warn("Outbox has many unacknowledged messages", "pending", pending, "length", length)
	}

	if length > outboxMaxLen {
		if err := m.redisQueue.TrimStream(ctx, constants.MailOutboxStream, outboxMaxLen); err != nil {
			logging.Error("Failed to trim outbox", "error", err.Error())
		}
	}
}
