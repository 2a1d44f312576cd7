package workers

import (
	"context"
	"time"

	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
	"infinite-experiment/clubhouse/internal/providers"
)

type WorkersContainer struct {
	Tasks   *TaskPool
	Mail    *MailQueueWorker
	Monitor *MailQueueMonitor
}

// InitWorkers starts the background task pool and, when an outbox queue is
// given, the mail consumers and their monitor.
func InitWorkers(
	ctx context.Context,
	taskWorkers, taskQueueSize int,
	redQ *common.RedisQueueService,
	sender providers.MailSender,
	m *metrics.MetricsRegistry,
) *WorkersContainer {
	wc := &WorkersContainer{
		Tasks: NewTaskPool(taskWorkers, taskQueueSize, m),
	}

	if redQ == nil {
		return wc
	}

	wc.Mail = NewMailQueueWorker("mail", redQ, sender, m)
	wc.Monitor = NewMailQueueMonitor(redQ, m)

	go func() {
		if err := wc.Mail.Start(ctx, 2); err != nil {
			logging.Error("Mail queue worker exited", "error", err.Error())
		}
	}()
	go wc.Monitor.Start(ctx, 30*time.Second)

	return wc
}
