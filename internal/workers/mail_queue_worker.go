package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
	"infinite-experiment/clubhouse/internal/providers"
)

// MailQueueWorker drains the mail outbox stream and hands each message to a
// sender.
type MailQueueWorker struct {
	workerID   string
	stream     string
	group      string
	redisQueue *common.RedisQueueService
	sender     providers.MailSender
	metrics    *metrics.MetricsRegistry
}

func NewMailQueueWorker(
	workerID string,
	redisQueue *common.RedisQueueService,
	sender providers.MailSender,
	m *metrics.MetricsRegistry,
) *MailQueueWorker {
	return &MailQueueWorker{
		workerID:   workerID,
		stream:     constants.MailOutboxStream,
		group:      constants.MailOutboxGroup,
		redisQueue: redisQueue,
		sender:     sender,
		metrics:    m,
	}
}

// Start runs numWorkers consumers plus a stale-message claimer until ctx ends.
func (w *MailQueueWorker) Start(ctx context.Context, numWorkers int) error {
	logging.Info("Starting mail queue workers", "count", numWorkers, "worker_id", w.workerID)

	if err := w.redisQueue.CreateConsumerGroup(ctx, w.stream, w.group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		consumer := fmt.Sprintf("%s-%d", w.workerID, i)
		go func() {
			defer wg.Done()
			w.processQueue(ctx, consumer)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.claimStaleMessages(ctx)
	}()

	wg.Wait()
	logging.Info("Mail queue workers stopped", "worker_id", w.workerID)
	return nil
}

func (w *MailQueueWorker) processQueue(ctx context.Context, consumer string) {
	sent, failed := 0, 0
	for {
		select {
		case <-ctx.Done():
			logging.Info("Mail consumer shutting down", "consumer", consumer, "sent", sent, "failed", failed)
			return
		default:
			ok, handled, err := w.ProcessOne(ctx, consumer, 5*time.Second)
			if err != nil {
				logging.Error("Mail dequeue failed", "consumer", consumer, "error", err.Error())
				time.Sleep(time.Second)
				continue
			}
			if !handled {
				continue
			}
			if ok {
				sent++
			} else {
				failed++
			}
		}
	}
}

// ProcessOne reads and delivers at most one message. handled is false when the
// block time passed with nothing to read. Every read message is acknowledged,
// delivered or not.
func (w *MailQueueWorker) ProcessOne(ctx context.Context, consumer string, block time.Duration) (ok bool, handled bool, err error) {
	item, messageID, err := w.redisQueue.DequeueMail(ctx, w.stream, w.group, consumer, block)
	if err != nil && messageID == "" {
		return false, false, err
	}
	if messageID == "" {
		return false, false, nil
	}

	if err != nil {
		logging.Warn("Dropping undecodable outbox message", "message_id", messageID, "error", err.Error())
	} else {
		ok = w.deliver(ctx, item)
	}

	if err := w.redisQueue.Ack(ctx, w.stream, w.group, messageID); err != nil {
		logging.Error("Failed to ack outbox message", "message_id", messageID, "error", err.Error())
	}
	return ok, true, nil
}

func (w *MailQueueWorker) deliver(ctx context.Context, item *common.MailQueueItem) bool {
	subject, body, err := providers.RenderMail(item)
	if err != nil {
		logging.Warn("Cannot render outbox message", "kind", item.Kind, "error", err.Error())
		w.metrics.ObserveMail(item.Kind, "invalid")
		return false
	}
	if err := w.sender.Send(ctx, item.To, subject, body); err != nil {
		logging.Error("Mail delivery failed", "kind", item.Kind, "to", common.MaskEmail(item.To), "error", err.Error())
		w.metrics.ObserveMail(item.Kind, "failed")
		return false
	}
	w.metrics.ObserveMail(item.Kind, "sent")
	return true
}

// claimStaleMessages periodically takes over messages a dead consumer left behind
func (w *MailQueueWorker) claimStaleMessages(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	claimer := w.workerID + "-claimer"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			items, ids, err := w.redisQueue.ClaimStaleMail(ctx, w.stream, w.group, claimer, 5*time.Minute)
			if err != nil {
				logging.Error("Failed to claim stale mail", "error", err.Error())
				continue
			}
			if len(items) > 0 {
				logging.Info("Claimed stale mail", "count", len(items))
			}
			for i, item := range items {
				w.deliver(ctx, item)
				if err := w.redisQueue.Ack(ctx, w.stream, w.group, ids[i]); err != nil {
					logging.Error("Failed to ack claimed message", "message_id", ids[i], "error", err.Error())
				}
			}
		}
	}
}
