package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sentMail struct {
	to, subject, body string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mockSender) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func setupOutbox(t *testing.T) (*redis.Client, *common.RedisQueueService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	q := common.NewRedisQueueService(client)
	if err := q.CreateConsumerGroup(context.Background(), constants.MailOutboxStream, constants.MailOutboxGroup); err != nil {
		t.Fatalf("CreateConsumerGroup failed: %v", err)
	}
	return client, q
}

func pendingCount(t *testing.T, q *common.RedisQueueService) int64 {
	t.Helper()
	n, err := q.GetPendingCount(context.Background(), constants.MailOutboxStream, constants.MailOutboxGroup)
	if err != nil {
		t.Fatalf("GetPendingCount failed: %v", err)
	}
	return n
}

func TestMailQueueWorker_DeliversAndAcks(t *testing.T) {
	_, q := setupOutbox(t)
	ctx := context.Background()
	sender := &mockSender{}
	w := NewMailQueueWorker("test", q, sender, nil)

	err := q.EnqueueMail(ctx, constants.MailOutboxStream, &common.MailQueueItem{
		Kind:       common.MailKindActivation,
		To:         "p@x.com",
		Params:     map[string]string{"code": "123456"},
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("EnqueueMail failed: %v", err)
	}

	ok, handled, err := w.ProcessOne(ctx, "test-0", -1)
	if err != nil || !handled || !ok {
		t.Fatalf("Expected a delivered message, got ok=%v handled=%v err=%v", ok, handled, err)
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "p@x.com" {
		t.Fatalf("Unexpected deliveries %+v", sender.sent)
	}
	if pendingCount(t, q) != 0 {
		t.Error("Expected the message to be acknowledged")
	}

	_, handled, err = w.ProcessOne(ctx, "test-0", -1)
	if err != nil || handled {
		t.Errorf("Expected an empty stream, got handled=%v err=%v", handled, err)
	}
}

func TestMailQueueWorker_AcksFailedDelivery(t *testing.T) {
	_, q := setupOutbox(t)
	ctx := context.Background()
	sender := &mockSender{err: errors.New("relay down")}
	w := NewMailQueueWorker("test", q, sender, nil)

	_ = q.EnqueueMail(ctx, constants.MailOutboxStream, &common.MailQueueItem{
		Kind: common.MailKindPasswordResetConfirm,
		To:   "p@x.com",
	})

	ok, handled, err := w.ProcessOne(ctx, "test-0", -1)
	if err != nil || !handled || ok {
		t.Fatalf("Expected a handled failure, got ok=%v handled=%v err=%v", ok, handled, err)
	}
	if pendingCount(t, q) != 0 {
		t.Error("Expected the failed message to be acknowledged")
	}
}

func TestMailQueueWorker_DropsUndecodableMessage(t *testing.T) {
	client, q := setupOutbox(t)
	ctx := context.Background()
	sender := &mockSender{}
	w := NewMailQueueWorker("test", q, sender, nil)

	err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: constants.MailOutboxStream,
		Values: map[string]interface{}{"data": "{not json"},
	}).Err()
	if err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}

	ok, handled, err := w.ProcessOne(ctx, "test-0", -1)
	if err != nil || !handled || ok {
		t.Fatalf("Expected a dropped message, got ok=%v handled=%v err=%v", ok, handled, err)
	}
	if len(sender.sent) != 0 {
		t.Error("Expected nothing to be sent")
	}
	if pendingCount(t, q) != 0 {
		t.Error("Expected the undecodable message to be acknowledged")
	}
}

func TestMailQueueMonitor_TrimsLongStream(t *testing.T) {
	client, q := setupOutbox(t)
	ctx := context.Background()

	pipe := client.Pipeline()
	for i := 0; i < outboxMaxLen+5; i++ {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: constants.MailOutboxStream,
			Values: map[string]interface{}{"data": "{}"},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}

	NewMailQueueMonitor(q, nil).Check(ctx)

	n, err := q.GetQueueLength(ctx, constants.MailOutboxStream)
	if err != nil {
		t.Fatalf("GetQueueLength failed: %v", err)
	}
	if n > outboxMaxLen {
		t.Errorf("Expected stream trimmed to %d, got %d", outboxMaxLen, n)
	}
}
