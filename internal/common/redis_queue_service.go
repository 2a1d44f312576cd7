package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"infinite-experiment/clubhouse/internal/logging"

	"github.com/redis/go-redis/v9"
)

// Mail kinds carried on the outbox stream
const (
	MailKindActivation           = "activation"
	MailKindPasswordReset        = "password_reset"
	MailKindPasswordResetConfirm = "password_reset_confirmation"
	MailKindLoginAlert           = "login_alert"
)

// MailQueueItem is one message waiting on the outbox stream
type MailQueueItem struct {
	Kind       string            `json:"kind"`
	To         string            `json:"to"`
	Params     map[string]string `json:"params,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// RedisQueueService provides the mail outbox on top of Redis Streams
type RedisQueueService struct {
	client *redis.Client
}

func NewRedisQueueService(client *redis.Client) *RedisQueueService {
	return &RedisQueueService{
		client: client,
	}
}

// EnqueueMail appends a message to the stream
func (s *RedisQueueService) EnqueueMail(ctx context.Context, streamName string, item *MailQueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal mail item: %w", err)
	}

	// XADD stream_name * data <json>
	args := &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// DequeueMail reads one new message for the consumer group.
// Returns (item, messageID, error); a nil item means the block time elapsed.
func (s *RedisQueueService) DequeueMail(ctx context.Context, streamName, groupName, consumerName string, blockTime time.Duration) (*MailQueueItem, string, error) {
	// XREADGROUP GROUP group consumer BLOCK milliseconds COUNT 1 STREAMS stream >
	args := &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: consumerName,
		Streams:  []string{streamName, ">"},
		Count:    1,
		Block:    blockTime,
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, "", nil
	}

	msg := streams[0].Messages[0]
	item, err := decodeMail(msg)
	if err != nil {
		return nil, msg.ID, err
	}
	return item, msg.ID, nil
}

// Ack acknowledges successful processing of a message
func (s *RedisQueueService) Ack(ctx context.Context, streamName, groupName, messageID string) error {
	return s.client.XAck(ctx, streamName, groupName, messageID).Err()
}

// CreateConsumerGroup creates the group for the stream if it doesn't exist
func (s *RedisQueueService) CreateConsumerGroup(ctx context.Context, streamName, groupName string) error {
	// XGROUP CREATE stream group 0 MKSTREAM
	err := s.client.XGroupCreateMkStream(ctx, streamName, groupName, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// GetQueueLength returns the number of entries in the stream
func (s *RedisQueueService) GetQueueLength(ctx context.Context, streamName string) (int64, error) {
	length, err := s.client.XLen(ctx, streamName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// GetPendingCount returns the number of unacknowledged messages for a group
func (s *RedisQueueService) GetPendingCount(ctx context.Context, streamName, groupName string) (int64, error) {
	pending, err := s.client.XPending(ctx, streamName, groupName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return pending.Count, nil
}

// ClaimStaleMail takes over messages another consumer left pending for longer
// than minIdleTime.
func (s *RedisQueueService) ClaimStaleMail(ctx context.Context, streamName, groupName, consumerName string, minIdleTime time.Duration) ([]*MailQueueItem, []string, error) {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: streamName,
		Group:  groupName,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	var staleIDs []string
	for _, p := range pending {
		if p.Idle >= minIdleTime {
			staleIDs = append(staleIDs, p.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil, nil, nil
	}

	messages, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   streamName,
		Group:    groupName,
		Consumer: consumerName,
		MinIdle:  minIdleTime,
		Messages: staleIDs,
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to claim stale messages: %w", err)
	}

	var items []*MailQueueItem
	var messageIDs []string
	for _, msg := range messages {
		item, err := decodeMail(msg)
		if err != nil {
			logging.Warn("Dropping undecodable outbox message", "message_id", msg.ID, "error", err.Error())
			continue
		}
		items = append(items, item)
		messageIDs = append(messageIDs, msg.ID)
	}

	return items, messageIDs, nil
}

func decodeMail(msg redis.XMessage) (*MailQueueItem, error) {
	dataStr, ok := msg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid message format: data field missing")
	}
	var item MailQueueItem
	if err := json.Unmarshal([]byte(dataStr), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mail item: %w", err)
	}
	return &item, nil
}

// TrimStream keeps only the most recent maxLen entries
func (s *RedisQueueService) TrimStream(ctx context.Context, streamName string, maxLen int64) error {
	return s.client.XTrimMaxLen(ctx, streamName, maxLen).Err()
}
