package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisSink publishes notifications as JSON messages on a Redis channel, for
// a mailer or pager process to consume.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
	now     func() time.Time
}

var _ Sink = (*RedisSink)(nil)

type envelope struct {
	Notification
	SentAt time.Time `json:"sentAt"`
}

func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel, now: time.Now}
}

func (s *RedisSink) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(envelope{Notification: n, SentAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = s.client.Publish(ctx, s.channel, body).Err()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", s.channel, err)
	}

	return nil
}
