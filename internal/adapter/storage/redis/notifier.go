package redis

import (
	"context"
	"fmt"
	"time"

	"token-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const notificationStream = "ledger:notifications"

// NotificationStream implements ports.NotificationSink by appending records
// to a Redis stream. XADD is append-only, matching the immutable notification
// channel the engine expects; observers consume with XREAD/XRANGE.
type NotificationStream struct {
	client *goredis.Client
	stream string
}

// NewNotificationStream creates a stream-backed notification sink.
func NewNotificationStream(client *goredis.Client) *NotificationStream {
	return &NotificationStream{
		client: client,
		stream: notificationStream,
	}
}

// Emit appends one notification record to the stream.
func (s *NotificationStream) Emit(ctx context.Context, n domain.Notification) error {
	values := map[string]interface{}{
		"id":         n.ID.String(),
		"kind":       string(n.Kind),
		"amount":     domain.FormatAmount(n.Amount),
		"emitted_at": n.EmittedAt.UTC().Format(time.RFC3339Nano),
	}
	if n.From != nil {
		values["from"] = n.From.Hex()
	}
	if n.To != nil {
		values["to"] = n.To.Hex()
	}

	if err := s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("redis append notification: %w", err)
	}
	return nil
}
