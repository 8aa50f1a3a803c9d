package events

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/assessflow/pkg/redis"
)

const defaultActivityLen = 1000

// Entry is one recorded event.
type Entry struct {
	ID      string          `json:"id"`
	Subject string          `json:"subject"`
	Event   json.RawMessage `json:"event"`
}

// Activity is a capped Redis stream of recent events.
type Activity struct {
	rdb    *goredis.Client
	stream string
	maxLen int64
}

func NewActivity(rdb *goredis.Client, maxLen int64) *Activity {
	if maxLen <= 0 {
		maxLen = defaultActivityLen
	}
	return &Activity{rdb: rdb, stream: redis.Key("activity"), maxLen: maxLen}
}

func (a *Activity) Record(ctx context.Context, subject string, data []byte) error {
	err := a.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: a.stream,
		MaxLen: a.maxLen,
		Approx: true,
		Values: map[string]any{"subject": subject, "event": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (a *Activity) Recent(ctx context.Context, n int64) ([]Entry, error) {
	msgs, err := a.rdb.XRevRangeN(ctx, a.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		subject, _ := m.Values["subject"].(string)
		data, _ := m.Values["event"].(string)
		e := Entry{ID: m.ID, Subject: subject}
		if json.Valid([]byte(data)) {
			e.Event = json.RawMessage(data)
		}
		out = append(out, e)
	}
	return out, nil
}
