package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/assessflow/internal/flow"
	"github.com/Alijeyrad/assessflow/pkg/redis"
)

const (
	defaultTTL       = 12 * time.Hour
	maxTxAttempts    = 8
	flowKeyNamespace = "flow"
)

// Redis stores flows as JSON strings. Updates run in a WATCH/MULTI
// transaction and are retried when another writer got there first.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedis(rdb *goredis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func key(operatorID string) string {
	return redis.Key(flowKeyNamespace, operatorID)
}

func (r *Redis) Load(ctx context.Context, operatorID string) (*flow.Flow, error) {
	return r.get(ctx, r.rdb, key(operatorID))
}

func (r *Redis) Update(ctx context.Context, operatorID string, fn func(*flow.Flow) error) (*flow.Flow, error) {
	k := key(operatorID)

	var result *flow.Flow
	txf := func(tx *goredis.Tx) error {
		f, err := r.get(ctx, tx, k)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode flow: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, b, r.ttl)
			return nil
		})
		if err == nil {
			result = f
		}
		return err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, k)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			return nil, err
		}
		slog.Debug("store: flow changed during update, retrying", "operator_id", operatorID, "attempt", attempt)
	}
	return nil, ErrConflict
}

func (r *Redis) Delete(ctx context.Context, operatorID string) error {
	if err := r.rdb.Del(ctx, key(operatorID)).Err(); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

func (r *Redis) get(ctx context.Context, c goredis.Cmdable, k string) (*flow.Flow, error) {
	b, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, goredis.Nil) {
		return flow.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	f := flow.New()
	if err := json.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	return f, nil
}
