package recorder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/zeu5/evo-rl-tuning/types"
)

// DefaultRedisKey is the list the episode records are pushed to
const DefaultRedisKey = "evo-rl:episodes"

// RedisRecorder pushes every episode record to a redis list
type RedisRecorder struct {
	client *redis.Client
	key    string
}

var _ types.Recorder = &RedisRecorder{}

// NewRedisRecorder connects to the redis server at addr and checks that it
// is reachable
func NewRedisRecorder(ctx context.Context, addr, key string) (*RedisRecorder, error) {
	if key == "" {
		key = DefaultRedisKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %s", addr)
	}
	return &RedisRecorder{
		client: client,
		key:    key,
	}, nil
}

func (r *RedisRecorder) Key() string {
	return r.key
}

func (r *RedisRecorder) Record(ctx context.Context, rec *types.EpisodeRecord) error {
	bs, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding episode record")
	}
	if err := r.client.RPush(ctx, r.key, bs).Err(); err != nil {
		return errors.Wrapf(err, "pushing to %s", r.key)
	}
	return nil
}

// Records reads back the records stored under the key
func (r *RedisRecorder) Records(ctx context.Context) ([]*types.EpisodeRecord, error) {
	values, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*types.EpisodeRecord, 0, len(values))
	for _, v := range values {
		rec := &types.EpisodeRecord{}
		if err := json.Unmarshal([]byte(v), rec); err != nil {
			return nil, errors.Wrap(err, "decoding episode record")
		}
		out = append(out, rec)
	}
	return out, nil
}

// Clear deletes the list
func (r *RedisRecorder) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
