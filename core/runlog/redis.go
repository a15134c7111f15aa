package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the run log in a Redis list, in append order, with a
// hash indexing the latest record of every run id.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects to the redis:// URL and pings it.
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if prefix == "" {
		prefix = "vpp:runs"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisStore) listKey() string  { return s.prefix + ":log" }
func (s *RedisStore) indexKey() string { return s.prefix + ":by-id" }

func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.listKey(), data)
		p.HSet(ctx, s.indexKey(), rec.ID, data)
		return nil
	})
	return err
}

func (s *RedisStore) Query(ctx context.Context, q Query) ([]Record, error) {
	raw, err := s.rdb.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var res []Record
	for i, line := range raw {
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", s.listKey(), i, err)
		}
		if q.match(r) {
			res = append(res, r)
		}
	}
	return q.limit(res), nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	data, err := s.rdb.HGet(ctx, s.indexKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
