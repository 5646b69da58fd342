package redis

import (
	"context"

	"github.com/4406arthur/copilot/domain"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	// KeyPrefix namespaces every state key.
	KeyPrefix = "copilot:"
	// indexKey is a set holding every key written, so Clear only removes ours.
	indexKey = KeyPrefix + "__keys"
)

//Store keeps client state in redis so several processes can share one session
type Store struct {
	rdb *redis.Client
}

//NewStore connects and pings
func NewStore(ctx context.Context, addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(err, "connect redis %s", addr)
	}
	return &Store{rdb: rdb}, nil
}

//NewStoreWithClient wraps an existing client
func NewStoreWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, KeyPrefix+key).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", key)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, KeyPrefix+key, value, 0)
		pipe.SAdd(ctx, indexKey, key)
		return nil
	})
	return errors.Wrapf(err, "write %s", key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, KeyPrefix+key)
		pipe.SRem(ctx, indexKey, key)
		return nil
	})
	return errors.Wrapf(err, "delete %s", key)
}

func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return errors.Wrap(err, "list state keys")
	}
	full := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		full = append(full, KeyPrefix+k)
	}
	full = append(full, indexKey)
	return errors.Wrap(s.rdb.Del(ctx, full...).Err(), "clear client state")
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
