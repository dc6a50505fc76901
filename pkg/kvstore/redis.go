package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/enum"
	"github.com/fystack/stacks-connector/pkg/infra"
	"github.com/redis/go-redis/v9"
)

const (
	redisOpTimeout = 5 * time.Second
	redisScanCount = 100
)

// RedisStore implements infra.KVStore on plain redis strings.
type RedisStore struct {
	client infra.RedisClient
	prefix string
	codec  infra.Codec
}

func NewRedisStore(client infra.RedisClient, prefix string, codec infra.Codec) *RedisStore {
	if codec == nil {
		codec = infra.JSON
	}
	return &RedisStore{client: client, prefix: prefix, codec: codec}
}

func (r *RedisStore) GetName() string {
	return string(enum.KVStoreTypeRedis)
}

func (r *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (r *RedisStore) get(k string) (string, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	v, err := r.client.Get(ctx, joinKey(r.prefix, k))
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return v, err
}

func (r *RedisStore) set(k string, v any) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, joinKey(r.prefix, k), v, 0)
}

func (r *RedisStore) Set(k string, v string) error {
	if k == "" {
		return ErrKeyEmpty
	}
	return r.set(k, v)
}

func (r *RedisStore) Get(k string) (string, error) {
	if k == "" {
		return "", ErrKeyEmpty
	}
	return r.get(k)
}

func (r *RedisStore) SetAny(k string, v any) error {
	if err := checkKeyAndValue(k, v); err != nil {
		return err
	}
	data, err := r.codec.Marshal(v)
	if err != nil {
		return err
	}
	return r.set(k, data)
}

func (r *RedisStore) GetAny(k string, v any) (bool, error) {
	if err := checkKeyAndValue(k, v); err != nil {
		return false, err
	}
	data, err := r.get(k)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, r.codec.Unmarshal([]byte(data), v)
}

// List scans keys matching prefix*. Keys are returned without the store
// prefix.
func (r *RedisStore) List(prefix string) ([]*infra.KVPair, error) {
	if prefix == "" {
		return nil, ErrPrefixEmpty
	}
	full := joinKey(r.prefix, prefix)
	strip := len(full) - len(prefix)

	ctx, cancel := r.ctx()
	defer cancel()

	rc := r.client.GetClient()
	result := make([]*infra.KVPair, 0)
	iter := rc.Scan(ctx, 0, full+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		v, err := rc.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, &infra.KVPair{Key: key[strip:], Value: v})
	}
	return result, iter.Err()
}

func (r *RedisStore) Delete(k string) error {
	if k == "" {
		return ErrKeyEmpty
	}
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, joinKey(r.prefix, k))
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
