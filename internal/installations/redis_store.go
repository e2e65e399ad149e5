package installations

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/crypto"
	"ghl-oauth-manager/internal/redis"

	goredis "github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix   = "ghl:installation:"
	redisExpiryIndex = "ghl:installations:by_expiry"
	maxTxRetries     = 25
)

// RedisStore keeps one JSON document per installation plus a sorted set of
// ids scored by expiry time. Updates use WATCH/MULTI and retry on conflict.
type RedisStore struct {
	rdb     *goredis.Client
	secrets secrets
	now     func() time.Time
}

// NewRedisStore creates a store on a connected client. The client is owned
// by the caller.
func NewRedisStore(client *redis.Client, cipher crypto.TokenCipher) (*RedisStore, error) {
	if client == nil {
		return nil, errors.ConfigError("redis client is required for the redis store")
	}
	return &RedisStore{
		rdb:     client.GetGoRedisClient(),
		secrets: newSecrets(cipher),
		now:     time.Now,
	}, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func expiryScore(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

func (s *RedisStore) encode(inst *Installation) ([]byte, error) {
	sealed, err := s.secrets.seal(inst)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealed)
}

func (s *RedisStore) decode(data []byte) (*Installation, error) {
	var inst Installation
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, errors.InternalError("failed to decode installation", err)
	}
	return s.secrets.open(&inst)
}

func (s *RedisStore) Create(ctx context.Context, inst *Installation) (string, error) {
	c, err := prepareCreate(inst, s.now())
	if err != nil {
		return "", err
	}
	data, err := s.encode(c)
	if err != nil {
		return "", err
	}

	key := redisKey(c.ID)
	err = s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return duplicateError(c.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, redisExpiryIndex, &goredis.Z{Score: expiryScore(c.ExpiresAt), Member: c.ID})
			return nil
		})
		return err
	}, key)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return "", err
		}
		return "", errors.ConnectionError("failed to create installation in redis", err)
	}
	return c.ID, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Installation, error) {
	data, err := s.rdb.Get(ctx, redisKey(id)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return nil, errors.InstallationNotFound(id)
	}
	if err != nil {
		return nil, errors.ConnectionError("failed to load installation from redis", err)
	}
	return s.decode(data)
}

func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*Installation) error) (*Installation, error) {
	key := redisKey(id)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var updated *Installation
		var mutateErr error

		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if stderrors.Is(err, goredis.Nil) {
				return errors.InstallationNotFound(id)
			}
			if err != nil {
				return err
			}

			current, err := s.decode(data)
			if err != nil {
				return err
			}
			if mutateErr = mutate(current); mutateErr != nil {
				return mutateErr
			}
			current.ID = id

			encoded, err := s.encode(current)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				pipe.ZAdd(ctx, redisExpiryIndex, &goredis.Z{Score: expiryScore(current.ExpiresAt), Member: id})
				return nil
			})
			if err == nil {
				updated = current
			}
			return err
		}, key)

		switch {
		case err == nil:
			return updated, nil
		case mutateErr != nil:
			return nil, mutateErr
		case stderrors.Is(err, goredis.TxFailedErr):
			continue
		}
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.ConnectionError("failed to update installation in redis", err)
	}

	return nil, errors.ConcurrentRefreshError(id).WithCause(goredis.TxFailedErr)
}

func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*Installation, error) {
	now := filter.now()
	rangeBy := &goredis.ZRangeBy{Min: "-inf", Max: "+inf"}
	switch {
	case filter.Expired:
		rangeBy.Max = strconv.FormatFloat(expiryScore(now), 'f', 3, 64)
	case filter.ExpiringWithin > 0:
		rangeBy.Min = "(" + strconv.FormatFloat(expiryScore(now), 'f', 3, 64)
		rangeBy.Max = strconv.FormatFloat(expiryScore(now.Add(filter.ExpiringWithin)), 'f', 3, 64)
	}

	ids, err := s.rdb.ZRangeByScore(ctx, redisExpiryIndex, rangeBy).Result()
	if err != nil {
		return nil, errors.ConnectionError("failed to read installation index", err)
	}
	if len(ids) == 0 {
		return []*Installation{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.ConnectionError("failed to load installations from redis", err)
	}

	all := make([]*Installation, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		inst, err := s.decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		all = append(all, inst)
	}
	return applyFilter(all, filter), nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, redisKey(id))
		pipe.ZRem(ctx, redisExpiryIndex, id)
		return nil
	})
	if err != nil {
		return errors.ConnectionError("failed to delete installation from redis", err)
	}
	if del.Val() == 0 {
		return errors.InstallationNotFound(id)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close is a no-op; the redis client is shared and closed by its owner.
func (s *RedisStore) Close() error { return nil }

var _ Store = (*RedisStore)(nil)
