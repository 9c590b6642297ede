package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

const keyPrefix = "academia:session:"

type store struct {
	client *redis.Client
	now    func() time.Time
}

var _ session.Store = (*store)(nil) // interface compliance check

func NewStore(client *redis.Client) session.Store {
	return &store{client: client, now: time.Now}
}

// Open connects to the redis server configured for sessions.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Session.RedisAddr,
		Password: conf.Session.RedisPassword,
		DB:       conf.Session.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func key(id string) string { return keyPrefix + id }

// Save stores sess until it expires; redis evicts it then. A session past its expiry is refused with session.ErrExpired.
func (s *store) Save(ctx context.Context, sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshalling session")
	}

	var ttl time.Duration
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return session.ErrExpired
		}
	}
	return errors.Wrap(s.client.Set(ctx, key(sess.ID), data, ttl).Err(), "setting session")
}

func (s *store) Get(ctx context.Context, id string) (session.Session, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}

	var sess session.Session
	if err = json.Unmarshal(data, &sess); err != nil {
		return session.Session{}, errors.Wrap(err, "unmarshalling session")
	}
	return sess, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, key(id)).Result()
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Purge is a no-op: keys carry their own TTL.
func (s *store) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}
