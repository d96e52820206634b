package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/atarigo/goban-server/internal/domain"
)

const (
	keySession     = "session:"
	keyPlayerIndex = "session:index:player:"
	keyAllIndex    = "session:index:all"
)

// RedisStore keeps the session registry in Redis so several server instances
// can share it. Updates go through WATCH so a concurrent writer on the same
// id surfaces as ErrConflict instead of a lost update.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisStoreURL connects from a redis:// URL and pings the server.
func NewRedisStoreURL(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisStore) Create(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	created, err := r.rdb.SetNX(ctx, keySession+session.ID, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		// Duplicate id: leave the existing session untouched.
		return nil
	}
	return r.index(ctx, session)
}

func (r *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	return r.get(ctx, id)
}

func (r *RedisStore) FindByPlayer(ctx context.Context, playerID string) (*domain.Session, error) {
	id, err := r.rdb.Get(ctx, keyPlayerIndex+playerID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("player index: %w", err)
	}
	return r.get(ctx, id)
}

func (r *RedisStore) Update(ctx context.Context, session *domain.Session) error {
	key := keySession + session.ID
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var stored domain.Session
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if stored.Version != session.Version {
			return ErrConflict
		}

		next := session.Clone()
		next.Version++
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			for _, p := range stored.Players {
				pipe.Del(ctx, keyPlayerIndex+p.ID)
			}
			for _, p := range next.Players {
				pipe.Set(ctx, keyPlayerIndex+p.ID, next.ID, 0)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	session.Version++
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, session *domain.Session) error {
	return r.remove(ctx, session)
}

func (r *RedisStore) RemoveAll(ctx context.Context, sessions []*domain.Session) error {
	var errs []error
	for _, session := range sessions {
		if err := r.remove(ctx, session); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *RedisStore) ListAll(ctx context.Context) ([]*domain.Session, error) {
	ids, err := r.rdb.SMembers(ctx, keyAllIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	list := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		session, err := r.get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			// Index entry outlived the session; drop it.
			_ = r.rdb.SRem(ctx, keyAllIndex, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		list = append(list, session)
	}
	return list, nil
}

func (r *RedisStore) get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, keySession+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *RedisStore) index(ctx context.Context, session *domain.Session) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, keyAllIndex, session.ID)
		for _, p := range session.Players {
			pipe.Set(ctx, keyPlayerIndex+p.ID, session.ID, 0)
		}
		return nil
	})
	return err
}

func (r *RedisStore) remove(ctx context.Context, session *domain.Session) error {
	// Read the stored copy so player indexes of seats added after the
	// caller's read still get cleaned up.
	stored, err := r.get(ctx, session.ID)
	if errors.Is(err, ErrSessionNotFound) {
		stored = session
	} else if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keySession+session.ID)
		pipe.SRem(ctx, keyAllIndex, session.ID)
		for _, p := range stored.Players {
			pipe.Del(ctx, keyPlayerIndex+p.ID)
		}
		return nil
	})
	return err
}
