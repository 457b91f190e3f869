package offers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parkslot/pkg/model"

	"github.com/go-redis/redis/v8"
)

const offerKeyPrefix = "parkslot:offer:"

// RedisStore lets the two workflow steps land on different replicas. Redis expires
// the keys itself, so Sweep has nothing to do.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, now: now}
}

func (s *RedisStore) Put(ctx context.Context, userID string, offer *model.Offer) error {
	ttl := offer.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("offer %s already expired", offer.Token)
	}

	b, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("failed to encode offer: %w", err)
	}
	if err := s.client.Set(ctx, offerKeyPrefix+key(userID, offer.Token), b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store offer: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, userID, token string) (*model.Offer, error) {
	data, err := s.client.GetDel(ctx, offerKeyPrefix+key(userID, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take offer: %w", err)
	}

	var offer model.Offer
	if err := json.Unmarshal(data, &offer); err != nil {
		return nil, fmt.Errorf("failed to decode offer: %w", err)
	}
	if offer.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &offer, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID, token string) error {
	n, err := s.client.Del(ctx, offerKeyPrefix+key(userID, token)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}
