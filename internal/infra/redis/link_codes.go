package redis

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/ports/adapter"
)

var _ adapter.LinkCodeStore = (*LinkCodeStore)(nil)

type LinkCodeStore struct {
	client RedisClient
}

func NewLinkCodeStore(client RedisClient) *LinkCodeStore {
	return &LinkCodeStore{client: client}
}

func linkCodeKey(code string) string { return "tglink:" + code }

func (s *LinkCodeStore) Put(ctx context.Context, code, accountID string, ttl time.Duration) error {
	return s.client.Set(ctx, linkCodeKey(code), accountID, ttl)
}

func (s *LinkCodeStore) Take(ctx context.Context, code string) (string, error) {
	key := linkCodeKey(code)
	id, err := s.client.Get(ctx, key)
	if IsMiss(err) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	_ = s.client.Del(ctx, key)
	return id, nil
}
