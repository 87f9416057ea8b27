//go:build !integration

package postgres

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	red "classifieds-marketplace/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerListingRepo mocks the database repository the listing decorator wraps.
type mockInnerListingRepo struct {
	repository.ListingRepository // unimplemented methods panic

	SaveFunc               func(ctx context.Context, tx repository.Tx, l *model.Listing) error
	FindByIDFunc           func(ctx context.Context, tx repository.Tx, id string) (*model.Listing, error)
	UpdateIfVersionFunc    func(ctx context.Context, tx repository.Tx, l *model.Listing, expected int64) (bool, error)
	UpdateDerivedStateFunc func(ctx context.Context, tx repository.Tx, id string, version int64, from, to model.ListingState) (bool, error)
}

func (m *mockInnerListingRepo) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	return m.SaveFunc(ctx, tx, l)
}
func (m *mockInnerListingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Listing, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerListingRepo) UpdateIfVersion(ctx context.Context, tx repository.Tx, l *model.Listing, expected int64) (bool, error) {
	return m.UpdateIfVersionFunc(ctx, tx, l, expected)
}
func (m *mockInnerListingRepo) UpdateDerivedState(ctx context.Context, tx repository.Tx, id string, version int64, from, to model.ListingState) (bool, error) {
	return m.UpdateDerivedStateFunc(ctx, tx, id, version, from, to)
}

// mockRedisClient is a map-backed RedisClient.
type mockRedisClient struct {
	data    map[string]string
	deleted []string
	sets    int
}

var _ red.RedisClient = &mockRedisClient{}

func newMockRedis() *mockRedisClient { return &mockRedisClient{data: map[string]string{}} }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", errCacheMiss
	}
	return v, nil
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.sets++
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error                      { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) Close() error { return nil }
