package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/redis/go-redis/v9"
)

// SnapshotRepository keeps the last applied cart snapshot of every identity in Redis.
type SnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotRepository(client *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *SnapshotRepository) getKey(identityKey string) string {
	return fmt.Sprintf("cart:snapshot:%s", identityKey)
}

// Load returns the cached snapshot, or nil when there is none.
func (r *SnapshotRepository) Load(ctx context.Context, identityKey string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.getKey(identityKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", identityKey, err)
	}
	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}
	return &cart, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, identityKey string, cart models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getKey(identityKey), data, r.ttl).Err()
}

func (r *SnapshotRepository) Delete(ctx context.Context, identityKey string) error {
	return r.client.Del(ctx, r.getKey(identityKey)).Err()
}

// Idempotency helpers
func (r *SnapshotRepository) getIdemKey(key string) string {
	return "idem:checkout:" + key
}

// GetPlacedOrder returns the order already placed under an idempotency key, or nil.
func (r *SnapshotRepository) GetPlacedOrder(ctx context.Context, key string) (*models.Order, error) {
	data, err := r.client.Get(ctx, r.getIdemKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode placed order %s: %w", key, err)
	}
	return &order, nil
}

func (r *SnapshotRepository) SetPlacedOrder(ctx context.Context, key string, order *models.Order, ttl time.Duration) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getIdemKey(key), data, ttl).Err()
}
