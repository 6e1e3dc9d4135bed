package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	leadsHashKey  = "leads"
	maxTxAttempts = 5
)

// RedisRepository stores each lead as a JSON value in one Redis hash keyed by lead ID.
type RedisRepository struct {
	deps
	client *redis.Client
	key    string
}

// NewRedisRepository creates a Redis-backed lead repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	if client == nil {
		panic("leads: redis client cannot be nil")
	}
	return &RedisRepository{deps: defaultDeps(), client: client, key: leadsHashKey}
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (r *RedisRepository) loadAll(ctx context.Context, c hashReader) ([]*Lead, error) {
	vals, err := c.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("leads: load from redis: %w", err)
	}
	all := make([]*Lead, 0, len(vals))
	for id, raw := range vals {
		var lead Lead
		if err := json.Unmarshal([]byte(raw), &lead); err != nil {
			return nil, fmt.Errorf("leads: decode lead %s: %w", id, err)
		}
		all = append(all, &lead)
	}
	return all, nil
}

func (r *RedisRepository) put(ctx context.Context, tx *redis.Tx, lead *Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("leads: encode lead: %w", err)
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, lead.ID, data)
		return nil
	})
	return err
}

// watch runs fn optimistically, retrying when another writer touched the hash.
func (r *RedisRepository) watch(ctx context.Context, fn func(tx *redis.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = r.client.Watch(ctx, fn, r.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("leads: redis transaction kept conflicting: %w", err)
}

// Upsert creates or merges a lead.
func (r *RedisRepository) Upsert(ctx context.Context, req *CreateLeadRequest) (*Lead, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	req = req.normalized()

	var (
		stored  *Lead
		created bool
	)
	err := r.watch(ctx, func(tx *redis.Tx) error {
		all, err := r.loadAll(ctx, tx)
		if err != nil {
			return err
		}
		_, stored, created = r.upsertSlice(all, req)
		return r.put(ctx, tx, stored)
	})
	if err != nil {
		return nil, false, fmt.Errorf("leads: upsert: %w", err)
	}
	return stored.clone(), created, nil
}

// GetByID retrieves a lead by ID.
func (r *RedisRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	raw, err := r.client.HGet(ctx, r.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: get %s: %w", id, err)
	}
	var lead Lead
	if err := json.Unmarshal(raw, &lead); err != nil {
		return nil, fmt.Errorf("leads: decode lead %s: %w", id, err)
	}
	return &lead, nil
}

// List returns leads newest first.
func (r *RedisRepository) List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error) {
	all, err := r.loadAll(ctx, r.client)
	if err != nil {
		return nil, err
	}
	return applyFilter(all, filter), nil
}

// Update applies dashboard edits to a lead.
func (r *RedisRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var updated *Lead
	err := r.watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, r.key, id).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrLeadNotFound
		}
		if err != nil {
			return err
		}
		var lead Lead
		if err := json.Unmarshal(raw, &lead); err != nil {
			return fmt.Errorf("leads: decode lead %s: %w", id, err)
		}
		lead.apply(req, r.now())
		updated = &lead
		return r.put(ctx, tx, updated)
	})
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("leads: update %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes a lead.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	n, err := r.client.HDel(ctx, r.key, id).Result()
	if err != nil {
		return fmt.Errorf("leads: delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrLeadNotFound
	}
	return nil
}
