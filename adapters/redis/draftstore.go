// Package redis provides a Redis-backed local draft store, for editing
// sessions that share drafts across processes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/coursesync/ports"
	goredis "github.com/redis/go-redis/v9"
)

// DraftStore implements ports.DraftStore using Redis strings.
type DraftStore struct {
	client    *goredis.Client
	namespace string
	ttl       time.Duration
}

// Options configures a DraftStore.
type Options struct {
	// Namespace is prepended to every key.
	Namespace string
	// TTL expires drafts that are not rewritten; zero keeps them forever.
	TTL time.Duration
}

// NewDraftStore connects to redisURL and verifies the connection.
func NewDraftStore(redisURL string, opts Options) (*DraftStore, error) {
	parsed, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(parsed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewDraftStoreWithClient(client, opts), nil
}

// NewDraftStoreWithClient creates a store from an existing Redis client.
func NewDraftStoreWithClient(client *goredis.Client, opts Options) *DraftStore {
	return &DraftStore{
		client:    client,
		namespace: opts.Namespace,
		ttl:       opts.TTL,
	}
}

func (s *DraftStore) key(k string) string {
	return s.namespace + k
}

// Get returns the stored value, or nil if absent or expired.
func (s *DraftStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %s: %w", key, err)
	}
	return value, nil
}

// Set stores value, refreshing the TTL.
func (s *DraftStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set draft %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *DraftStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("remove draft %s: %w", key, err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *DraftStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *DraftStore) Close() error {
	return s.client.Close()
}

// Ensure interface compliance.
var _ ports.DraftStore = (*DraftStore)(nil)
