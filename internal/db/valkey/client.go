// Package valkey adapts the Redis store to Valkey with valkey-search and
// valkey-json. Everything but pipeline execution is shared with the redis
// package; valkey-search has no FT.AGGREGATE over KNN, so the score and
// threshold stages run client-side on FT.SEARCH results.
package valkey

import (
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
}

// Store implements db.Store for Valkey.
type Store struct {
	*redis.Store
	client rueidis.Client
}

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	client, err := redis.NewClient(redis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey: %w", err)
	}
	return &Store{Store: redis.NewStoreFromClient(client), client: client}, nil
}
