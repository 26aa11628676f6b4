package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	JSONStore
	KVStore
	IndexManager
	Aggregator
	// FilterDialect renders filter expressions in the engine's query syntax.
	FilterDialect() filter.Dialect
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides the hash operations backing the collection registry.
type HashStore interface {
	// HSetNX sets field only if absent and reports whether it was set.
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HExists(ctx context.Context, key, field string) (bool, error)
}

// JSONSetItem holds a single key+data pair for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Data []byte
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	// JSONInsertMulti writes every item with NX semantics, all or nothing.
	// An existing key fails with ErrKeyExists and the keys written by the
	// call are removed again.
	JSONInsertMulti(ctx context.Context, items []JSONSetItem) error
	// JSONSetMulti replaces every item's document.
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)
}

// KVItem holds a single key+value pair for pipelined SET.
type KVItem struct {
	Key   string
	Value []byte
}

// KVStore provides pipelined key-value operations.
type KVStore interface {
	// MGet returns one value per key; missing keys yield nil.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	// SetMulti stores every item. A ttl of zero means no expiry.
	SetMulti(ctx context.Context, items []KVItem, ttl time.Duration) error
}

// IndexOutcome is the non-error result of CreateIndex.
type IndexOutcome int

const (
	// IndexCreated means the command created a new index.
	IndexCreated IndexOutcome = iota + 1
	// IndexExpectedConflict means an index with the same name already existed.
	// Concurrent initializers race on this, so it is not an error.
	IndexExpectedConflict
)

func (o IndexOutcome) String() string {
	switch o {
	case IndexCreated:
		return "created"
	case IndexExpectedConflict:
		return "already_exists"
	}
	return "unknown"
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) (IndexOutcome, error)
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Aggregator executes a search pipeline and returns records in rank order.
type Aggregator interface {
	Aggregate(ctx context.Context, p pipeline.Pipeline) ([]Row, error)
}
