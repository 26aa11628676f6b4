package collection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
)

// registryField holds the serialized collection config inside the registry hash.
const registryField = "config"

// store is the consumer interface for collections (ISP).
type store interface {
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HExists(ctx context.Context, key, field string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) (db.IndexOutcome, error)
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo manages the collection registry and its vector index.
type Repo struct {
	store store
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Register records the collection if absent. It reports whether this call created the entry;
// a concurrent or earlier registration leaves the existing entry untouched.
func (r *Repo) Register(ctx context.Context, col domcol.Config) (bool, error) {
	data, err := configToJSON(col)
	if err != nil {
		return false, err
	}
	created, err := r.store.HSetNX(ctx, col.RegistryKey(), registryField, data)
	if err != nil {
		return false, fmt.Errorf("hsetnx collection %s: %w", col.Name(), err)
	}
	return created, nil
}

// Exists reports whether the collection is registered.
func (r *Repo) Exists(ctx context.Context, col domcol.Config) (bool, error) {
	ok, err := r.store.HExists(ctx, col.RegistryKey(), registryField)
	if err != nil {
		return false, fmt.Errorf("hexists collection %s: %w", col.Name(), err)
	}
	return ok, nil
}

// EnsureIndex issues FT.CREATE for the collection. An index that already exists
// is reported as db.IndexExpectedConflict, not as an error.
func (r *Repo) EnsureIndex(ctx context.Context, col domcol.Config) (db.IndexOutcome, error) {
	def, err := buildIndex(col)
	if err != nil {
		return 0, fmt.Errorf("build index: %w", err)
	}
	outcome, err := r.store.CreateIndex(ctx, def)
	if err != nil {
		return 0, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return outcome, nil
}

// IndexExists reports whether the collection's index is present.
func (r *Repo) IndexExists(ctx context.Context, col domcol.Config) (bool, error) {
	ok, err := r.store.IndexExists(ctx, col.IndexName())
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", col.IndexName(), err)
	}
	return ok, nil
}

// DropIndex removes the collection's index. Documents are kept.
func (r *Repo) DropIndex(ctx context.Context, col domcol.Config) error {
	if err := r.store.DropIndex(ctx, col.IndexName()); err != nil {
		return fmt.Errorf("drop index %s: %w", col.IndexName(), err)
	}
	return nil
}
