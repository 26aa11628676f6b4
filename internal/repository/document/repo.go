package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
)

// ErrNotFound signals a missing document.
var ErrNotFound = errors.New("document not found")

// store is the consumer interface for documents (ISP).
type store interface {
	JSONInsertMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}

// Item is one native record addressed by id.
type Item struct {
	ID     string
	Record map[string]any
}

// Repo persists native records as JSON documents.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Insert writes new documents. An id that already exists fails with db.ErrKeyExists.
func (r *Repo) Insert(ctx context.Context, col domcol.Config, items []Item) error {
	batch, err := encodeItems(col, items)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	if err := r.store.JSONInsertMulti(ctx, batch); err != nil {
		return fmt.Errorf("insert %d documents: %w", len(batch), err)
	}
	return nil
}

// Replace overwrites documents by id, creating the missing ones.
func (r *Repo) Replace(ctx context.Context, col domcol.Config, items []Item) error {
	batch, err := encodeItems(col, items)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	if err := r.store.JSONSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("replace %d documents: %w", len(batch), err)
	}
	return nil
}

// Get returns the native record stored under id.
func (r *Repo) Get(ctx context.Context, col domcol.Config, id string) (map[string]any, error) {
	key := col.DocKey(id)
	raw, err := r.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("json.get %s: %w", key, err)
	}
	return DecodeRecord(raw)
}

// Delete removes documents by id and returns how many existed.
func (r *Repo) Delete(ctx context.Context, col domcol.Config, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = col.DocKey(id)
	}
	n, err := r.store.Del(ctx, keys...)
	if err != nil {
		return n, fmt.Errorf("delete %d documents: %w", len(ids), err)
	}
	return n, nil
}
