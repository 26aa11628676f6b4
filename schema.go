package vecstore

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
	collectionrepo "github.com/kailas-cloud/vecstore/internal/repository/collection"
)

// Schema initialization steps reported by SchemaInitError.
const (
	StepCollection = "collection"
	StepIndex      = "index"
)

// SchemaManager provisions the collection and its vector index. It moves from
// uninitialized to ready once; concurrent callers in one process share a single
// attempt, and concurrent processes rely on both steps being idempotent.
type SchemaManager struct {
	repo   *collectionrepo.Repo
	col    domcol.Config
	logger *zap.Logger

	group singleflight.Group
	ready atomic.Bool
}

func newSchemaManager(repo *collectionrepo.Repo, col domcol.Config, logger *zap.Logger) *SchemaManager {
	return &SchemaManager{repo: repo, col: col, logger: logger}
}

// Ready reports whether the index is known to exist, either because
// Initialize completed or because Check found it.
func (m *SchemaManager) Ready() bool { return m.ready.Load() }

// Check reports whether the index exists. Until the manager is ready it asks
// the database, so an index created by another process or by init-schema is
// picked up; a positive answer marks the manager ready.
func (m *SchemaManager) Check(ctx context.Context) (bool, error) {
	if m.ready.Load() {
		return true, nil
	}
	ok, err := m.repo.IndexExists(ctx, m.col)
	if err != nil {
		return false, err //nolint:wrapcheck // repository adds context
	}
	if ok {
		m.ready.Store(true)
		m.logger.Debug("Index found", zap.String("index", m.col.IndexName()))
	}
	return ok, nil
}

// Registered reports whether the collection entry exists in the registry.
func (m *SchemaManager) Registered(ctx context.Context) (bool, error) {
	return m.repo.Exists(ctx, m.col) //nolint:wrapcheck // repository adds context
}

// Drop removes the vector index and marks the manager uninitialized. Stored
// documents and the registry entry are kept, so Initialize recreates the
// index over them. A missing index is not an error.
func (m *SchemaManager) Drop(ctx context.Context) error {
	err := m.repo.DropIndex(ctx, m.col)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return err //nolint:wrapcheck // repository adds context
	}
	m.ready.Store(false)
	m.logger.Info("Index dropped", zap.String("index", m.col.IndexName()))
	return nil
}

// Initialize registers the collection and creates its index. An index that
// already exists counts as success; any other failure is a *SchemaInitError.
func (m *SchemaManager) Initialize(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}
	_, err, shared := m.group.Do(m.col.IndexName(), func() (any, error) {
		if m.ready.Load() {
			return nil, nil
		}
		if err := m.initialize(ctx); err != nil {
			return nil, err
		}
		m.ready.Store(true)
		return nil, nil
	})
	if shared {
		m.logger.Debug("Schema initialization shared", zap.String("collection", m.col.Name()))
	}
	return err //nolint:wrapcheck // already a *SchemaInitError
}

func (m *SchemaManager) initialize(ctx context.Context) error {
	created, err := m.repo.Register(ctx, m.col)
	if err != nil {
		return &SchemaInitError{Step: StepCollection, Err: err}
	}
	m.logger.Debug("Collection registered",
		zap.String("collection", m.col.Name()),
		zap.Bool("created", created),
	)

	outcome, err := m.repo.EnsureIndex(ctx, m.col)
	if err != nil {
		return &SchemaInitError{Step: StepIndex, Err: err}
	}
	if outcome == db.IndexExpectedConflict {
		m.logger.Debug("Index already exists", zap.String("index", m.col.IndexName()))
	}
	m.logger.Info("Schema ready",
		zap.String("collection", m.col.Name()),
		zap.String("index", m.col.IndexName()),
		zap.Int("dimensions", m.col.Dimensions()),
		zap.Stringer("outcome", outcome),
	)
	return nil
}
