package vecstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/db"
	dbRedis "github.com/kailas-cloud/vecstore/internal/db/redis"
	dbValkey "github.com/kailas-cloud/vecstore/internal/db/valkey"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
	collectionrepo "github.com/kailas-cloud/vecstore/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/vecstore/internal/repository/document"
	searchrepo "github.com/kailas-cloud/vecstore/internal/repository/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client owns the database connection and embedding provider shared by stores.
type Client struct {
	store    db.Store
	embedder Embedder
	cfg      clientConfig
	obs      *observer

	collections *collectionrepo.Repo
	documents   *documentrepo.Repo
	search      *searchrepo.Repo
}

// New creates a Client and waits for the database to become ready.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := clientConfig{}
	for _, o := range opts {
		o.apply(&cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("vecstore: database address required (use WithValkey or WithRedis)")
	}

	store, err := createStore(&cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.readinessTimeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("vecstore: database not ready: %w", err)
	}

	c, err := newClient(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("vecstore: create valkey store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("vecstore: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("vecstore: unknown driver %q", cfg.driver)
	}
}

// newClient wires repositories over an established store.
func newClient(store db.Store, cfg clientConfig) (*Client, error) {
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = domcol.DefaultKeyPrefix
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	if cfg.cacheEnabled && cfg.embedder != nil {
		cfg.embedder = cachingEmbedder(cfg.embedder, store, cfg, obs.metrics, cfg.logger)
	}

	return &Client{
		store:       store,
		embedder:    cfg.embedder,
		cfg:         cfg,
		obs:         obs,
		collections: collectionrepo.New(store),
		documents:   documentrepo.New(store),
		search:      searchrepo.New(store),
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *zap.Logger { return c.cfg.logger }
