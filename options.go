package vecstore

import (
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/filter"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	username string
	password string

	embedder Embedder

	keyPrefix        string
	hnswM            int
	hnswEFConstruct  int
	readinessTimeout time.Duration

	cacheEnabled   bool
	cacheNamespace string
	cacheTTL       time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithValkey connects to a Valkey instance with valkey-search and valkey-json loaded.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis connects to a Redis 8+ instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithAddrs replaces the seed addresses set by WithValkey or WithRedis,
// e.g. to list several cluster nodes.
func WithAddrs(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = slices.Clone(addrs)
	})
}

// WithUsername sets the ACL user for the connection.
func WithUsername(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithEmbedder sets the embedding provider. Required by NewStore.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithEmbeddingCache stores vectors in the database keyed by namespace and
// text, so repeated texts skip the provider. namespace should identify the
// model; ttl of zero keeps entries forever.
func WithEmbeddingCache(namespace string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheEnabled = true
		c.cacheNamespace = namespace
		c.cacheTTL = ttl
	})
}

// WithKeyPrefix sets the keyspace prefix. Default: "vecstore:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithReadinessTimeout bounds how long New waits for the database. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers store metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	collection       string
	indexName        string
	numCandidates    int
	filterable       []string
	numeric          map[string]bool
	initializeSchema bool
}

// WithCollection sets the collection name. Default: "vector_store".
func WithCollection(name string) StoreOption {
	return func(c *storeConfig) {
		c.collection = name
	}
}

// WithIndexName sets the vector index name within the collection. Default: "vector_index".
func WithIndexName(name string) StoreOption {
	return func(c *storeConfig) {
		c.indexName = name
	}
}

// WithNumCandidates sets the recall breadth of every search. Default: 200.
func WithNumCandidates(n int) StoreOption {
	return func(c *storeConfig) {
		c.numCandidates = n
	}
}

// WithFilterableFields registers metadata fields for pre-filtering. Each must be a
// declared metadata field of the entity, unless it has a catch-all metadata map.
func WithFilterableFields(names ...string) StoreOption {
	return func(c *storeConfig) {
		c.filterable = appendUnique(c.filterable, names...)
	}
}

// WithNumericField registers a filterable field indexed as NUMERIC. Declared
// numeric Go fields are numeric already; this is for catch-all attributes.
func WithNumericField(name string) StoreOption {
	return func(c *storeConfig) {
		c.filterable = appendUnique(c.filterable, name)
		if c.numeric == nil {
			c.numeric = map[string]bool{}
		}
		c.numeric[name] = true
	}
}

// WithInitializeSchema creates the collection and index during NewStore.
// Default: false, for deployments that manage schema out of band.
func WithInitializeSchema(enabled bool) StoreOption {
	return func(c *storeConfig) {
		c.initializeSchema = enabled
	}
}

func appendUnique(dst []string, names ...string) []string {
	for _, n := range names {
		if !slices.Contains(dst, n) {
			dst = append(dst, n)
		}
	}
	return dst
}

// fallbackKind returns the index kind for a catch-all attribute.
func (c *storeConfig) fallbackKind(name string) filter.Kind {
	if c.numeric[name] {
		return filter.KindNumeric
	}
	return filter.KindTag
}
