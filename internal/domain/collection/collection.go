package collection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/domain"
)

var (
	nameRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	prefixRegex = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)
)

// Collection defaults.
const (
	DefaultName            = "vector_store"
	DefaultIndexName       = "vector_index"
	DefaultKeyPrefix       = "vecstore:"
	DefaultHNSWM           = 16
	DefaultHNSWEFConstruct = 200
	maxNameLen             = 64
	maxFilterableFields    = 64
)

// HNSW holds graph construction parameters.
type HNSW struct {
	M           int
	EFConstruct int
}

// Params are the inputs of New.
type Params struct {
	Name           string
	IndexName      string
	KeyPrefix      string
	EmbeddingField string
	Dimensions     int
	Filterable     []filter.Field
	HNSW           HNSW
}

// Config is the vector index configuration of one collection (immutable value object).
// Documents live under <prefix><name>:<id>; the index is <prefix><name>:<index>.
type Config struct {
	name           string
	indexName      string
	keyPrefix      string
	embeddingField string
	dimensions     int
	filterable     []filter.Field
	hnsw           HNSW
}

// New validates p and applies defaults.
func New(p Params) (Config, error) {
	if p.Name == "" {
		p.Name = DefaultName
	}
	if p.IndexName == "" {
		p.IndexName = DefaultIndexName
	}
	if p.KeyPrefix == "" {
		p.KeyPrefix = DefaultKeyPrefix
	}
	if p.HNSW.M <= 0 {
		p.HNSW.M = DefaultHNSWM
	}
	if p.HNSW.EFConstruct <= 0 {
		p.HNSW.EFConstruct = DefaultHNSWEFConstruct
	}

	if err := validateName("collection", p.Name); err != nil {
		return Config{}, err
	}
	if err := validateName("index", p.IndexName); err != nil {
		return Config{}, err
	}
	if !prefixRegex.MatchString(p.KeyPrefix) {
		return Config{}, fmt.Errorf("%w: key prefix %q may only contain letters, digits, '_', ':' and '-'",
			domain.ErrInvalidConfig, p.KeyPrefix)
	}
	if p.EmbeddingField == "" {
		return Config{}, fmt.Errorf("%w: embedding field is required", domain.ErrInvalidConfig)
	}
	if p.Dimensions <= 0 {
		return Config{}, fmt.Errorf("%w: vector dimension must be positive", domain.ErrInvalidConfig)
	}
	if err := validateFields(p.EmbeddingField, p.Filterable); err != nil {
		return Config{}, err
	}

	return Config{
		name:           p.Name,
		indexName:      p.IndexName,
		keyPrefix:      p.KeyPrefix,
		embeddingField: p.EmbeddingField,
		dimensions:     p.Dimensions,
		filterable:     append([]filter.Field(nil), p.Filterable...),
		hnsw:           p.HNSW,
	}, nil
}

func validateName(what, name string) error {
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: %s name too long (max %d)", domain.ErrInvalidConfig, what, maxNameLen)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: %s name %q must be alphanumeric with underscores and hyphens",
			domain.ErrInvalidConfig, what, name)
	}
	return nil
}

func validateFields(embedding string, fields []filter.Field) error {
	if len(fields) > maxFilterableFields {
		return fmt.Errorf("%w: too many filterable fields (max %d)", domain.ErrInvalidConfig, maxFilterableFields)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		switch {
		case f.Name == "":
			return fmt.Errorf("%w: filterable field name is required", domain.ErrInvalidConfig)
		case f.Name == embedding:
			return fmt.Errorf("%w: embedding field %q cannot be filterable", domain.ErrInvalidConfig, f.Name)
		case seen[f.Name]:
			return fmt.Errorf("%w: duplicate filterable field %q", domain.ErrInvalidConfig, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Name returns the collection name.
func (c Config) Name() string { return c.name }

// KeyPrefix returns the keyspace prefix shared by every collection.
func (c Config) KeyPrefix() string { return c.keyPrefix }

// EmbeddingField returns the native embedding attribute.
func (c Config) EmbeddingField() string { return c.embeddingField }

// Dimensions returns the vector dimension.
func (c Config) Dimensions() int { return c.dimensions }

// Filterable returns the pre-filter fields registered with the index.
func (c Config) Filterable() []filter.Field { return c.filterable }

// HNSW returns graph construction parameters.
func (c Config) HNSW() HNSW { return c.hnsw }

// IndexName returns the fully qualified index name.
func (c Config) IndexName() string { return c.DocPrefix() + c.indexName }

// DocPrefix returns the key prefix of the collection's documents.
func (c Config) DocPrefix() string { return c.keyPrefix + c.name + ":" }

// DocKey returns the storage key of a document.
func (c Config) DocKey(id string) string { return c.DocPrefix() + id }

// IDFromKey strips the document prefix from a storage key.
func (c Config) IDFromKey(key string) string { return strings.TrimPrefix(key, c.DocPrefix()) }

// RegistryKey returns the hash recording the collection in the registry.
func (c Config) RegistryKey() string { return c.keyPrefix + "collection:" + c.name }
