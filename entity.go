package vecstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/kailas-cloud/vecstore/filter"
)

const (
	tagKey = "vecstore"

	// DefaultIDField is the native id attribute used when a type declares no id field.
	DefaultIDField = "_id"
)

// Field roles accepted after the comma in a `vecstore:"name,role"` tag.
const (
	roleID        = "id"
	roleContent   = "content"
	roleEmbedding = "embedding"
	roleMetadata  = "metadata"
)

type fieldInfo struct {
	index  int
	name   string // native attribute name
	goName string
	typ    reflect.Type
	kind   filter.Kind
}

// EntityModel describes how a struct type maps onto the canonical
// {id, content, metadata, embedding} document view. It is built once per type.
//
// Struct tags select roles:
//
//	type Article struct {
//		ID     string    `vecstore:"_id,id"`
//		Body   string    `vecstore:"body,content"`
//		Vector []float32 `vecstore:"vec,embedding"`
//		Author string    `vecstore:"author"`
//		Year   int       // metadata "Year"; json tag name wins when present
//		Extra  map[string]any `vecstore:",metadata"` // optional catch-all
//		Secret string    `vecstore:"-"`
//	}
type EntityModel struct {
	typ       reflect.Type
	id        *fieldInfo
	content   fieldInfo
	embedding fieldInfo
	embLen    int // fixed array length, 0 for slices
	metadata  []fieldInfo
	byName    map[string]int
	catchAll  *fieldInfo
}

type cachedModel struct {
	model *EntityModel
	err   error
}

var models sync.Map // reflect.Type -> cachedModel

// Describe returns the cached EntityModel for T.
func Describe[T any]() (*EntityModel, error) {
	return DescribeType(reflect.TypeFor[T]())
}

// DescribeType returns the cached EntityModel for t. Pointer types describe their element.
func DescribeType(t reflect.Type) (*EntityModel, error) {
	if t == nil {
		return nil, &MappingError{Reason: "nil type"}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if c, ok := models.Load(t); ok {
		cm := c.(cachedModel) //nolint:forcetypeassert // only cachedModel is stored
		return cm.model, cm.err
	}
	m, err := buildModel(t)
	c, _ := models.LoadOrStore(t, cachedModel{model: m, err: err})
	cm := c.(cachedModel) //nolint:forcetypeassert // only cachedModel is stored
	return cm.model, cm.err
}

func buildModel(t reflect.Type) (*EntityModel, error) {
	if t.Kind() != reflect.Struct {
		return nil, &MappingError{Type: t, Reason: "not a struct"}
	}

	m := &EntityModel{typ: t, byName: map[string]int{}}
	var contents, embeddings []fieldInfo
	seen := map[string]string{}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, role, skip := parseTag(f)
		if skip {
			continue
		}
		info := fieldInfo{index: i, name: name, goName: f.Name, typ: f.Type}

		if role == roleMetadata && isCatchAll(f.Type) {
			if m.catchAll != nil {
				return nil, &MappingError{Type: t, Field: f.Name, Reason: "duplicate catch-all metadata map"}
			}
			m.catchAll = &info
			continue
		}

		if prev, dup := seen[name]; dup {
			return nil, &MappingError{Type: t, Field: f.Name,
				Reason: fmt.Sprintf("native name %q already used by %s", name, prev)}
		}
		seen[name] = f.Name

		switch role {
		case roleID:
			if m.id != nil {
				return nil, &MappingError{Type: t, Field: f.Name, Reason: "duplicate id field"}
			}
			if f.Type.Kind() != reflect.String {
				return nil, &MappingError{Type: t, Field: f.Name, Reason: "id field must be a string"}
			}
			m.id = &info
		case roleContent:
			if f.Type.Kind() != reflect.String {
				return nil, &MappingError{Type: t, Field: f.Name, Reason: "content field must be a string"}
			}
			contents = append(contents, info)
		case roleEmbedding:
			n, ok := embeddingShape(f.Type)
			if !ok {
				return nil, &MappingError{Type: t, Field: f.Name,
					Reason: fmt.Sprintf("unsupported embedding type %s (want []float32, []float64, [N]float32 or [N]float64)", f.Type)}
			}
			m.embLen = n
			embeddings = append(embeddings, info)
		case "", roleMetadata:
			info.kind = kindOf(f.Type)
			m.byName[name] = len(m.metadata)
			m.metadata = append(m.metadata, info)
		default:
			return nil, &MappingError{Type: t, Field: f.Name, Reason: fmt.Sprintf("unknown role %q", role)}
		}
	}

	switch {
	case len(contents) != 1:
		return nil, &MappingError{Type: t,
			Reason: fmt.Sprintf("exactly one content field required, found %d", len(contents))}
	case len(embeddings) != 1:
		return nil, &MappingError{Type: t,
			Reason: fmt.Sprintf("exactly one embedding field required, found %d", len(embeddings))}
	}
	m.content = contents[0]
	m.embedding = embeddings[0]

	if m.id == nil {
		if prev, dup := seen[DefaultIDField]; dup {
			return nil, &MappingError{Type: t, Field: prev,
				Reason: fmt.Sprintf("%q is reserved for the id when no id field is declared", DefaultIDField)}
		}
	}
	return m, nil
}

// parseTag resolves the native name and role of a field.
func parseTag(f reflect.StructField) (name, role string, skip bool) {
	tag, ok := f.Tag.Lookup(tagKey)
	if tag == "-" {
		return "", "", true
	}
	if ok {
		name, role, _ = strings.Cut(tag, ",")
	} else if jt := f.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "", "", true
		}
		name, _, _ = strings.Cut(jt, ",")
	}
	if name == "" {
		name = f.Name
	}
	return name, role, false
}

func isCatchAll(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface
}

// embeddingShape accepts float32/float64 slices and arrays, returning the fixed length for arrays.
func embeddingShape(t reflect.Type) (int, bool) {
	switch t.Kind() { //nolint:exhaustive
	case reflect.Slice, reflect.Array:
	default:
		return 0, false
	}
	switch t.Elem().Kind() { //nolint:exhaustive
	case reflect.Float32, reflect.Float64:
	default:
		return 0, false
	}
	if t.Kind() == reflect.Array {
		if t.Len() == 0 {
			return 0, false
		}
		return t.Len(), true
	}
	return 0, true
}

func kindOf(t reflect.Type) filter.Kind {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return filter.KindNumeric
	}
	return filter.KindTag
}

// Type returns the described struct type.
func (m *EntityModel) Type() reflect.Type { return m.typ }

// HasID reports whether the type declares an id field.
func (m *EntityModel) HasID() bool { return m.id != nil }

// IDField returns the native id attribute name.
func (m *EntityModel) IDField() string {
	if m.id == nil {
		return DefaultIDField
	}
	return m.id.name
}

// ContentField returns the native content attribute name.
func (m *EntityModel) ContentField() string { return m.content.name }

// EmbeddingField returns the native embedding attribute name.
func (m *EntityModel) EmbeddingField() string { return m.embedding.name }

// EmbeddingLen returns the fixed embedding length for array fields, 0 for slices.
func (m *EntityModel) EmbeddingLen() int { return m.embLen }

// HasCatchAll reports whether undeclared attributes are kept in a metadata map.
func (m *EntityModel) HasCatchAll() bool { return m.catchAll != nil }

// MetadataFields returns declared metadata attribute names in declaration order.
func (m *EntityModel) MetadataFields() []string {
	names := make([]string, len(m.metadata))
	for i, f := range m.metadata {
		names[i] = f.name
	}
	return names
}

// reserved reports whether name is the id, content or embedding attribute.
func (m *EntityModel) reserved(name string) bool {
	return name == m.IDField() || name == m.content.name || name == m.embedding.name
}

// FilterField resolves a filterable attribute. Declared metadata fields carry
// their kind; with a catch-all map any non-reserved name is accepted as fallback.
func (m *EntityModel) FilterField(name string, fallback filter.Kind) (filter.Field, bool) {
	if i, ok := m.byName[name]; ok {
		return filter.Field{Name: name, Kind: m.metadata[i].kind}, true
	}
	if m.catchAll != nil && name != "" && !m.reserved(name) {
		return filter.Field{Name: name, Kind: fallback}, true
	}
	return filter.Field{}, false
}

// structValue dereferences pointers down to the addressable struct value.
func (m *EntityModel) structValue(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, &MappingError{Type: m.typ, Reason: "nil entity"}
		}
		v = v.Elem()
	}
	if v.Type() != m.typ {
		return reflect.Value{}, &MappingError{Type: m.typ, Reason: fmt.Sprintf("got value of type %s", v.Type())}
	}
	return v, nil
}

// ID returns the entity's id, empty when the type declares none.
func (m *EntityModel) ID(entity any) (string, error) {
	v, err := m.structValue(reflect.ValueOf(entity))
	if err != nil {
		return "", err
	}
	if m.id == nil {
		return "", nil
	}
	return v.Field(m.id.index).String(), nil
}

// DocumentOf extracts the canonical view of an entity. The embedding is
// included when the entity carries one.
func (m *EntityModel) DocumentOf(entity any) (Document, error) {
	v, err := m.structValue(reflect.ValueOf(entity))
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Content:  v.Field(m.content.index).String(),
		Metadata: make(map[string]any, len(m.metadata)),
	}
	if m.id != nil {
		doc.ID = v.Field(m.id.index).String()
	}
	for _, f := range m.metadata {
		doc.Metadata[f.name] = v.Field(f.index).Interface()
	}
	if m.catchAll != nil {
		iter := v.Field(m.catchAll.index).MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if m.reserved(k) {
				return Document{}, &MappingError{Type: m.typ, Field: m.catchAll.goName,
					Reason: fmt.Sprintf("metadata key %q collides with a reserved attribute", k)}
			}
			if _, declared := m.byName[k]; declared {
				continue
			}
			doc.Metadata[k] = iter.Value().Interface()
		}
	}

	doc.Embedding, err = readEmbedding(m.embedding.goName, v.Field(m.embedding.index))
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// newEntity builds a T-shaped value from a canonical document.
func (m *EntityModel) newEntity(doc Document) (reflect.Value, error) {
	v := reflect.New(m.typ).Elem()
	if m.id != nil {
		v.Field(m.id.index).SetString(doc.ID)
	}
	v.Field(m.content.index).SetString(doc.Content)

	var rest map[string]any
	for k, val := range doc.Metadata {
		i, ok := m.byName[k]
		if !ok {
			if rest == nil {
				rest = map[string]any{}
			}
			rest[k] = val
			continue
		}
		f := m.metadata[i]
		if err := assignValue(v.Field(f.index), val); err != nil {
			return reflect.Value{}, &MappingError{Type: m.typ, Field: f.goName, Reason: err.Error()}
		}
	}
	if m.catchAll != nil && len(rest) > 0 {
		mv := reflect.MakeMapWithSize(m.catchAll.typ, len(rest))
		for k, val := range rest {
			ev := reflect.Zero(m.catchAll.typ.Elem())
			if val != nil {
				ev = reflect.ValueOf(val)
			}
			mv.SetMapIndex(reflect.ValueOf(k).Convert(m.catchAll.typ.Key()), ev)
		}
		v.Field(m.catchAll.index).Set(mv)
	}

	if err := m.setEmbedding(v, doc.Embedding); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

func (m *EntityModel) setID(v reflect.Value, id string) {
	if m.id != nil {
		v.Field(m.id.index).SetString(id)
	}
}

func (m *EntityModel) setEmbedding(v reflect.Value, vec []float32) error {
	return assignEmbedding(m.embedding.goName, v.Field(m.embedding.index), vec)
}

// assignValue stores a decoded attribute into a typed field, going through
// JSON when the dynamic type is not directly assignable.
func assignValue(dst reflect.Value, val any) error {
	if val == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %T: %w", val, err)
	}
	if err := json.Unmarshal(data, dst.Addr().Interface()); err != nil {
		return fmt.Errorf("decode into %s: %w", dst.Type(), err)
	}
	return nil
}
