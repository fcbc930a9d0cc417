package schema

import (
	"sync"
)

// AttrType enumerates the attribute value types a schema attribute may
// hold.
type AttrType int

const (
	TypeInt32 AttrType = iota
	TypeInt64
	TypeUint32
	TypeUint64
	TypeFloat64
	TypeTimestamp
	TypeString
	TypeByteArray
	TypeObj // reference to another object
)

// String renders the attribute type the way schema YAML files spell it.
func (t AttrType) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	case TypeFloat64:
		return "float64"
	case TypeTimestamp:
		return "timestamp"
	case TypeString:
		return "string"
	case TypeByteArray:
		return "byte_array"
	case TypeObj:
		return "obj"
	default:
		return "unknown"
	}
}

// ParseAttrType maps a YAML/CLI type name to an AttrType.
func ParseAttrType(s string) (AttrType, bool) {
	switch s {
	case "int32":
		return TypeInt32, true
	case "int64":
		return TypeInt64, true
	case "uint32":
		return TypeUint32, true
	case "uint64":
		return TypeUint64, true
	case "float64":
		return TypeFloat64, true
	case "timestamp":
		return TypeTimestamp, true
	case "string":
		return TypeString, true
	case "byte_array":
		return TypeByteArray, true
	case "obj":
		return TypeObj, true
	default:
		return 0, false
	}
}

// attrSize returns the fixed encoded width of a scalar attribute type.
// Variable-length types (string, byte_array) are stored out of band and
// report a zero fixed width.
func attrSize(t AttrType) int {
	switch t {
	case TypeInt32, TypeUint32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64, TypeTimestamp, TypeObj:
		return 8
	default:
		return 0
	}
}

// AttributeSpec is the declarative form of an attribute, as read from a
// schema YAML document or built up by a caller before SchemaAdd.
type AttributeSpec struct {
	Name    string
	Type    AttrType
	IsArray bool
	Indexed bool
}

// Attribute is a single named, typed field of a schema, in declaration
// order. Offset/Size describe its position within the fixed portion of
// an object's encoded record.
type Attribute struct {
	Name    string
	Type    AttrType
	IsArray bool
	Indexed bool
	Offset  int
	Size    int

	// IndexKey is the durable bucket key this attribute's index is
	// stored under, assigned once at schema-creation time and
	// persisted with the schema record. It is independent of Name so
	// that two schemas whose "schema.attribute" strings would collide
	// (e.g. schema "X.Y" attribute "Z" vs schema "X" attribute "Y.Z")
	// never address the same bucket.
	IndexKey string

	schema *Schema
}

// Schema returns the schema this attribute belongs to.
func (a *Attribute) Schema() *Schema { return a.schema }

// FirstUserSchemaID is the first id handed out to a user-defined
// schema; ids below it are reserved for built-in schemas.
const FirstUserSchemaID = 10

// Schema describes one named object layout: an ordered list of
// attributes and the total encoded size of its fixed-width portion.
type Schema struct {
	ID      uint32
	Name    string
	Attrs   []*Attribute
	ObjSize int

	mu       sync.Mutex
	refCount int32
}

// AttrByName returns the named attribute, or nil if the schema has no
// such attribute.
func (s *Schema) AttrByName(name string) *Attribute {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Get increments the schema's in-memory reference count.
func (s *Schema) Get() *Schema {
	s.mu.Lock()
	s.refCount++
	s.mu.Unlock()
	return s
}

// Put decrements the schema's in-memory reference count. Schemas are
// never freed back to the registry while the container that owns them
// is open; Put exists to mirror the object/schema refcounting
// discipline used throughout the store (each object handle holds one
// reference, taken when the handle is created and dropped when the
// handle's last Object.Put releases it).
func (s *Schema) Put() {
	s.mu.Lock()
	s.refCount--
	s.mu.Unlock()
}

// RefCount reports the schema's current in-memory reference count.
func (s *Schema) RefCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refCount
}

// Registry is the container's in-memory schema dictionary: two maps
// keyed by name and by id, guarded by one RWMutex, giving O(1) lookup
// by either key without hand-rolling tree balancing.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Schema
	byID   map[uint32]*Schema
	nextID uint32
}

// NewRegistry returns an empty registry whose first assigned schema id
// is FirstUserSchemaID.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Schema),
		byID:   make(map[uint32]*Schema),
		nextID: FirstUserSchemaID,
	}
}

// ByName looks up a schema by name.
func (r *Registry) ByName(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// ByID looks up a schema by id.
func (r *Registry) ByID(id uint32) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Len reports the number of schemas currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Each calls fn once per registered schema, in ascending id order. It
// is used to materialize per-partition buckets when a new partition is
// opened.
func (r *Registry) Each(fn func(*Schema)) {
	r.mu.RLock()
	schemas := make([]*Schema, 0, len(r.byID))
	for _, s := range r.byID {
		schemas = append(schemas, s)
	}
	r.mu.RUnlock()
	for i := 0; i < len(schemas); i++ {
		for j := i + 1; j < len(schemas); j++ {
			if schemas[j].ID < schemas[i].ID {
				schemas[i], schemas[j] = schemas[j], schemas[i]
			}
		}
	}
	for _, s := range schemas {
		fn(s)
	}
}

// Build constructs a new Schema from a name and attribute spec list,
// assigning offsets and the fixed object size, but does not register
// it — callers persist it first (schema/schema_idx buckets) and then
// call Insert with the id that was durably assigned.
func Build(name string, specs []AttributeSpec) *Schema {
	s := &Schema{Name: name}
	offset := 0
	for _, spec := range specs {
		a := &Attribute{
			Name:    spec.Name,
			Type:    spec.Type,
			IsArray: spec.IsArray,
			Indexed: spec.Indexed,
			Offset:  offset,
			Size:    attrSize(spec.Type),
			schema:  s,
		}
		s.Attrs = append(s.Attrs, a)
		offset += a.Size
	}
	s.ObjSize = offset
	return s
}

// Insert registers a schema that has already been assigned a durable
// id, making it visible to ByName/ByID/Each.
func (r *Registry) Insert(s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[s.Name] = s
	r.byID[s.ID] = s
	if s.ID >= r.nextID {
		r.nextID = s.ID + 1
	}
}

// NextID returns the id that should be assigned to the next new
// schema, without reserving it; the caller reserves it by persisting
// the schema record and then calling Insert.
func (r *Registry) NextID() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}
