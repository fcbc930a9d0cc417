package sos

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/Snell1224/sos/pkg/log"
	"github.com/Snell1224/sos/pkg/metrics"
	"github.com/Snell1224/sos/pkg/sos/index"
	"github.com/Snell1224/sos/pkg/sos/schema"
)

// Ref is an object reference: the partition holding the object and
// its offset within that partition's object bucket. The zero value is
// the null reference.
type Ref struct {
	PartitionID uint64
	Offset      uint64
}

// IsNull reports whether r is the null reference.
func (r Ref) IsNull() bool {
	return r.PartitionID == 0 && r.Offset == 0
}

func (r Ref) toIndexRef() index.Ref {
	return index.Ref{PartitionID: r.PartitionID, Offset: r.Offset}
}

func fromIndexRef(r index.Ref) Ref {
	return Ref{PartitionID: r.PartitionID, Offset: r.Offset}
}

// objectRecord is the on-disk encoding of an object: its schema id
// plus its attribute values, keyed by attribute name. Storing it as a
// JSON map follows a marshal/unmarshal-per-entity storage convention
// instead of hand packing a byte layout bbolt does not need.
type objectRecord struct {
	SchemaID uint32
	Attrs    map[string]any
}

// Object is an in-memory handle to a persisted object: its schema, the
// partition holding it, and its offset within that partition.
type Object struct {
	c        *Container
	schema   *schema.Schema
	part     *Partition
	offset   uint64
	refCount int32
}

// New allocates and persists a new, empty object of the given schema
// in the container's current primary partition. It requires a PRIMARY
// partition (ErrNoPrimary otherwise) and draws its in-memory wrapper
// from the container's free list when one is available — a pure
// performance optimization; tests must never assert a particular reuse
// order.
func (c *Container) New(s *schema.Schema) (*Object, error) {
	c.mu.Lock()
	primaryID := c.primaryID
	part := c.partitions[primaryID]
	c.mu.Unlock()
	if primaryID == 0 || part == nil {
		return nil, ErrNoPrimary
	}

	var offset uint64
	rec := objectRecord{SchemaID: s.ID, Attrs: make(map[string]any)}
	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(objectBucketName(primaryID))
		if b == nil {
			return fmt.Errorf("%w: partition %d has no object bucket", ErrCorrupt, primaryID)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		offset = seq
		return b.Put(offsetKeyBytes(offset), buf)
	})
	if err != nil {
		return nil, fmt.Errorf("sos: allocating object: %w", err)
	}

	s.Get()
	metrics.ObjectsAllocatedTotal.WithLabelValues(s.Name).Inc()

	obj := c.objFromFreeList()
	obj.c = c
	obj.schema = s
	obj.part = part
	obj.offset = offset
	obj.refCount = 1
	return obj, nil
}

func (c *Container) objFromFreeList() *Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.objFreeList)
	if n == 0 {
		return &Object{}
	}
	obj := c.objFreeList[n-1]
	c.objFreeList = c.objFreeList[:n-1]
	return obj
}

func (c *Container) objToFreeList(obj *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj.c, obj.schema, obj.part, obj.offset, obj.refCount = nil, nil, nil, 0, 0
	c.objFreeList = append(c.objFreeList, obj)
}

func offsetKeyBytes(offset uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, offset)
	return buf
}

// Ref returns the persisted reference to this object.
func (o *Object) Ref() Ref {
	return Ref{PartitionID: o.part.ID, Offset: o.offset}
}

// ObjectFromRef resolves a persisted reference back into an object
// handle. An unknown schema id is not an error: it returns (nil, nil).
func (c *Container) ObjectFromRef(ref Ref) (*Object, error) {
	c.mu.Lock()
	part := c.partitions[ref.PartitionID]
	c.mu.Unlock()
	if part == nil {
		return nil, fmt.Errorf("%w: partition %d", ErrNotFound, ref.PartitionID)
	}

	var rec objectRecord
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(objectBucketName(ref.PartitionID))
		if b == nil {
			return fmt.Errorf("%w: partition %d has no object bucket", ErrCorrupt, ref.PartitionID)
		}
		v := b.Get(offsetKeyBytes(ref.Offset))
		if v == nil {
			return fmt.Errorf("%w: object at offset %d", ErrNotFound, ref.Offset)
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}

	s, ok := c.schemas.ByID(rec.SchemaID)
	if !ok {
		return nil, nil
	}
	s.Get()

	obj := c.objFromFreeList()
	obj.c = c
	obj.schema = s
	obj.part = part
	obj.offset = ref.Offset
	obj.refCount = 1
	return obj, nil
}

// Get increments the object's in-memory reference count.
func (o *Object) Get() *Object {
	o.refCount++
	return o
}

// Put decrements the object's in-memory reference count, returning the
// wrapper to the container's free list and dropping the schema's
// reference count on reaching zero.
func (o *Object) Put() {
	o.refCount--
	if o.refCount > 0 {
		return
	}
	c, s := o.c, o.schema
	c.objToFreeList(o)
	s.Put()
}

func (o *Object) readRecord(tx *bbolt.Tx) (objectRecord, *bbolt.Bucket, error) {
	b := tx.Bucket(objectBucketName(o.part.ID))
	if b == nil {
		return objectRecord{}, nil, fmt.Errorf("%w: partition %d has no object bucket", ErrCorrupt, o.part.ID)
	}
	v := b.Get(offsetKeyBytes(o.offset))
	if v == nil {
		return objectRecord{}, nil, fmt.Errorf("%w: object at offset %d", ErrNotFound, o.offset)
	}
	var rec objectRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return objectRecord{}, nil, fmt.Errorf("%w: decoding object: %v", ErrCorrupt, err)
	}
	return rec, b, nil
}

// SetAttr sets the named attribute's value on the object, persisting
// the change immediately.
func (o *Object) SetAttr(name string, v any) error {
	attr := o.schema.AttrByName(name)
	if attr == nil {
		return fmt.Errorf("%w: attribute %q", ErrNotFound, name)
	}
	return o.c.db.Update(func(tx *bbolt.Tx) error {
		rec, b, err := o.readRecord(tx)
		if err != nil {
			return err
		}
		rec.Attrs[name] = v
		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(offsetKeyBytes(o.offset), buf)
	})
}

// Attr returns the named attribute's current value.
func (o *Object) Attr(name string) (any, error) {
	attr := o.schema.AttrByName(name)
	if attr == nil {
		return nil, fmt.Errorf("%w: attribute %q", ErrNotFound, name)
	}
	var result any
	err := o.c.db.View(func(tx *bbolt.Tx) error {
		rec, _, err := o.readRecord(tx)
		if err != nil {
			return err
		}
		result = rec.Attrs[name]
		return nil
	})
	return result, err
}

// indexName is the bucket name an attribute's index is registered
// under: its durable IndexKey when one has been assigned (every
// attribute added through SchemaAdd gets one), falling back to a
// "schema.attribute" name for schemas built directly in tests.
func indexName(s *schema.Schema, attr *schema.Attribute) string {
	if attr.IndexKey != "" {
		return attr.IndexKey
	}
	return s.Name + "." + attr.Name
}

func attrKeyType(t schema.AttrType) string {
	if t == schema.TypeString {
		return "STRING"
	}
	return "UINT64"
}

func attrKeyBytes(t schema.AttrType, v any) ([]byte, error) {
	switch t {
	case schema.TypeString:
		s, _ := v.(string)
		buf := make([]byte, len(s)+1)
		copy(buf, s)
		return buf, nil
	default:
		var u uint64
		switch n := v.(type) {
		case uint64:
			u = n
		case int64:
			u = uint64(n)
		case uint32:
			u = uint64(n)
		case int32:
			u = uint64(n)
		case float64:
			u = uint64(n)
		default:
			return nil, fmt.Errorf("%w: unsupported attribute value %T", ErrInvalid, v)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, u)
		return buf, nil
	}
}

// Index inserts the object into every index of its schema's indexed
// attributes, in declaration order. On a failed insert it returns that
// error immediately, leaving the object indexed by every attribute
// processed so far — the caller must compensate with Remove; there is
// no automatic rollback.
func (o *Object) Index() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ObjectIndexDuration)

	ref := o.Ref().toIndexRef()
	for _, attr := range o.schema.Attrs {
		if !attr.Indexed {
			continue
		}
		v, err := o.Attr(attr.Name)
		if err != nil {
			return err
		}
		key, err := attrKeyBytes(attr.Type, v)
		if err != nil {
			return err
		}
		idx, err := o.c.ensureIndex(o.schema, attr)
		if err != nil {
			metrics.IndexInsertErrorsTotal.WithLabelValues(o.schema.Name, attr.Name).Inc()
			return err
		}
		if err := idx.Insert(o.part.ID, key, ref); err != nil {
			metrics.IndexInsertErrorsTotal.WithLabelValues(o.schema.Name, attr.Name).Inc()
			return err
		}
		metrics.IndexInsertsTotal.WithLabelValues(o.schema.Name, attr.Name).Inc()
	}
	return nil
}

// Remove deletes the object's entry from every indexed attribute's
// index. A missing index entry is fatal: Remove returns the first
// nonzero error immediately rather than continuing to best-effort
// clean up the remaining attributes.
func (o *Object) Remove() error {
	for _, attr := range o.schema.Attrs {
		if !attr.Indexed {
			continue
		}
		v, err := o.Attr(attr.Name)
		if err != nil {
			return err
		}
		key, err := attrKeyBytes(attr.Type, v)
		if err != nil {
			return err
		}
		idx, err := o.c.ensureIndex(o.schema, attr)
		if err != nil {
			return err
		}
		if _, err := idx.Delete(o.part.ID, key); err != nil {
			return err
		}
		metrics.IndexDeletesTotal.WithLabelValues(o.schema.Name, attr.Name).Inc()
	}
	return nil
}

// Delete removes the object's stored record from its partition's
// object bucket. It does not touch the in-memory reference count;
// callers still call Put to release their handle.
func (o *Object) Delete() error {
	err := o.c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(objectBucketName(o.part.ID))
		if b == nil {
			return fmt.Errorf("%w: partition %d has no object bucket", ErrCorrupt, o.part.ID)
		}
		return b.Delete(offsetKeyBytes(o.offset))
	})
	if err != nil {
		return err
	}
	metrics.ObjectsDeletedTotal.WithLabelValues(o.schema.Name).Inc()
	log.WithSchema(o.schema.Name).Debug().Uint64("offset", o.offset).Msg("object deleted")
	return nil
}

// ensureIndex returns the index backing attr, creating it (and its
// metadata) the first time it is needed.
func (c *Container) ensureIndex(s *schema.Schema, attr *schema.Attribute) (*index.Index, error) {
	name := indexName(s, attr)
	c.mu.Lock()
	idx := c.indexes[name]
	c.mu.Unlock()
	if idx != nil {
		return idx, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx = c.indexes[name]; idx != nil {
		return idx, nil
	}
	idx, err := index.OpenIndex(c.db, name, c.indexReg)
	if err != nil {
		idx, err = index.NewIndex(c.db, name, "BXTREE", attrKeyType(attr.Type), 5, c.indexReg)
		if err != nil {
			return nil, err
		}
	}
	c.indexes[name] = idx
	return idx, nil
}
