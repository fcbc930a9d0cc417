package index

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/Snell1224/sos/pkg/sos/index/comparator"
)

// Ref is an object reference: the partition that holds the object and
// its byte offset within that partition's object bucket. The zero
// value is the null reference.
type Ref struct {
	PartitionID uint64
	Offset      uint64
}

// IsNull reports whether r is the null reference.
func (r Ref) IsNull() bool {
	return r.PartitionID == 0 && r.Offset == 0
}

// Bytes encodes the reference as 16 little-endian bytes, the value
// stored alongside every index key.
func (r Ref) Bytes() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], r.PartitionID)
	binary.LittleEndian.PutUint64(buf[8:16], r.Offset)
	return buf
}

// RefFromBytes decodes a 16-byte reference value.
func RefFromBytes(b []byte) Ref {
	if len(b) != 16 {
		return Ref{}
	}
	return Ref{
		PartitionID: binary.LittleEndian.Uint64(b[0:8]),
		Offset:      binary.LittleEndian.Uint64(b[8:16]),
	}
}

// Registry holds the set of comparators known to a container, keyed
// by their key-type name ("STRING", "UINT64", ...).
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]comparator.Comparator
}

// NewRegistry returns a registry pre-populated with the built-in
// comparators. Compound {secondary, primary} keys (used by the
// job/component ingest tool) are packed into a single big-endian
// uint64 and stored under the UINT64 comparator rather than a
// separate type — see comparator.PackCompound.
func NewRegistry() *Registry {
	r := &Registry{byKey: make(map[string]comparator.Comparator)}
	r.Register(comparator.StringComparator{})
	r.Register(comparator.Uint64Comparator{})
	return r
}

// Register adds or replaces a comparator under its own Type() name.
func (r *Registry) Register(c comparator.Comparator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[c.Type()] = c
}

// Lookup returns the comparator registered for typeName.
func (r *Registry) Lookup(typeName string) (comparator.Comparator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byKey[typeName]
	return c, ok
}

// indexBucketPrefix namespaces every index's top-level bbolt bucket so
// it can't collide with the container's own config/schemas/part
// buckets.
const indexBucketPrefix = "idx_"

// Index is an ordered key -> Ref mapping split across one bbolt
// sub-bucket per partition ("family BXTREE" in spec terms — bbolt is
// the concrete B+-tree realization). order is recorded as metadata
// only: bbolt manages its own page fanout and has no tunable node
// order to set.
type Index struct {
	db         *bbolt.DB
	name       string
	family     string
	keyType    string
	order      int
	comparator comparator.Comparator

	mu       sync.Mutex
	lastPart uint64 // atomic-friendly cache of the most recently used partition id
}

func bucketName(name string) []byte {
	return []byte(indexBucketPrefix + name)
}

// NewIndex creates a new named index and its top-level bucket. family
// is always "BXTREE" in this port but is kept as an explicit parameter
// so the signature matches the external contract even though only one
// family is realized.
func NewIndex(db *bbolt.DB, name, family, keyType string, order int, reg *Registry) (*Index, error) {
	cmp, ok := reg.Lookup(keyType)
	if !ok {
		return nil, fmt.Errorf("index: unknown key type %q", keyType)
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucket(bucketName(name))
		if err != nil {
			return err
		}
		meta, err := b.CreateBucketIfNotExists([]byte("__meta__"))
		if err != nil {
			return err
		}
		if err := meta.Put([]byte("family"), []byte(family)); err != nil {
			return err
		}
		if err := meta.Put([]byte("key_type"), []byte(keyType)); err != nil {
			return err
		}
		orderBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(orderBuf, uint32(order))
		return meta.Put([]byte("order"), orderBuf)
	})
	if err != nil {
		return nil, fmt.Errorf("index: creating %q: %w", name, err)
	}
	return &Index{db: db, name: name, family: family, keyType: keyType, order: order, comparator: cmp}, nil
}

// OpenIndex opens a previously created index, restoring its key type
// from the persisted metadata.
func OpenIndex(db *bbolt.DB, name string, reg *Registry) (*Index, error) {
	var keyType, family string
	var order int
	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(name))
		if b == nil {
			return fmt.Errorf("index: %q does not exist", name)
		}
		meta := b.Bucket([]byte("__meta__"))
		if meta == nil {
			return fmt.Errorf("index: %q is missing metadata", name)
		}
		keyType = string(meta.Get([]byte("key_type")))
		family = string(meta.Get([]byte("family")))
		if v := meta.Get([]byte("order")); len(v) == 4 {
			order = int(binary.LittleEndian.Uint32(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cmp, ok := reg.Lookup(keyType)
	if !ok {
		return nil, fmt.Errorf("index: %q: unknown key type %q", name, keyType)
	}
	return &Index{db: db, name: name, family: family, keyType: keyType, order: order, comparator: cmp}, nil
}

// Name returns the index's name.
func (x *Index) Name() string { return x.name }

// Comparator returns the comparator the index orders its keys with.
func (x *Index) Comparator() comparator.Comparator { return x.comparator }

func partBucketKey(partitionID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, partitionID)
	return buf
}

// activePart returns the sub-bucket id for the partition most recently
// inserted into.
func (x *Index) activePart() uint64 {
	return atomic.LoadUint64(&x.lastPart)
}

// matchingPart records partitionID as the most recently used
// partition.
func (x *Index) matchingPart(partitionID uint64) {
	atomic.StoreUint64(&x.lastPart, partitionID)
}

// Insert adds key -> ref under the sub-index for partitionID.
func (x *Index) Insert(partitionID uint64, key []byte, ref Ref) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	err := x.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketName(x.name))
		if root == nil {
			return fmt.Errorf("index: %q does not exist", x.name)
		}
		part, err := root.CreateBucketIfNotExists(partBucketKey(partitionID))
		if err != nil {
			return err
		}
		return part.Put(key, ref.Bytes())
	})
	if err != nil {
		return err
	}
	x.matchingPart(partitionID)
	return nil
}

// Delete removes key from the sub-index for partitionID, returning the
// Ref it pointed to.
func (x *Index) Delete(partitionID uint64, key []byte) (Ref, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	var ref Ref
	err := x.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketName(x.name))
		if root == nil {
			return fmt.Errorf("index: %q does not exist", x.name)
		}
		part := root.Bucket(partBucketKey(partitionID))
		if part == nil {
			return fmt.Errorf("index: %q has no entries for partition %d", x.name, partitionID)
		}
		v := part.Get(key)
		if v == nil {
			return fmt.Errorf("index: key not found in %q", x.name)
		}
		ref = RefFromBytes(v)
		return part.Delete(key)
	})
	return ref, err
}

// Find looks up key in the sub-index for partitionID without removing
// it.
func (x *Index) Find(partitionID uint64, key []byte) (Ref, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	var ref Ref
	var found bool
	_ = x.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketName(x.name))
		if root == nil {
			return nil
		}
		part := root.Bucket(partBucketKey(partitionID))
		if part == nil {
			return nil
		}
		v := part.Get(key)
		if v == nil {
			return nil
		}
		ref = RefFromBytes(v)
		found = true
		return nil
	})
	return ref, found
}

// Each performs an ordered traversal of every (key, ref) pair across
// all partitions, partition by partition, in ascending key order
// within each partition. It is used by the diagnostic dump command.
func (x *Index) Each(fn func(partitionID uint64, key []byte, ref Ref) error) error {
	return x.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketName(x.name))
		if root == nil {
			return fmt.Errorf("index: %q does not exist", x.name)
		}
		return root.ForEach(func(name, v []byte) error {
			if v != nil || string(name) == "__meta__" {
				return nil
			}
			partitionID := binary.BigEndian.Uint64(name)
			part := root.Bucket(name)
			return part.ForEach(func(k, v []byte) error {
				return fn(partitionID, k, RefFromBytes(v))
			})
		})
	})
}

// Commit flushes the index's pending writes. bbolt commits every
// Update transaction synchronously already; Commit exists to preserve
// the external contract's CommitSync/CommitAsync distinction and calls
// Sync explicitly when sync requests a durable commit.
func (x *Index) Commit(sync bool) error {
	if !sync {
		return nil
	}
	return x.db.Sync()
}
