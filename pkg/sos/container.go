package sos

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Snell1224/sos/pkg/log"
	"github.com/Snell1224/sos/pkg/metrics"
	"github.com/Snell1224/sos/pkg/sos/index"
	"github.com/Snell1224/sos/pkg/sos/schema"
)

// Permission controls the mode a container is opened with.
type Permission int

const (
	PermRead Permission = 1 << iota
	PermWrite
)

// CommitFlags selects whether a commit waits for the underlying file
// to be durably flushed.
type CommitFlags int

const (
	CommitAsync CommitFlags = iota
	CommitSync
)

const (
	bucketConfig    = "config"
	bucketConfigIdx = "config_idx"
	bucketSchemas   = "schemas"
	bucketSchemaIdx = "schema_idx"
	bucketPart      = "part"

	udataKey = "__udata__"

	schemaSignature = "SOSC"
	schemaVersion   = uint32(1)

	partSignature = "SOSP"

	// rootPartitionName is the default partition created when a
	// container is opened with none, seeding a usable primary
	// partition on first open.
	rootPartitionName = "__ROOT__"
)

// schemaUdata is the persisted header record of the schemas bucket.
type schemaUdata struct {
	Signature    string
	Version      uint32
	LastSchemaID uint32
}

// partUdata is the persisted header record of the part bucket: the
// doubly-linked partition list's head/tail/primary pointers and the id
// allocator.
type partUdata struct {
	Signature string
	HeadID    uint64
	TailID    uint64
	PrimaryID uint64
	NextID    uint64
}

// partitionRecord and objectBucketName live in partition.go.

// schemaRecord is the persisted form of a schema.Schema.
type schemaRecord struct {
	ID    uint32
	Name  string
	Attrs []schemaAttrRecord
}

type schemaAttrRecord struct {
	Name     string
	Type     schema.AttrType
	IsArray  bool
	Indexed  bool
	IndexKey string
}

// Container is an open Scalable Object Store container: one bbolt
// database holding the config, schema registry, and partition list,
// plus the per-partition object and index buckets materialized from
// them.
type Container struct {
	path string
	mode os.FileMode
	db   *bbolt.DB

	schemas  *schema.Registry
	indexReg *index.Registry

	mu         sync.Mutex
	partitions map[uint64]*Partition
	headID     uint64
	tailID     uint64
	primaryID  uint64
	nextPartID uint64

	indexes map[string]*index.Index

	objFreeList []*Object

	refCount int32
}

// Create builds the on-disk layout for a new container: the config,
// config_idx, schemas, schema_idx, and part buckets, realized as bbolt
// top-level buckets. The whole layout is built inside a single
// bbolt.Update transaction, so a failure at any step aborts the
// transaction, and the newly created file is then removed instead of
// leaving a partially built container behind.
func Create(path string, mode os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExist, path)
	} else if !os.IsNotExist(err) {
		return err
	}

	db, err := bbolt.Open(path, mode, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("sos: creating container: %w", err)
	}
	defer db.Close()

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucket([]byte(bucketConfig)); err != nil {
			return err
		}
		if _, err := tx.CreateBucket([]byte(bucketConfigIdx)); err != nil {
			return err
		}
		schemasB, err := tx.CreateBucket([]byte(bucketSchemas))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucket([]byte(bucketSchemaIdx)); err != nil {
			return err
		}
		su := schemaUdata{Signature: schemaSignature, Version: schemaVersion, LastSchemaID: schema.FirstUserSchemaID - 1}
		sub, err := json.Marshal(su)
		if err != nil {
			return err
		}
		if err := schemasB.Put([]byte(udataKey), sub); err != nil {
			return err
		}

		partB, err := tx.CreateBucket([]byte(bucketPart))
		if err != nil {
			return err
		}
		pu := partUdata{Signature: partSignature, NextID: 1}
		pub, err := json.Marshal(pu)
		if err != nil {
			return err
		}
		return partB.Put([]byte(udataKey), pub)
	})
	if err != nil {
		db.Close()
		os.Remove(path)
		return fmt.Errorf("sos: creating container layout: %w", err)
	}
	log.Info("container created")
	return nil
}

// Open opens an existing container, verifies its schema signature and
// version, rebuilds the in-memory schema registry, and opens (or, if
// none exist, creates and marks primary) its partitions.
func Open(path string, perm Permission) (*Container, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ContainerOpenDuration)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	readOnly := perm == PermRead
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: time.Second, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("sos: opening container: %w", err)
	}

	c := &Container{
		path:       path,
		db:         db,
		schemas:    schema.NewRegistry(),
		indexReg:   index.NewRegistry(),
		partitions: make(map[uint64]*Partition),
		indexes:    make(map[string]*index.Index),
		refCount:   1,
	}

	if err := c.loadSchemas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.loadPartitions(); err != nil {
		db.Close()
		return nil, err
	}
	if len(c.partitions) == 0 {
		if _, err := c.PartitionNew(rootPartitionName); err != nil {
			db.Close()
			return nil, err
		}
		c.mu.Lock()
		for id := range c.partitions {
			c.primaryID = id
			break
		}
		c.mu.Unlock()
		if err := c.persistPartUdata(); err != nil {
			db.Close()
			return nil, err
		}
		c.mu.Lock()
		for id, p := range c.partitions {
			if id == c.primaryID {
				// A fresh partition starts OFFLINE; the bootstrap root
				// partition needs to be usable immediately, so it's
				// brought online and made primary in one step.
				p.State |= PartActive | PartPrimary
			}
		}
		c.mu.Unlock()
		if err := c.persistAllPartitions(); err != nil {
			db.Close()
			return nil, err
		}
	}

	log.WithContainer(path).Info().Msg("container opened")
	return c, nil
}

func (c *Container) loadSchemas() error {
	return c.db.View(func(tx *bbolt.Tx) error {
		sb := tx.Bucket([]byte(bucketSchemas))
		if sb == nil {
			return fmt.Errorf("%w: container missing schemas bucket", ErrCorrupt)
		}
		raw := sb.Get([]byte(udataKey))
		var su schemaUdata
		if err := json.Unmarshal(raw, &su); err != nil {
			return fmt.Errorf("%w: decoding schema udata: %v", ErrCorrupt, err)
		}
		if su.Signature != schemaSignature || su.Version != schemaVersion {
			return fmt.Errorf("%w: schema signature/version mismatch", ErrInvalid)
		}

		return sb.ForEach(func(k, v []byte) error {
			if string(k) == udataKey {
				return nil
			}
			var rec schemaRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: decoding schema %q: %v", ErrCorrupt, k, err)
			}
			specs := make([]schema.AttributeSpec, 0, len(rec.Attrs))
			for _, a := range rec.Attrs {
				specs = append(specs, schema.AttributeSpec{Name: a.Name, Type: a.Type, IsArray: a.IsArray, Indexed: a.Indexed})
			}
			s := schema.Build(rec.Name, specs)
			s.ID = rec.ID
			for i, a := range rec.Attrs {
				s.Attrs[i].IndexKey = a.IndexKey
			}
			c.schemas.Insert(s)
			return nil
		})
	})
}

func (c *Container) loadPartitions() error {
	return c.db.View(func(tx *bbolt.Tx) error {
		pb := tx.Bucket([]byte(bucketPart))
		if pb == nil {
			return fmt.Errorf("%w: container missing part bucket", ErrCorrupt)
		}
		raw := pb.Get([]byte(udataKey))
		var pu partUdata
		if err := json.Unmarshal(raw, &pu); err != nil {
			return fmt.Errorf("%w: decoding part udata: %v", ErrCorrupt, err)
		}
		c.headID, c.tailID, c.primaryID, c.nextPartID = pu.HeadID, pu.TailID, pu.PrimaryID, pu.NextID

		return pb.ForEach(func(k, v []byte) error {
			if string(k) == udataKey {
				return nil
			}
			id := binary.BigEndian.Uint64(k)
			var rec partitionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: decoding partition %d: %v", ErrCorrupt, id, err)
			}
			c.partitions[id] = &Partition{
				ID: id, Name: rec.Name, State: rec.State,
				PrevID: rec.PrevID, NextID: rec.NextID, c: c,
			}
			return nil
		})
	})
}

func (c *Container) persistPartUdata() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket([]byte(bucketPart))
		pu := partUdata{Signature: partSignature, HeadID: c.headID, TailID: c.tailID, PrimaryID: c.primaryID, NextID: c.nextPartID}
		buf, err := json.Marshal(pu)
		if err != nil {
			return err
		}
		return pb.Put([]byte(udataKey), buf)
	})
}

func (c *Container) persistAllPartitions() error {
	c.mu.Lock()
	parts := make(map[uint64]*Partition, len(c.partitions))
	for id, p := range c.partitions {
		parts[id] = p
	}
	c.mu.Unlock()

	return c.db.Update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket([]byte(bucketPart))
		for id, p := range parts {
			rec := partitionRecord{Name: p.Name, State: p.State, PrevID: p.PrevID, NextID: p.NextID}
			buf, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := pb.Put(partKeyBytes(id), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

func partKeyBytes(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

// Commit flushes pending writes. bbolt's Update transactions are
// already durable on commit; Commit(CommitSync) additionally forces an
// fsync of the file, preserving the CommitSync/CommitAsync distinction
// callers expect from an external store.
func (c *Container) Commit(flags CommitFlags) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CommitDuration, flagsLabel(flags))
	if flags != CommitSync {
		return nil
	}
	return c.db.Sync()
}

func flagsLabel(flags CommitFlags) string {
	if flags == CommitSync {
		return "sync"
	}
	return "async"
}

// Close releases the container's bbolt handle. It is only safe to call
// once the reference count has reached zero via Put.
func (c *Container) Close(flags CommitFlags) error {
	if err := c.Commit(flags); err != nil {
		return err
	}
	log.WithContainer(c.path).Info().Msg("container closed")
	return c.db.Close()
}

// Extend validates a request to grow the container's backing storage
// and writes nothing: bbolt grows its file automatically as buckets
// fill, so there is no separate extend step to perform. With no
// primary partition it returns an error that matches both ErrInvalid
// and ErrNoPrimary under errors.Is, rather than silently succeeding; a
// newSize of zero or less returns ErrInvalid.
func (c *Container) Extend(newSize int64) error {
	c.mu.Lock()
	hasPrimary := c.primaryID != 0
	c.mu.Unlock()
	if !hasPrimary {
		return fmt.Errorf("%w: %w", ErrInvalid, ErrNoPrimary)
	}
	if newSize <= 0 {
		return ErrInvalid
	}
	return nil
}

// Stat returns the backing file's os.FileInfo.
func (c *Container) Stat() (os.FileInfo, error) {
	return os.Stat(c.path)
}

// Get increments the container's reference count.
func (c *Container) Get() *Container {
	atomic.AddInt32(&c.refCount, 1)
	return c
}

// Put decrements the container's reference count. It does not close
// the container on reaching zero; callers that want that must call
// Close explicitly, keeping refcounting and closing as separate steps.
func (c *Container) Put() {
	atomic.AddInt32(&c.refCount, -1)
}

// RefCount reports the container's current reference count.
func (c *Container) RefCount() int32 {
	return atomic.LoadInt32(&c.refCount)
}

// Config reads a value from the container's config key-value store.
func (c *Container) Config(key string) (string, bool, error) {
	var val string
	var ok bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketConfig))
		if b == nil {
			return fmt.Errorf("%w: container missing config bucket", ErrCorrupt)
		}
		v := b.Get([]byte(key))
		if v != nil {
			val, ok = string(v), true
		}
		return nil
	})
	return val, ok, err
}

// ConfigSet writes a value into the container's config key-value
// store. Because a bbolt bucket is already a B+-tree ordered by key,
// ordered iteration falls out of scanning the same bucket; the
// config_idx bucket that Create makes holds no entries.
func (c *Container) ConfigSet(key, value string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketConfig))
		if b == nil {
			return fmt.Errorf("%w: container missing config bucket", ErrCorrupt)
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// ConfigEach iterates every config key in ascending byte order.
func (c *Container) ConfigEach(fn func(key, value string) error) error {
	return c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketConfig))
		if b == nil {
			return fmt.Errorf("%w: container missing config bucket", ErrCorrupt)
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), string(v))
		})
	})
}

// Schemas returns the container's in-memory schema registry.
func (c *Container) Schemas() *schema.Registry {
	return c.schemas
}

// PartitionCounts reports the number of partitions in each state
// ("active", "primary", "offline"). It satisfies metrics.ContainerStats
// so a *Collector can poll the container without pkg/metrics importing
// package sos.
func (c *Container) PartitionCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := map[string]int{"active": 0, "primary": 0, "offline": 0}
	for _, p := range c.partitions {
		switch {
		case p.State&PartPrimary != 0:
			counts["primary"]++
		case p.State&PartActive != 0:
			counts["active"]++
		default:
			counts["offline"]++
		}
	}
	return counts
}

// SchemaCount reports the number of schemas registered in the
// container. It satisfies metrics.ContainerStats.
func (c *Container) SchemaCount() int {
	return c.schemas.Len()
}
