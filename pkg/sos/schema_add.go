package sos

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/Snell1224/sos/pkg/log"
	"github.com/Snell1224/sos/pkg/metrics"
	"github.com/Snell1224/sos/pkg/sos/index"
	"github.com/Snell1224/sos/pkg/sos/schema"
)

// SchemaAdd registers a new schema with the container, persisting its
// record and assigning it the next durable schema id, then eagerly
// materializing an index for every indexed attribute.
func (c *Container) SchemaAdd(name string, attrs []schema.AttributeSpec) (*schema.Schema, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SchemaAddDuration)

	if _, exists := c.schemas.ByName(name); exists {
		return nil, fmt.Errorf("%w: schema %q", ErrExist, name)
	}

	s := schema.Build(name, attrs)
	id := c.schemas.NextID()
	s.ID = id

	// Every indexed attribute gets a durable, collision-free bucket key
	// independent of its schema/attribute name, assigned once here and
	// persisted with the schema record.
	for _, a := range s.Attrs {
		if a.Indexed {
			a.IndexKey = uuid.NewString()
		}
	}

	rec := schemaRecord{ID: id, Name: name}
	for _, a := range s.Attrs {
		rec.Attrs = append(rec.Attrs, schemaAttrRecord{Name: a.Name, Type: a.Type, IsArray: a.IsArray, Indexed: a.Indexed, IndexKey: a.IndexKey})
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		sb := tx.Bucket([]byte(bucketSchemas))
		if err := sb.Put([]byte(name), buf); err != nil {
			return err
		}

		raw := sb.Get([]byte(udataKey))
		var su schemaUdata
		if err := json.Unmarshal(raw, &su); err != nil {
			return fmt.Errorf("%w: decoding schema udata: %v", ErrCorrupt, err)
		}
		if id > su.LastSchemaID {
			su.LastSchemaID = id
		}
		sub, err := json.Marshal(su)
		if err != nil {
			return err
		}
		if err := sb.Put([]byte(udataKey), sub); err != nil {
			return err
		}

		idxb := tx.Bucket([]byte(bucketSchemaIdx))
		idBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(idBuf, id)
		return idxb.Put(idBuf, []byte(name))
	})
	if err != nil {
		return nil, fmt.Errorf("sos: adding schema %q: %w", name, err)
	}

	c.schemas.Insert(s)
	metrics.SchemasTotal.Inc()
	log.WithSchema(name).Info().Uint32("id", id).Msg("schema added")

	for _, attr := range s.Attrs {
		if !attr.Indexed {
			continue
		}
		name := indexName(s, attr)
		idx, err := index.NewIndex(c.db, name, "BXTREE", attrKeyType(attr.Type), 5, c.indexReg)
		if err != nil {
			return nil, fmt.Errorf("sos: materializing index %q: %w", name, err)
		}
		c.mu.Lock()
		c.indexes[name] = idx
		c.mu.Unlock()
	}

	return s, nil
}
