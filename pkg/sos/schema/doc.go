/*
Package schema implements the container's schema registry: the set of
named object layouts and their indexed attributes.

A Schema is an ordered list of Attributes, each with a type, an
optional array flag, and an optional Indexed flag. Build assembles a
Schema from a declarative []AttributeSpec, computing each attribute's
byte Offset and Size within an object's fixed-width record. Registry
holds the set of schemas a container knows about, keyed by both name
and id, so object records (which store only a schema id) and
user-facing lookups (by name) are both O(1).

Every indexed Attribute carries an IndexKey: a durable identifier for
its index bucket, assigned once when the schema is added to a
container and persisted alongside it, independent of the schema and
attribute names. See pkg/sos's SchemaAdd.

ParseYAML (yaml.go) parses the schema document format accepted by the
"sosutil schema load" command.
*/
package schema
