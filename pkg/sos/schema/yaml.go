package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlDocument mirrors the schema YAML document shape accepted by
// "sosutil schema load":
//
//	name: Job
//	attributes:
//	  - {name: Id, type: uint32, indexed: true}
//	  - {name: Start, type: timestamp}
type yamlDocument struct {
	Name       string        `yaml:"name"`
	Attributes []yamlAttrDef `yaml:"attributes"`
}

type yamlAttrDef struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	IsArray bool   `yaml:"array"`
	Indexed bool   `yaml:"indexed"`
}

// ParseYAML decodes a schema definition document into a name and
// attribute spec list suitable for Container.SchemaAdd.
func ParseYAML(data []byte) (string, []AttributeSpec, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("schema: parsing yaml: %w", err)
	}
	if doc.Name == "" {
		return "", nil, fmt.Errorf("schema: yaml document missing top-level name")
	}
	specs := make([]AttributeSpec, 0, len(doc.Attributes))
	for _, a := range doc.Attributes {
		if a.Name == "" {
			return "", nil, fmt.Errorf("schema: attribute missing name in schema %q", doc.Name)
		}
		t, ok := ParseAttrType(a.Type)
		if !ok {
			return "", nil, fmt.Errorf("schema: attribute %q: unknown type %q", a.Name, a.Type)
		}
		specs = append(specs, AttributeSpec{
			Name:    a.Name,
			Type:    t,
			IsArray: a.IsArray,
			Indexed: a.Indexed,
		})
	}
	return doc.Name, specs, nil
}
