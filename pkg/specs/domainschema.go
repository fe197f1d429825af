package specs

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ValidPropertyTypes are the only types PropertyDef.Type may take.
var ValidPropertyTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"date":    true,
	"boolean": true,
	"json":    true,
}

// PropertyDef declares one property of an entity or relationship type.
type PropertyDef struct {
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Pattern     *string  `yaml:"pattern,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
	Description *string  `yaml:"description,omitempty"`
}

// EntityTypeDef declares one entity type: its primary key property and the
// full set of properties it may carry.
type EntityTypeDef struct {
	PrimaryKey  string                 `yaml:"primary_key"`
	Properties  map[string]PropertyDef `yaml:"properties"`
	Description *string                `yaml:"description,omitempty"`
}

// RelationshipTypeDef declares one relationship type and the entity types
// it may connect. YAML authors write `from`/`to`; `from_type`/`to_type` are
// also accepted for documents written against the underlying schema names.
type RelationshipTypeDef struct {
	FromType    string                 `yaml:"from_type"`
	ToType      string                 `yaml:"to_type"`
	Properties  map[string]PropertyDef `yaml:"properties,omitempty"`
	Description *string                `yaml:"description,omitempty"`
}

// rawRelationshipTypeDef mirrors the YAML author's view, which spells the
// endpoint fields `from`/`to` for readability.
type rawRelationshipTypeDef struct {
	From        string                 `yaml:"from"`
	To          string                 `yaml:"to"`
	FromType    string                 `yaml:"from_type"`
	ToType      string                 `yaml:"to_type"`
	Properties  map[string]PropertyDef `yaml:"properties,omitempty"`
	Description *string                `yaml:"description,omitempty"`
}

func (r *RelationshipTypeDef) UnmarshalYAML(value *yaml.Node) error {
	var raw rawRelationshipTypeDef
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.FromType = raw.From
	if r.FromType == "" {
		r.FromType = raw.FromType
	}
	r.ToType = raw.To
	if r.ToType == "" {
		r.ToType = raw.ToType
	}
	r.Properties = raw.Properties
	r.Description = raw.Description
	return nil
}

// AliasConfig lets one entity type present itself under a second identity
// (e.g. a legacy code system), resolved by alias_key against
// alias_entity_type's instances.
type AliasConfig struct {
	EntityType      string `yaml:"entity_type"`
	AliasEntityType string `yaml:"alias_entity_type"`
	AliasKey        string `yaml:"alias_key"`
}

// DomainSchema is the set of entity and relationship types a workspace is
// allowed to assert against.
type DomainSchema struct {
	Workspace         string                          `yaml:"workspace"`
	Version           string                          `yaml:"version"`
	EntityTypes       map[string]EntityTypeDef         `yaml:"entity_types"`
	RelationshipTypes map[string]RelationshipTypeDef    `yaml:"relationship_types"`
	AliasConfig       *AliasConfig                    `yaml:"alias_config,omitempty"`
}

// ParseDomainSchema unmarshals and validates a DomainSchema document.
func ParseDomainSchema(data []byte) (*DomainSchema, error) {
	var schema DomainSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing domain schema: %w", err)
	}
	if errs := ValidateDomainSchema(&schema); len(errs) > 0 {
		return nil, fmt.Errorf("domain schema %q is invalid: %v", schema.Workspace, errs)
	}
	return &schema, nil
}

// ValidateDomainSchema checks structural integrity: every primary_key must
// name a declared property, property and relationship-property types must
// be one of ValidPropertyTypes, every declared regex pattern must compile,
// every relationship's from/to must name a declared entity type, and an
// alias_config, when present, must name declared entity types in both
// entity_type and alias_entity_type. It returns every violation found
// rather than stopping at the first.
func ValidateDomainSchema(schema *DomainSchema) []string {
	var errs []string

	for name, etype := range schema.EntityTypes {
		if _, ok := etype.Properties[etype.PrimaryKey]; !ok {
			errs = append(errs, fmt.Sprintf("entity %q: primary_key %q not found in properties", name, etype.PrimaryKey))
		}
		for propName, prop := range etype.Properties {
			errs = append(errs, validateProperty(fmt.Sprintf("entity %q.%s", name, propName), prop)...)
		}
	}

	for name, rel := range schema.RelationshipTypes {
		if _, ok := schema.EntityTypes[rel.FromType]; !ok {
			errs = append(errs, fmt.Sprintf("relationship %q: from_type %q not found in entity_types", name, rel.FromType))
		}
		if _, ok := schema.EntityTypes[rel.ToType]; !ok {
			errs = append(errs, fmt.Sprintf("relationship %q: to_type %q not found in entity_types", name, rel.ToType))
		}
		for propName, prop := range rel.Properties {
			errs = append(errs, validateProperty(fmt.Sprintf("relationship %q.%s", name, propName), prop)...)
		}
	}

	if ac := schema.AliasConfig; ac != nil {
		if _, ok := schema.EntityTypes[ac.EntityType]; !ok {
			errs = append(errs, fmt.Sprintf("alias_config: entity_type %q not found in entity_types", ac.EntityType))
		}
		if _, ok := schema.EntityTypes[ac.AliasEntityType]; !ok {
			errs = append(errs, fmt.Sprintf("alias_config: alias_entity_type %q not found in entity_types", ac.AliasEntityType))
		}
	}

	return errs
}

func validateProperty(label string, prop PropertyDef) []string {
	var errs []string
	if !ValidPropertyTypes[prop.Type] {
		errs = append(errs, fmt.Sprintf("%s: invalid type %q", label, prop.Type))
	}
	if prop.Pattern != nil {
		if _, err := regexp.Compile(*prop.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid regex pattern %q: %v", label, *prop.Pattern, err))
		}
	}
	return errs
}
