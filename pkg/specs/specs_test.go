package specs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validIngestionSpecYAML = `
spec_name: items_v1
spec_version: "1"
workspace_id: acme
sheets:
  - sheet_name: Items
    entities:
      item:
        entity_type: Item
        key_columns: [sku]
        key_template: "Item:{sku}"
        properties:
          - source_column: SKU
            target_property: sku
          - source_column: Name
            target_property: name
`

func TestParseIngestionSpec_AppliesDefaults(t *testing.T) {
	t.Parallel()

	spec, err := ParseIngestionSpec([]byte(validIngestionSpecYAML))
	require.NoError(t, err)
	require.Equal(t, "excel", spec.SourceType)
	require.Equal(t, "normalized", spec.ChangeDetection.Mode)
	require.Equal(t, "|", spec.RawHashSerialization.Delimiter)
	require.Equal(t, "<NULL>", spec.RawHashSerialization.NullRepresentation)
}

func TestParseIngestionSpec_RejectsUndefinedRelationshipEndpoints(t *testing.T) {
	t.Parallel()

	spec := validIngestionSpecYAML + `
    relationships:
      - relationship_type: BELONGS_TO
        from_entity: item
        to_entity: missing_entity
`
	_, err := ParseIngestionSpec([]byte(spec))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing_entity")
}

func TestParseIngestionSpec_RejectsUnknownChangeDetectionMode(t *testing.T) {
	t.Parallel()

	spec := `
spec_name: bad
spec_version: "1"
workspace_id: acme
change_detection:
  mode: fuzzy
sheets:
  - sheet_name: Items
    entities:
      item:
        entity_type: Item
        key_columns: [sku]
        key_template: "Item:{sku}"
        properties: []
`
	_, err := ParseIngestionSpec([]byte(spec))
	require.Error(t, err)
}

const validDomainSchemaYAML = `
workspace: acme
version: "1"
entity_types:
  Item:
    primary_key: sku
    properties:
      sku:
        type: string
        required: true
      price:
        type: number
relationship_types:
  SUPPLIES:
    from: Item
    to: Item
`

func TestParseDomainSchema_Valid(t *testing.T) {
	t.Parallel()

	schema, err := ParseDomainSchema([]byte(validDomainSchemaYAML))
	require.NoError(t, err)
	require.Equal(t, "acme", schema.Workspace)
	require.Equal(t, "Item", schema.RelationshipTypes["SUPPLIES"].FromType)
}

func TestParseDomainSchema_RejectsPrimaryKeyNotInProperties(t *testing.T) {
	t.Parallel()

	badSchema := `
workspace: acme
version: "1"
entity_types:
  Item:
    primary_key: missing_prop
    properties:
      sku:
        type: string
`
	_, err := ParseDomainSchema([]byte(badSchema))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing_prop")
}

func TestParseDomainSchema_RejectsInvalidPropertyType(t *testing.T) {
	t.Parallel()

	badSchema := `
workspace: acme
version: "1"
entity_types:
  Item:
    primary_key: sku
    properties:
      sku:
        type: nonsense
`
	_, err := ParseDomainSchema([]byte(badSchema))
	require.Error(t, err)
}

func TestParseDomainSchema_RejectsInvalidRegexPattern(t *testing.T) {
	t.Parallel()

	badSchema := `
workspace: acme
version: "1"
entity_types:
  Item:
    primary_key: sku
    properties:
      sku:
        type: string
        pattern: "(unclosed"
`
	_, err := ParseDomainSchema([]byte(badSchema))
	require.Error(t, err)
}

func TestParseDomainSchema_RejectsUndefinedRelationshipEntityTypes(t *testing.T) {
	t.Parallel()

	badSchema := `
workspace: acme
version: "1"
entity_types:
  Item:
    primary_key: sku
    properties:
      sku:
        type: string
relationship_types:
  SUPPLIES:
    from: Item
    to: Vendor
`
	_, err := ParseDomainSchema([]byte(badSchema))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Vendor")
}
