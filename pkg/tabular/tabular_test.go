package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/factlake/factlake/pkg/specs"
)

func strPtr(s string) *string { return &s }

func testSpec() specs.IngestionSpec {
	return specs.IngestionSpec{
		SpecName:             "items_v1",
		WorkspaceID:          "acme",
		SourceType:           "csv",
		RawHashSerialization: specs.DefaultRawHashSerialization(),
		ChangeDetection:      specs.DefaultChangeDetection(),
		Sheets: []specs.SheetSpec{
			{
				Entities: map[string]specs.EntityMapping{
					"item": {
						EntityType:  "Item",
						KeyColumns:  []string{"sku"},
						KeyTemplate: "{sku}",
						Properties: []specs.ColumnMapping{
							{SourceColumn: "SKU", TargetProperty: "sku"},
							{SourceColumn: "Name", TargetProperty: "name"},
						},
					},
				},
			},
		},
	}
}

func TestParseCSV_StagesEntitiesAndSkipsBlankKeyRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "items.csv")
	content := "SKU,Name\nITM001,Widget\n,Missing Key\nITM002,Gadget\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ParseCSV(path, testSpec())
	require.NoError(t, err)
	require.Len(t, rows, 2, "the blank-sku row must be skipped")

	require.Len(t, rows[0].Entities, 1)
	require.Equal(t, "ITM001", rows[0].Entities[0].PrimaryKey)
	require.Equal(t, "Widget", *rows[0].Entities[0].DisplayName)

	require.Equal(t, "ITM002", rows[1].Entities[0].PrimaryKey)
}

func TestParseCSV_DeterministicHashes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "items.csv")
	require.NoError(t, os.WriteFile(path, []byte("SKU,Name\nITM001,Widget\n"), 0o644))

	rows1, err := ParseCSV(path, testSpec())
	require.NoError(t, err)
	rows2, err := ParseCSV(path, testSpec())
	require.NoError(t, err)

	require.Equal(t, rows1[0].RawHash, rows2[0].RawHash)
	require.Equal(t, rows1[0].NormalizedHash, rows2[0].NormalizedHash)
}

func TestParseRows_SkipsEmptyRows(t *testing.T) {
	t.Parallel()

	grid := [][]string{
		{"SKU", "Name"},
		{"", ""},
		{"ITM001", "Widget"},
	}
	staged, err := parseRows(grid, testSpec().Sheets[0], testSpec(), "sheet")
	require.NoError(t, err)
	require.Len(t, staged, 1)
}

func TestExtractRelationship_SkippedWhenEndpointMissing(t *testing.T) {
	t.Parallel()

	spec := testSpec()
	spec.Sheets[0].Entities["vendor"] = specs.EntityMapping{
		EntityType:  "Vendor",
		KeyColumns:  []string{"vendor_id"},
		KeyTemplate: "{vendor_id}",
		Properties: []specs.ColumnMapping{
			{SourceColumn: "VendorID", TargetProperty: "vendor_id"},
		},
	}
	spec.Sheets[0].Relationships = []specs.RelationshipMapping{
		{RelationshipType: "SUPPLIED_BY", FromEntity: "item", ToEntity: "vendor"},
	}

	headerMap := buildHeaderMap([]string{"SKU", "Name"})
	entitiesByKey := map[string]*StagedEntity{
		"item": {EntityType: "Item", PrimaryKey: "ITM001"},
	}
	rel := extractRelationship(spec.Sheets[0].Relationships[0], entitiesByKey, []string{"ITM001", "Widget"}, headerMap, "sheet:x,row:1")
	require.Nil(t, rel, "relationship must be skipped when the vendor entity was not staged for this row")
}

func TestResolveKey_BlankKeyColumnFails(t *testing.T) {
	t.Parallel()

	_, ok := resolveKey("{sku}", []string{"sku"}, map[string]any{"sku": "  "})
	require.False(t, ok)
}

func TestApplyTransform_IntAndFloat(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(42), applyTransform("42.0", "int"))
	require.Equal(t, 3.5, applyTransform("3.5", "float"))
	require.Equal(t, "not-a-number", applyTransform("not-a-number", "int"), "unparseable values pass through unchanged")
}
