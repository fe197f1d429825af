package ingestion

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/factlake/factlake/pkg/dap/duckdriver"
	"github.com/factlake/factlake/pkg/model"
	"github.com/factlake/factlake/pkg/specs"
	"github.com/factlake/factlake/pkg/tabular"
)

func strPtr(s string) *string { return &s }

func newTestEngine(t *testing.T) (*Engine, *duckdriver.Driver, clockwork.FakeClock) {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	clock := clockwork.NewFakeClock()

	drv, err := duckdriver.Open(ctx, log, ":memory:", clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close(ctx) })

	return New(drv, log, clock), drv, clock
}

func testSpec(mode string) specs.IngestionSpec {
	return specs.IngestionSpec{
		SpecName:             "test_spec",
		WorkspaceID:          "test_ws",
		ChangeDetection:      specs.ChangeDetection{Mode: mode, NormalizationRules: specs.DefaultNormalizationRule()},
		RawHashSerialization: specs.DefaultRawHashSerialization(),
	}
}

func itemRow(code, name string, price float64) tabular.StagedRow {
	return tabular.StagedRow{
		Entities: []tabular.StagedEntity{
			{
				EntityType:  "Item",
				PrimaryKey:  code,
				DisplayName: strPtr(name),
				Properties: map[string]any{
					"item_code": code,
					"name":      name,
					"price":     price,
				},
				SourceRef: "sheet:Items,row:1",
			},
		},
	}
}

func TestRunImport_NewImportCreatesEntitiesAndAssertions(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	rows := []tabular.StagedRow{itemRow("ITM001", "Widget", 9.99)}
	result, err := engine.RunImport(ctx, "test_ws", "items.csv", rows, testSpec("normalized"), nil)
	require.NoError(t, err)

	require.Equal(t, model.ImportStatusCompleted, result.Status)
	require.Equal(t, 3, result.Stats.AssertionsCreated)
	require.Equal(t, 0, result.Stats.AssertionsUnchanged)
	require.Equal(t, 1, result.Stats.EntitiesCreated)
	require.NotNil(t, result.ChangeEventID)
}

func TestRunImport_ReimportUnchangedData(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	spec := testSpec("normalized")

	rows := []tabular.StagedRow{itemRow("ITM001", "Widget", 9.99)}
	_, err := engine.RunImport(ctx, "test_ws", "items.csv", rows, spec, nil)
	require.NoError(t, err)

	result, err := engine.RunImport(ctx, "test_ws", "items.csv", rows, spec, nil)
	require.NoError(t, err)

	require.Equal(t, model.ImportStatusCompleted, result.Status)
	require.Equal(t, 3, result.Stats.AssertionsUnchanged)
	require.Equal(t, 0, result.Stats.AssertionsCreated)
	require.Equal(t, 0, result.Stats.AssertionsModified)
	require.Equal(t, 1, result.Stats.EntitiesExisting)
}

func TestRunImport_ReimportWithChangedData(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	spec := testSpec("normalized")

	_, err := engine.RunImport(ctx, "test_ws", "items.csv", []tabular.StagedRow{itemRow("ITM001", "Widget", 9.99)}, spec, nil)
	require.NoError(t, err)

	result, err := engine.RunImport(ctx, "test_ws", "items.csv", []tabular.StagedRow{itemRow("ITM001", "NewWidget", 19.99)}, spec, nil)
	require.NoError(t, err)

	require.Equal(t, model.ImportStatusCompleted, result.Status)
	require.Equal(t, 2, result.Stats.AssertionsModified, "name and price changed, item_code stayed the same")
	require.Equal(t, 1, result.Stats.AssertionsUnchanged)
}

func TestRunImport_StrictModeComparesRawHash(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	spec := testSpec("strict")

	_, err := engine.RunImport(ctx, "test_ws", "items.csv", []tabular.StagedRow{itemRow("ITM001", "Widget", 9.99)}, spec, nil)
	require.NoError(t, err)

	// Whitespace-only change: normalized hash would match, raw hash must not.
	changed := itemRow("ITM001", "  Widget", 9.99)
	result, err := engine.RunImport(ctx, "test_ws", "items.csv", []tabular.StagedRow{changed}, spec, nil)
	require.NoError(t, err)

	require.Equal(t, 1, result.Stats.AssertionsModified, "strict mode must treat a whitespace change as modified")
}

func TestRunImport_RelationshipAssertionsCreated(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	row := tabular.StagedRow{
		Entities: []tabular.StagedEntity{
			{EntityType: "Item", PrimaryKey: "ITM001", Properties: map[string]any{"item_code": "ITM001"}, SourceRef: "r1"},
			{EntityType: "Category", PrimaryKey: "CAT01", Properties: map[string]any{"category_code": "CAT01"}, SourceRef: "r1"},
		},
		Relationships: []tabular.StagedRelationship{
			{RelationshipType: "BELONGS_TO", FromEntityType: "Item", FromPrimaryKey: "ITM001", ToEntityType: "Category", ToPrimaryKey: "CAT01", SourceRef: "r1"},
		},
	}

	result, err := engine.RunImport(ctx, "test_ws", "items.csv", []tabular.StagedRow{row}, testSpec("normalized"), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Stats.RelationshipsCreated)
}

func TestRunImport_CreatesChangeEventAndLinksAssertionsToEntity(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	rows := []tabular.StagedRow{itemRow("ITM001", "Widget", 9.99)}
	result, err := engine.RunImport(ctx, "test_ws", "items.csv", rows, testSpec("normalized"), nil)
	require.NoError(t, err)
	require.NotNil(t, result.ChangeEventID)

	entity, err := store.LookupEntity(ctx, "test_ws", "Item", "ITM001")
	require.NoError(t, err)
	require.NotNil(t, entity)

	assertions, err := store.GetAssertionsForEntity(ctx, "test_ws", entity.EntityID)
	require.NoError(t, err)
	require.Len(t, assertions, 3)
}

func TestRunImport_DisappearedRowClosesPreviousAssertions(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	spec := testSpec("normalized")

	firstRows := []tabular.StagedRow{itemRow("ITM001", "Widget", 9.99), itemRow("ITM002", "Gadget", 19.99)}
	_, err := engine.RunImport(ctx, "test_ws", "items.csv", firstRows, spec, nil)
	require.NoError(t, err)

	// ITM002 disappears from the second import.
	secondRows := []tabular.StagedRow{itemRow("ITM001", "Widget", 9.99)}
	result, err := engine.RunImport(ctx, "test_ws", "items.csv", secondRows, spec, nil)
	require.NoError(t, err)

	require.Equal(t, 3, result.Stats.AssertionsClosed, "all 3 properties of the disappeared ITM002 should be closed")
}

func TestRunImport_MultipleRows(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	rows := []tabular.StagedRow{
		itemRow("ITM001", "Widget", 9.99),
		itemRow("ITM002", "Gadget", 19.99),
		itemRow("ITM003", "Doohickey", 29.99),
	}
	result, err := engine.RunImport(ctx, "test_ws", "items.csv", rows, testSpec("normalized"), nil)
	require.NoError(t, err)

	require.Equal(t, 3, result.Stats.EntitiesCreated)
	require.Equal(t, 9, result.Stats.AssertionsCreated)
}
