package dap

import (
	"context"
	"testing"
	"time"

	"github.com/factlake/factlake/pkg/model"
	"github.com/stretchr/testify/require"
)

// RunConformanceSuite exercises the DAP operations against impl, except
// SearchEntities, LinkClosedAssertion and Close, which it does not call. Both
// reference drivers (neo4jdriver, duckdriver) are run through this single
// suite so the Ingestion Engine and Resolved View Engine can stay
// driver-agnostic: new backends earn trust by passing the same assertions.
func RunConformanceSuite(t *testing.T, impl DAP) {
	t.Helper()
	ctx := context.Background()
	workspaceID := "conformance_ws"

	t.Run("upsert_entity_is_idempotent", func(t *testing.T) {
		name := "Widget"
		id1, existed1, err := impl.UpsertEntity(ctx, workspaceID, "Item", "ITM001", &name)
		require.NoError(t, err)
		require.NotEmpty(t, id1)
		require.False(t, existed1, "first upsert of a new (workspace, type, key) must report existed=false")

		id2, existed2, err := impl.UpsertEntity(ctx, workspaceID, "Item", "ITM001", &name)
		require.NoError(t, err)
		require.Equal(t, id1, id2, "upserting the same (workspace, type, key) twice must return the same entity_id")
		require.True(t, existed2, "re-upserting an existing (workspace, type, key) must report existed=true")
	})

	t.Run("lookup_entity_roundtrip", func(t *testing.T) {
		name := "Gadget"
		id, _, err := impl.UpsertEntity(ctx, workspaceID, "Item", "ITM002", &name)
		require.NoError(t, err)

		got, err := impl.LookupEntity(ctx, workspaceID, "Item", "ITM002")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, id, got.EntityID)
		require.Equal(t, "ITM002", got.PrimaryKey)

		missing, err := impl.LookupEntity(ctx, workspaceID, "Item", "NOPE")
		require.NoError(t, err)
		require.Nil(t, missing)
	})

	t.Run("get_entity_scoped_by_workspace", func(t *testing.T) {
		name := "Scoped"
		id, _, err := impl.UpsertEntity(ctx, workspaceID, "Item", "ITM003", &name)
		require.NoError(t, err)

		got, err := impl.GetEntity(ctx, workspaceID, id)
		require.NoError(t, err)
		require.NotNil(t, got)

		wrongWorkspace, err := impl.GetEntity(ctx, "other_ws", id)
		require.NoError(t, err)
		require.Nil(t, wrongWorkspace, "GetEntity must not leak entities across workspaces")
	})

	t.Run("assertion_lifecycle_and_at_most_one_open", func(t *testing.T) {
		name := "Priced"
		entityID, _, err := impl.UpsertEntity(ctx, workspaceID, "Item", "ITM004", &name)
		require.NoError(t, err)

		key := "conformance_ws:Item:ITM004:prop:price"
		now := time.Now().UTC()

		a1 := model.AssertionRecord{
			AssertionID:      "asrt_conf0000000000000000000001",
			WorkspaceID:      workspaceID,
			AssertionKey:     key,
			RawHash:          "rawhash1",
			NormalizedHash:   "normhash1",
			SourceType:       model.SourceTypeExcel,
			RecordedAt:       now,
			ValidFrom:        now,
			ScenarioID:       model.ScenarioBase,
			Confidence:       1.0,
			RelationshipType: model.RelationshipTypeHasProperty,
			PropertyKey:      strPtr("price"),
		}
		_, err = impl.InsertAssertion(ctx, a1)
		require.NoError(t, err)

		pvID, err := impl.InsertPropertyValue(ctx, model.PropertyValue{
			PropertyValueID: "pv_conf00000000000000000000001",
			WorkspaceID:     workspaceID,
			PropertyKey:     "price",
			Value:           strPtr("9.99"),
			ValueType:       model.ValueTypeNumber,
		})
		require.NoError(t, err)
		require.NoError(t, impl.CreateAssertedRel(ctx, entityID, a1.AssertionID, pvID))

		open, err := impl.LookupAssertionsByKey(ctx, workspaceID, key, model.ScenarioBase)
		require.NoError(t, err)
		open = OpenAssertions(open)
		require.Len(t, open, 1)
		require.Equal(t, a1.AssertionID, open[0].AssertionID)

		closedAt := now.Add(time.Minute)
		require.NoError(t, impl.CloseAssertion(ctx, a1.AssertionID, closedAt))

		afterClose, err := impl.LookupAssertionsByKey(ctx, workspaceID, key, model.ScenarioBase)
		require.NoError(t, err)
		require.Empty(t, OpenAssertions(afterClose), "closed assertion must not be returned as open")
	})

	t.Run("change_event_edges", func(t *testing.T) {
		name := "Linked"
		entityID, _, err := impl.UpsertEntity(ctx, workspaceID, "Item", "ITM005", &name)
		require.NoError(t, err)

		now := time.Now().UTC()
		ir := model.ImportRun{
			ImportRunID: "ir_conf0000000000000000000001",
			WorkspaceID: workspaceID,
			StartedAt:   now,
			Status:      model.ImportStatusRunning,
		}
		_, err = impl.InsertImportRun(ctx, ir)
		require.NoError(t, err)

		a := model.AssertionRecord{
			AssertionID:      "asrt_conf0000000000000000000002",
			WorkspaceID:      workspaceID,
			AssertionKey:     "conformance_ws:Item:ITM005:prop:name",
			RawHash:          "h",
			NormalizedHash:   "h",
			SourceType:       model.SourceTypeExcel,
			ImportRunID:      &ir.ImportRunID,
			RecordedAt:       now,
			ValidFrom:        now,
			ScenarioID:       model.ScenarioBase,
			Confidence:       1.0,
			RelationshipType: model.RelationshipTypeHasProperty,
			PropertyKey:      strPtr("name"),
		}
		_, err = impl.InsertAssertion(ctx, a)
		require.NoError(t, err)

		pvID, err := impl.InsertPropertyValue(ctx, model.PropertyValue{
			PropertyValueID: "pv_conf00000000000000000000002",
			WorkspaceID:     workspaceID,
			PropertyKey:     "name",
			Value:           strPtr("Linked"),
			ValueType:       model.ValueTypeString,
		})
		require.NoError(t, err)
		require.NoError(t, impl.CreateAssertedRel(ctx, entityID, a.AssertionID, pvID))

		ceID, err := impl.InsertChangeEvent(ctx, model.ChangeEvent{
			ChangeEventID: "ce_conf0000000000000000000001",
			WorkspaceID:   workspaceID,
			EventType:     model.EventTypeImportDiff,
			TS:            now,
			ImportRunID:   &ir.ImportRunID,
		})
		require.NoError(t, err)

		require.NoError(t, impl.LinkTriggeredBy(ctx, ceID, ir.ImportRunID))
		require.NoError(t, impl.LinkCreatedAssertion(ctx, ceID, a.AssertionID))

		byRun, err := impl.LookupAssertionsByImportRun(ctx, ir.ImportRunID)
		require.NoError(t, err)
		require.Len(t, byRun, 1)

		forEntity, err := impl.GetAssertionsForEntity(ctx, workspaceID, entityID)
		require.NoError(t, err)
		require.NotEmpty(t, forEntity)
	})

	t.Run("import_run_status_update", func(t *testing.T) {
		now := time.Now().UTC()
		ir := model.ImportRun{
			ImportRunID: "ir_conf0000000000000000000002",
			WorkspaceID: workspaceID,
			StartedAt:   now,
			Status:      model.ImportStatusRunning,
		}
		_, err := impl.InsertImportRun(ctx, ir)
		require.NoError(t, err)

		completed := model.ImportStatusCompleted
		completedAt := now.Add(time.Second)
		stats := `{"created":1}`
		require.NoError(t, impl.UpdateImportRun(ctx, ir.ImportRunID, &completed, &completedAt, &stats, nil))

		got, err := impl.GetImportRun(ctx, workspaceID, ir.ImportRunID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, model.ImportStatusCompleted, got.Status)
		require.NotNil(t, got.Stats)

		runs, err := impl.ListImportRuns(ctx, workspaceID, 50)
		require.NoError(t, err)
		require.NotEmpty(t, runs)
	})

	t.Run("source_authority_map", func(t *testing.T) {
		_, err := impl.UpsertSource(ctx, model.Source{
			SourceID:      "src_conf0000000000000000000001",
			WorkspaceID:   workspaceID,
			SourceName:    "ERP export",
			SourceType:    "excel",
			AuthorityRank: 3,
		})
		require.NoError(t, err)

		sources, err := impl.ListSources(ctx, workspaceID)
		require.NoError(t, err)
		require.NotEmpty(t, sources)

		authMap, err := impl.GetSourceAuthorityMap(ctx, workspaceID)
		require.NoError(t, err)
		require.Equal(t, 3, authMap["src_conf0000000000000000000001"])
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, impl.Ping(ctx))
	})
}

func strPtr(s string) *string { return &s }
