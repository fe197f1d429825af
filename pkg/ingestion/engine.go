// Package ingestion is the Ingestion Engine: it turns staged rows from
// pkg/tabular into entities, property assertions, and relationship
// assertions against a dap.DAP backend, performing change detection at
// every step so a re-run of the same file against unchanged data is a
// no-op.
//
// Synchronous-first design: RunImport runs inline in the caller's
// goroutine. Callers that want to enqueue imports onto a worker pool do so
// around this function; nothing here assumes a request/response lifecycle.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/factlake/factlake/pkg/dap"
	"github.com/factlake/factlake/pkg/hashing"
	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
	"github.com/factlake/factlake/pkg/specs"
	"github.com/factlake/factlake/pkg/tabular"
)

// ImportStats tallies what an import run did.
type ImportStats struct {
	EntitiesCreated      int `json:"entities_created"`
	EntitiesExisting     int `json:"entities_existing"`
	AssertionsCreated    int `json:"assertions_created"`
	AssertionsClosed     int `json:"assertions_closed"`
	AssertionsModified   int `json:"assertions_modified"`
	AssertionsUnchanged  int `json:"assertions_unchanged"`
	RelationshipsCreated int `json:"relationships_created"`
	Errors               int `json:"errors"`
}

// ImportResult is what RunImport returns: the import run's final state,
// its stats, any per-row errors it tolerated, and the ChangeEvent it
// produced, if any.
type ImportResult struct {
	ImportRunID   string
	Status        model.ImportStatus
	Stats         ImportStats
	Errors        []string
	ChangeEventID *string
}

// Engine runs imports against a single dap.DAP backend.
type Engine struct {
	store dap.DAP
	log   *slog.Logger
	ids   *idgen.Generator
	clock clockwork.Clock
}

// New builds an Engine. clock is threaded through so tests can fix
// recorded_at/valid_from and assert on ordering.
func New(store dap.DAP, log *slog.Logger, clock clockwork.Clock) *Engine {
	return &Engine{
		store: store,
		log:   log,
		ids:   idgen.NewGenerator(clock),
		clock: clock,
	}
}

type entityKey struct {
	entityType string
	primaryKey string
}

// RunImport executes the full import pipeline for one already-staged
// file:
//
//  1. create the ImportRun record (status=running)
//  2. upsert every staged entity, deduplicated by (type, primary_key)
//  3. diff and write property assertions
//  4. diff and write relationship assertions
//  5. close assertions from the previous completed run of this spec that
//     weren't re-asserted this time (disappearance detection)
//  6. create a ChangeEvent linking everything this run created or closed
//  7. mark the ImportRun completed (or failed, if a non-row-level error
//     occurred) with final stats
//
// Per-row failures (a bad entity upsert, a malformed assertion) are
// collected into ImportResult.Errors and counted in Stats.Errors; they do
// not abort the run. An error in disappearance detection or in creating the
// ChangeEvent marks the run failed (error_message "cancelled" when ctx was
// cancelled) and is reported in ImportResult.Errors with a nil error. A
// failure to create the ImportRun itself, or to write its final completed
// status, is returned as an error.
func (e *Engine) RunImport(ctx context.Context, workspaceID, sourceFile string, rows []tabular.StagedRow, spec specs.IngestionSpec, sourceID *string) (*ImportResult, error) {
	now := e.clock.Now().UTC()
	importRunID := e.ids.Generate(idgen.PrefixImportRun)

	ir := model.ImportRun{
		ImportRunID: importRunID,
		WorkspaceID: workspaceID,
		SourceFile:  &sourceFile,
		SpecName:    &spec.SpecName,
		StartedAt:   now,
		Status:      model.ImportStatusRunning,
	}
	if _, err := e.store.InsertImportRun(ctx, ir); err != nil {
		return nil, fmt.Errorf("creating import run: %w", err)
	}

	result, runErr := e.runPipeline(ctx, workspaceID, importRunID, rows, spec, sourceID, now)
	if runErr != nil {
		e.log.Error("import failed", "import_run_id", importRunID, "error", runErr)
		completedAt := e.clock.Now().UTC()
		status := model.ImportStatusFailed
		errMsg := runErr.Error()
		if ctx.Err() != nil {
			errMsg = "cancelled"
		}
		_ = e.store.UpdateImportRun(context.WithoutCancel(ctx), importRunID, &status, &completedAt, nil, &errMsg)
		return &ImportResult{
			ImportRunID: importRunID,
			Status:      model.ImportStatusFailed,
			Errors:      []string{runErr.Error()},
		}, nil
	}

	statsJSON, err := json.Marshal(result.Stats)
	if err != nil {
		return nil, fmt.Errorf("marshaling import stats: %w", err)
	}
	completedAt := e.clock.Now().UTC()
	status := model.ImportStatusCompleted
	statsStr := string(statsJSON)
	if err := e.store.UpdateImportRun(ctx, importRunID, &status, &completedAt, &statsStr, nil); err != nil {
		return nil, fmt.Errorf("finalizing import run: %w", err)
	}

	result.Status = model.ImportStatusCompleted
	return result, nil
}

func (e *Engine) runPipeline(ctx context.Context, workspaceID, importRunID string, rows []tabular.StagedRow, spec specs.IngestionSpec, sourceID *string, now time.Time) (*ImportResult, error) {
	stats := ImportStats{}
	var errs []string
	var createdIDs, closedIDs []string

	e.log.Info("parsed staged rows", "count", len(rows), "import_run_id", importRunID)

	entityVID := make(map[entityKey]string, len(rows))
	for _, row := range rows {
		for _, ent := range row.Entities {
			key := entityKey{ent.EntityType, ent.PrimaryKey}
			if _, ok := entityVID[key]; ok {
				continue
			}
			vid, existed, err := e.store.UpsertEntity(ctx, workspaceID, ent.EntityType, ent.PrimaryKey, ent.DisplayName)
			if err != nil {
				errs = append(errs, fmt.Sprintf("entity upsert failed for %s:%s: %v", ent.EntityType, ent.PrimaryKey, err))
				stats.Errors++
				continue
			}
			entityVID[key] = vid
			if existed {
				stats.EntitiesExisting++
			} else {
				stats.EntitiesCreated++
			}
		}
	}

	seenKeys := make(map[string]struct{})
	changeMode := spec.ChangeDetection.Mode

	for _, row := range rows {
		for _, ent := range row.Entities {
			vid, ok := entityVID[entityKey{ent.EntityType, ent.PrimaryKey}]
			if !ok {
				continue
			}
			for propKey, propVal := range ent.Properties {
				if err := e.processPropertyAssertion(ctx, workspaceID, vid, ent, propKey, propVal, sourceID, importRunID, spec, changeMode, now, &stats, &createdIDs, &closedIDs, seenKeys); err != nil {
					errs = append(errs, fmt.Sprintf("property assertion failed: %s:%s:%s: %v", ent.EntityType, ent.PrimaryKey, propKey, err))
					stats.Errors++
				}
			}
		}
	}

	for _, row := range rows {
		for _, rel := range row.Relationships {
			if err := e.processRelationshipAssertion(ctx, workspaceID, rel, entityVID, sourceID, importRunID, spec, changeMode, now, &stats, &createdIDs, &closedIDs, seenKeys); err != nil {
				errs = append(errs, fmt.Sprintf("relationship assertion failed: %s: %v", rel.RelationshipType, err))
				stats.Errors++
			}
		}
	}

	if err := e.detectDisappearances(ctx, workspaceID, spec.SpecName, importRunID, seenKeys, now, &stats, &closedIDs); err != nil {
		return nil, fmt.Errorf("detecting disappeared assertions: %w", err)
	}

	var changeEventID *string
	if len(createdIDs) > 0 || len(closedIDs) > 0 {
		id, err := e.createChangeEvent(ctx, workspaceID, importRunID, stats, createdIDs, closedIDs, now)
		if err != nil {
			return nil, fmt.Errorf("creating change event: %w", err)
		}
		changeEventID = &id
	}

	return &ImportResult{
		ImportRunID:   importRunID,
		Stats:         stats,
		Errors:        errs,
		ChangeEventID: changeEventID,
	}, nil
}

func comparisonHash(a model.AssertionRecord, mode string) string {
	if mode == "strict" {
		return a.RawHash
	}
	return a.NormalizedHash
}

func inferValueType(value any) model.ValueType {
	switch value.(type) {
	case bool:
		return model.ValueTypeBoolean
	case int, int64, float64, float32:
		return model.ValueTypeNumber
	case time.Time:
		return model.ValueTypeDate
	default:
		return model.ValueTypeString
	}
}

func stringifyValue(value any) *string {
	if value == nil {
		return nil
	}
	s := fmt.Sprintf("%v", value)
	return &s
}

func (e *Engine) processPropertyAssertion(
	ctx context.Context,
	workspaceID, entityVID string,
	ent tabular.StagedEntity,
	propKey string,
	propVal any,
	sourceID *string,
	importRunID string,
	spec specs.IngestionSpec,
	changeMode string,
	now time.Time,
	stats *ImportStats,
	createdIDs, closedIDs *[]string,
	seenKeys map[string]struct{},
) error {
	assertionKey := hashing.AssertionKeyProperty(workspaceID, ent.EntityType, ent.PrimaryKey, propKey)
	seenKeys[assertionKey] = struct{}{}

	serSpec := tabular.ToSerializationSpec(spec.RawHashSerialization)
	normRules := tabular.ToNormalizationRules(spec.ChangeDetection.NormalizationRules)

	rawHash := hashing.ComputePropertyRawHash(propVal, serSpec)
	normalizedHash := hashing.ComputePropertyNormalizedHash(propVal, serSpec, normRules, hashing.CellTypeString)
	comparison := rawHash
	if changeMode != "strict" {
		comparison = normalizedHash
	}

	existing, err := e.store.LookupAssertionsByKey(ctx, workspaceID, assertionKey, model.ScenarioBase)
	if err != nil {
		return err
	}
	open := dap.OpenAssertions(existing)

	var supersedes *string
	if len(open) > 0 {
		if comparisonHash(open[0], changeMode) == comparison {
			stats.AssertionsUnchanged++
			return nil
		}
		if len(open) > 1 {
			e.log.Warn("multiple open assertions for one key", "assertion_key", assertionKey, "count", len(open))
		}
		latest := open[0]
		for _, old := range open {
			if err := e.store.CloseAssertion(ctx, old.AssertionID, now); err != nil {
				return err
			}
			*closedIDs = append(*closedIDs, old.AssertionID)
			if old.RecordedAt.After(latest.RecordedAt) {
				latest = old
			}
		}
		supersedes = &latest.AssertionID
		stats.AssertionsModified++
	} else {
		stats.AssertionsCreated++
	}

	pvID := e.ids.Generate(idgen.PrefixPropertyValue)
	pv := model.PropertyValue{
		PropertyValueID: pvID,
		WorkspaceID:     workspaceID,
		PropertyKey:     propKey,
		Value:           stringifyValue(propVal),
		ValueType:       inferValueType(propVal),
	}
	if _, err := e.store.InsertPropertyValue(ctx, pv); err != nil {
		return err
	}

	assertionID := e.ids.Generate(idgen.PrefixAssertionRecord)
	sourceRef := ent.SourceRef
	assertion := model.AssertionRecord{
		AssertionID:      assertionID,
		WorkspaceID:      workspaceID,
		AssertionKey:     assertionKey,
		RawHash:          rawHash,
		NormalizedHash:   normalizedHash,
		SourceType:       model.SourceTypeExcel,
		SourceRef:        &sourceRef,
		SourceID:         sourceID,
		ImportRunID:      &importRunID,
		RecordedAt:       now,
		ValidFrom:        now,
		ScenarioID:       model.ScenarioBase,
		Confidence:       1.0,
		Supersedes:       supersedes,
		RelationshipType: model.RelationshipTypeHasProperty,
		PropertyKey:      &propKey,
	}
	if _, err := e.store.InsertAssertion(ctx, assertion); err != nil {
		return err
	}
	*createdIDs = append(*createdIDs, assertionID)

	if err := e.store.CreateAssertedRel(ctx, entityVID, assertionID, pvID); err != nil {
		return err
	}
	return nil
}

func (e *Engine) processRelationshipAssertion(
	ctx context.Context,
	workspaceID string,
	rel tabular.StagedRelationship,
	entityVID map[entityKey]string,
	sourceID *string,
	importRunID string,
	spec specs.IngestionSpec,
	changeMode string,
	now time.Time,
	stats *ImportStats,
	createdIDs, closedIDs *[]string,
	seenKeys map[string]struct{},
) error {
	fromVID, ok := entityVID[entityKey{rel.FromEntityType, rel.FromPrimaryKey}]
	if !ok {
		return nil
	}
	toVID, ok := entityVID[entityKey{rel.ToEntityType, rel.ToPrimaryKey}]
	if !ok {
		return nil
	}

	assertionKey := hashing.AssertionKeyRelationship(workspaceID, rel.FromEntityType, rel.FromPrimaryKey, rel.RelationshipType, rel.ToEntityType, rel.ToPrimaryKey)
	seenKeys[assertionKey] = struct{}{}

	serSpec := tabular.ToSerializationSpec(spec.RawHashSerialization)
	normRules := tabular.ToNormalizationRules(spec.ChangeDetection.NormalizationRules)

	rawHash := hashing.ComputePropertyRawHash(assertionKey, serSpec)
	normalizedHash := hashing.ComputePropertyNormalizedHash(assertionKey, serSpec, normRules, hashing.CellTypeString)
	comparison := rawHash
	if changeMode != "strict" {
		comparison = normalizedHash
	}

	existing, err := e.store.LookupAssertionsByKey(ctx, workspaceID, assertionKey, model.ScenarioBase)
	if err != nil {
		return err
	}
	open := dap.OpenAssertions(existing)

	if len(open) > 0 {
		if comparisonHash(open[0], changeMode) == comparison {
			stats.AssertionsUnchanged++
			return nil
		}
		for _, old := range open {
			if err := e.store.CloseAssertion(ctx, old.AssertionID, now); err != nil {
				return err
			}
			*closedIDs = append(*closedIDs, old.AssertionID)
		}
		stats.AssertionsModified++
	} else {
		stats.RelationshipsCreated++
		stats.AssertionsCreated++
	}

	assertionID := e.ids.Generate(idgen.PrefixAssertionRecord)
	sourceRef := rel.SourceRef
	assertion := model.AssertionRecord{
		AssertionID:      assertionID,
		WorkspaceID:      workspaceID,
		AssertionKey:     assertionKey,
		RawHash:          rawHash,
		NormalizedHash:   normalizedHash,
		SourceType:       model.SourceTypeExcel,
		SourceRef:        &sourceRef,
		SourceID:         sourceID,
		ImportRunID:      &importRunID,
		RecordedAt:       now,
		ValidFrom:        now,
		ScenarioID:       model.ScenarioBase,
		Confidence:       1.0,
		RelationshipType: rel.RelationshipType,
	}
	if _, err := e.store.InsertAssertion(ctx, assertion); err != nil {
		return err
	}
	*createdIDs = append(*createdIDs, assertionID)

	if err := e.store.CreateAssertedRel(ctx, fromVID, assertionID, toVID); err != nil {
		return err
	}
	return nil
}

// detectDisappearances closes assertions written by the previous completed
// run of this spec that weren't re-asserted in this run — the signal that
// a row vanished from the source file rather than merely staying the same.
// maxImportRunsScanned bounds the disappearance-detection scan over a
// workspace's import history; LIMIT 0 means "no rows" in both backends, not
// "unlimited", so this stands in for unbounded in practice.
const maxImportRunsScanned = 10000

func (e *Engine) detectDisappearances(ctx context.Context, workspaceID, specName, importRunID string, seenKeys map[string]struct{}, now time.Time, stats *ImportStats, closedIDs *[]string) error {
	runs, err := e.store.ListImportRuns(ctx, workspaceID, maxImportRunsScanned)
	if err != nil {
		return err
	}

	var previous *model.ImportRun
	for i := range runs {
		run := runs[i]
		if run.SpecName != nil && *run.SpecName == specName && run.ImportRunID != importRunID && run.Status == model.ImportStatusCompleted {
			previous = &run
			break
		}
	}
	if previous == nil {
		return nil
	}

	prevAssertions, err := e.store.LookupAssertionsByImportRun(ctx, previous.ImportRunID)
	if err != nil {
		return err
	}
	for _, a := range prevAssertions {
		if !a.IsOpen() {
			continue
		}
		if _, seen := seenKeys[a.AssertionKey]; seen {
			continue
		}
		if err := e.store.CloseAssertion(ctx, a.AssertionID, now); err != nil {
			return err
		}
		*closedIDs = append(*closedIDs, a.AssertionID)
		stats.AssertionsClosed++
	}
	return nil
}

func (e *Engine) createChangeEvent(ctx context.Context, workspaceID, importRunID string, stats ImportStats, createdIDs, closedIDs []string, now time.Time) (string, error) {
	changeEventID := e.ids.Generate(idgen.PrefixChangeEvent)

	statsJSON, err := json.Marshal(map[string]int{
		"created":   stats.AssertionsCreated,
		"closed":    stats.AssertionsClosed,
		"modified":  stats.AssertionsModified,
		"unchanged": stats.AssertionsUnchanged,
	})
	if err != nil {
		return "", err
	}
	statsStr := string(statsJSON)

	description := fmt.Sprintf(
		"Import run %s: %d created, %d modified, %d closed, %d unchanged",
		importRunID, stats.AssertionsCreated, stats.AssertionsModified, stats.AssertionsClosed, stats.AssertionsUnchanged,
	)
	actor := "system:import"
	ce := model.ChangeEvent{
		ChangeEventID: changeEventID,
		WorkspaceID:   workspaceID,
		EventType:     model.EventTypeImportDiff,
		Description:   &description,
		TS:            now,
		ImportRunID:   &importRunID,
		Actor:         &actor,
		Stats:         &statsStr,
	}
	if _, err := e.store.InsertChangeEvent(ctx, ce); err != nil {
		return "", err
	}

	if err := e.store.LinkTriggeredBy(ctx, changeEventID, importRunID); err != nil {
		return "", err
	}
	for _, aid := range createdIDs {
		if err := e.store.LinkCreatedAssertion(ctx, changeEventID, aid); err != nil {
			return "", err
		}
	}
	for _, aid := range closedIDs {
		if err := e.store.LinkClosedAssertion(ctx, changeEventID, aid); err != nil {
			return "", err
		}
	}
	return changeEventID, nil
}
