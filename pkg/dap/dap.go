// Package dap defines the Data Access Port: the narrow interface the
// Ingestion Engine and Resolved View Engine use for every read and write
// against the graph store. Concrete backends live in the neo4jdriver and
// duckdriver subpackages; both satisfy this interface and the shared
// conformance suite in conformance.go.
package dap

import (
	"context"
	"errors"
	"time"

	"github.com/factlake/factlake/pkg/model"
)

// ErrStoreUnavailable marks a backend failure. neo4jdriver wraps every
// failed call in it; duckdriver wraps only failures to open or ping the
// database and returns other database errors unwrapped. The Ingestion
// Engine aborts the run on a backend failure outside the
// property/relationship passes and counts it per-row inside them.
var ErrStoreUnavailable = errors.New("dap: store unavailable")

// ErrNotFound is the sentinel for an absent record. The reference drivers'
// single-record lookups (LookupEntity, GetEntity, GetImportRun) do not
// return it: they report absence as a nil result with a nil error.
var ErrNotFound = errors.New("dap: not found")

// DAP is the full capability set the engine requires from a graph backend.
// Every operation is workspace-scoped. Implementations must never accept a
// NULL valid_to in an equality predicate — NULL filtering on open
// assertions happens client-side, in the engine, not in the backend query.
type DAP interface {
	// Entity operations. UpsertEntity reports whether the entity already
	// existed, so callers don't need a separate LookupEntity round-trip
	// just to classify the write.
	UpsertEntity(ctx context.Context, workspaceID, entityType, primaryKey string, displayName *string) (id string, existed bool, err error)
	LookupEntity(ctx context.Context, workspaceID, entityType, primaryKey string) (*model.Entity, error)
	GetEntity(ctx context.Context, workspaceID, entityID string) (*model.Entity, error)
	SearchEntities(ctx context.Context, workspaceID string, entityType, primaryKey *string, limit int) ([]model.Entity, error)

	// AssertionRecord operations.
	InsertAssertion(ctx context.Context, a model.AssertionRecord) (string, error)
	CloseAssertion(ctx context.Context, assertionID string, validTo time.Time) error
	LookupAssertionsByKey(ctx context.Context, workspaceID, assertionKey, scenarioID string) ([]model.AssertionRecord, error)
	LookupAssertionsByImportRun(ctx context.Context, importRunID string) ([]model.AssertionRecord, error)
	GetAssertionsForEntity(ctx context.Context, workspaceID, entityID string) ([]model.AssertionRecord, error)

	// PropertyValue operations.
	InsertPropertyValue(ctx context.Context, pv model.PropertyValue) (string, error)

	// Edge operations.
	CreateAssertedRel(ctx context.Context, fromEntityID, assertionID, toEntityID string) error
	LinkCreatedAssertion(ctx context.Context, changeEventID, assertionID string) error
	LinkClosedAssertion(ctx context.Context, changeEventID, assertionID string) error
	LinkTriggeredBy(ctx context.Context, changeEventID, triggerID string) error

	// ChangeEvent operations.
	InsertChangeEvent(ctx context.Context, ce model.ChangeEvent) (string, error)

	// ImportRun operations.
	InsertImportRun(ctx context.Context, ir model.ImportRun) (string, error)
	UpdateImportRun(ctx context.Context, importRunID string, status *model.ImportStatus, completedAt *time.Time, stats, errorMessage *string) error
	GetImportRun(ctx context.Context, workspaceID, importRunID string) (*model.ImportRun, error)
	ListImportRuns(ctx context.Context, workspaceID string, limit int) ([]model.ImportRun, error)

	// Source operations.
	UpsertSource(ctx context.Context, s model.Source) (string, error)
	ListSources(ctx context.Context, workspaceID string) ([]model.Source, error)
	GetSourceAuthorityMap(ctx context.Context, workspaceID string) (map[string]int, error)

	// Ping verifies connectivity, for readiness probes.
	Ping(ctx context.Context) error

	// Close releases underlying driver resources.
	Close(ctx context.Context) error
}

// OpenAssertions filters a slice of assertions down to those with a nil
// ValidTo. The DAP contract requires every lookup-by-key implementation to
// return candidates server-side and leave this filter to the caller.
func OpenAssertions(assertions []model.AssertionRecord) []model.AssertionRecord {
	open := make([]model.AssertionRecord, 0, len(assertions))
	for _, a := range assertions {
		if a.IsOpen() {
			open = append(open, a)
		}
	}
	return open
}
