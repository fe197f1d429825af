// Package model defines the core vertex types shared by every component of
// the ingestion and resolution engine: Entity, AssertionRecord,
// PropertyValue, ChangeEvent, ImportRun, and Source.
package model

import "time"

// SourceType identifies where an assertion's value came from.
type SourceType string

const (
	SourceTypeExcel        SourceType = "excel"
	SourceTypeAPI          SourceType = "api"
	SourceTypeManual       SourceType = "manual"
	SourceTypeLLMExtracted SourceType = "llm_extracted"
	SourceTypeComputed     SourceType = "computed"
)

// ValueType identifies the declared type of a PropertyValue.
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeNumber  ValueType = "number"
	ValueTypeDate    ValueType = "date"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeJSON    ValueType = "json"
)

// EventType identifies what caused a ChangeEvent.
type EventType string

const (
	EventTypeImportDiff    EventType = "import_diff"
	EventTypeManualResolve EventType = "manual_resolve"
	EventTypeScenarioDelta EventType = "scenario_delta"
	EventTypeManualEdit    EventType = "manual_edit"
)

// ImportStatus is the lifecycle state of an ImportRun.
type ImportStatus string

const (
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// RelationshipTypeHasProperty marks an AssertionRecord as a property claim
// rather than a domain relationship claim.
const RelationshipTypeHasProperty = "HAS_PROPERTY"

// ScenarioBase is the default, always-present scenario overlay namespace.
const ScenarioBase = "base"

// Entity represents a real-world thing uniquely identified within a
// workspace by (entity_type, primary_key).
type Entity struct {
	EntityID    string
	WorkspaceID string
	EntityType  string
	PrimaryKey  string
	DisplayName *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AssertionRecord is a first-class, timestamped, source-attributed claim
// about a property value or a relationship.
type AssertionRecord struct {
	AssertionID      string
	WorkspaceID      string
	AssertionKey     string
	RawHash          string
	NormalizedHash   string
	SourceType       SourceType
	SourceRef        *string
	SourceID         *string
	ImportRunID      *string
	RecordedAt       time.Time
	ValidFrom        time.Time
	ValidTo          *time.Time
	ScenarioID       string
	Confidence       float64
	Supersedes       *string
	RelationshipType string
	PropertyKey      *string
}

// IsOpen reports whether the assertion currently has no closing time.
func (a AssertionRecord) IsOpen() bool {
	return a.ValidTo == nil
}

// IsProperty reports whether this assertion is a property claim rather
// than a domain relationship claim.
func (a AssertionRecord) IsProperty() bool {
	return a.RelationshipType == RelationshipTypeHasProperty
}

// PropertyValue carries the concrete typed value for a property assertion.
type PropertyValue struct {
	PropertyValueID string
	WorkspaceID     string
	PropertyKey     string
	Value           *string
	ValueType       ValueType
}

// ChangeEvent groups the assertions created or closed by a single cause.
type ChangeEvent struct {
	ChangeEventID string
	WorkspaceID   string
	EventType     EventType
	Description   *string
	TS            time.Time
	ImportRunID   *string
	Actor         *string
	Stats         *string
}

// ImportRun is the execution record of a single ingestion run.
type ImportRun struct {
	ImportRunID  string
	WorkspaceID  string
	SourceFile   *string
	SpecName     *string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Status       ImportStatus
	Stats        *string
	ErrorMessage *string
}

// Source is registered provenance metadata consulted by the Resolved View
// Engine to rank competing assertions by authority.
type Source struct {
	SourceID         string
	WorkspaceID      string
	SourceName       string
	SourceType       string
	AuthorityRank    int
	AuthorityDomains *string
	UpdateFrequency  *string
	Description      *string
}
