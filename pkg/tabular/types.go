// Package tabular turns a workbook (or CSV file) plus an IngestionSpec into
// staged entities, relationships, and per-row dual hashes, ready for the
// Ingestion Engine to diff against the store. It is a pure function of its
// inputs: it reads a file and a spec and returns data, nothing else.
package tabular

// StagedEntity is an entity extracted from one row, not yet looked up or
// written against the store.
type StagedEntity struct {
	EntityType  string
	PrimaryKey  string
	DisplayName *string
	Properties  map[string]any
	SourceRef   string
}

// StagedRelationship is a relationship extracted from one row, linking two
// entities staged from the same row.
type StagedRelationship struct {
	RelationshipType string
	FromEntityType   string
	FromPrimaryKey   string
	ToEntityType     string
	ToPrimaryKey     string
	Properties       map[string]any
	SourceRef        string
}

// StagedRow is one parsed row: its raw cell values, the entities and
// relationships derived from it, and its dual hash for change detection.
type StagedRow struct {
	RowIndex        int
	RawValues       []any
	Entities        []StagedEntity
	Relationships   []StagedRelationship
	RawHash         string
	NormalizedHash  string
}
