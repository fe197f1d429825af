// Package specs parses the two YAML configuration surfaces that govern a
// workspace: IngestionSpec (how to read a source file and turn its rows
// into assertions) and DomainSchema (the entity/relationship types a
// workspace is allowed to assert). Neither type talks to a store; they are
// data only, validated on load.
package specs

// RawHashSerialization controls how a row's cells are joined into the
// canonical string that feeds ComputeRawHash.
type RawHashSerialization struct {
	CellOrder          string `yaml:"cell_order"`
	Delimiter          string `yaml:"delimiter"`
	NullRepresentation string `yaml:"null_representation"`
	NumberFormat       string `yaml:"number_format"`
	DateFormat         string `yaml:"date_format"`
	IncludeFormatting  bool   `yaml:"include_formatting"`
}

// DefaultRawHashSerialization matches the original implementation's
// pydantic field defaults.
func DefaultRawHashSerialization() RawHashSerialization {
	return RawHashSerialization{
		CellOrder:          "column_order",
		Delimiter:          "|",
		NullRepresentation: "<NULL>",
		NumberFormat:       "as_displayed",
		DateFormat:         "as_displayed",
		IncludeFormatting:  false,
	}
}

// NormalizationRule controls how cell values are canonicalized before
// ComputeNormalizedHash, so that semantically equal values sharing
// whitespace/case/null-spelling differences hash identically.
type NormalizationRule struct {
	TrimWhitespace  bool              `yaml:"trim_whitespace"`
	LowercaseString bool              `yaml:"lowercase_strings"`
	NormalizeNulls  []string          `yaml:"normalize_nulls"`
	NumberFormat    map[string]string `yaml:"number_format,omitempty"`
	DateFormat      string            `yaml:"date_format,omitempty"`
}

// DefaultNormalizationRule matches the original implementation's defaults.
func DefaultNormalizationRule() NormalizationRule {
	return NormalizationRule{
		TrimWhitespace:  true,
		LowercaseString: true,
		NormalizeNulls:  []string{"", "N/A", "n/a", "null", "-"},
	}
}

// ChangeDetection picks strict (raw hash) or normalized (normalized hash)
// change detection for a sheet, and the normalization rules to use when the
// mode is "normalized".
type ChangeDetection struct {
	Mode               string            `yaml:"mode"`
	NormalizationRules NormalizationRule `yaml:"normalization_rules"`
}

// DefaultChangeDetection matches the original implementation's defaults.
func DefaultChangeDetection() ChangeDetection {
	return ChangeDetection{Mode: "normalized", NormalizationRules: DefaultNormalizationRule()}
}

// ColumnMapping maps one source column onto one target property, with an
// optional named transform (strip, lower, upper, int, float) applied before
// the value is staged.
type ColumnMapping struct {
	SourceColumn   string  `yaml:"source_column"`
	TargetProperty string  `yaml:"target_property"`
	Transform      *string `yaml:"transform,omitempty"`
}

// EntityMapping describes how to derive one entity's primary key and
// properties from a row. KeyTemplate holds {name} placeholders (e.g.
// "Item:{sku}") filled from the row's target_property values; every
// KeyColumns entry must be present and non-blank.
type EntityMapping struct {
	EntityType string          `yaml:"entity_type"`
	KeyColumns []string        `yaml:"key_columns"`
	KeyTemplate string         `yaml:"key_template"`
	Properties []ColumnMapping `yaml:"properties"`
}

// RelationshipMapping describes a relationship assertion derived from a
// row, linking two entities already staged by name from EntityMapping.
type RelationshipMapping struct {
	RelationshipType string          `yaml:"relationship_type"`
	FromEntity       string          `yaml:"from_entity"`
	ToEntity         string          `yaml:"to_entity"`
	Properties       []ColumnMapping `yaml:"properties,omitempty"`
}

// SheetSpec describes one worksheet (or, for source_type=csv, the single
// implicit sheet) and how its rows map onto entities and relationships.
type SheetSpec struct {
	SheetName     *string                  `yaml:"sheet_name,omitempty"`
	SheetIndex    *int                     `yaml:"sheet_index,omitempty"`
	HeaderRow     int                      `yaml:"header_row"`
	SkipRows      []int                    `yaml:"skip_rows,omitempty"`
	Entities      map[string]EntityMapping `yaml:"entities"`
	Relationships []RelationshipMapping    `yaml:"relationships,omitempty"`
}

// IngestionSpec is the top-level ingestion mapping document: how to read a
// source file (Excel or CSV), and how to turn its rows into assertions.
type IngestionSpec struct {
	SpecName             string               `yaml:"spec_name"`
	SpecVersion          string               `yaml:"spec_version"`
	WorkspaceID          string               `yaml:"workspace_id"`
	SourceType           string               `yaml:"source_type"`
	FilePattern          *string              `yaml:"file_pattern,omitempty"`
	RawHashSerialization RawHashSerialization `yaml:"raw_hash_serialization"`
	ChangeDetection      ChangeDetection      `yaml:"change_detection"`
	Sheets               []SheetSpec          `yaml:"sheets"`
}
