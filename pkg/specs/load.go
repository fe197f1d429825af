package specs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseIngestionSpec unmarshals an IngestionSpec from YAML and fills in the
// defaults the original pydantic models applied implicitly, since yaml.v3
// leaves unset scalar fields at their Go zero value rather than a
// type-declared default.
func ParseIngestionSpec(data []byte) (*IngestionSpec, error) {
	var spec IngestionSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing ingestion spec: %w", err)
	}

	if spec.SourceType == "" {
		spec.SourceType = "excel"
	}
	if spec.RawHashSerialization == (RawHashSerialization{}) {
		spec.RawHashSerialization = DefaultRawHashSerialization()
	}
	if spec.ChangeDetection.Mode == "" {
		spec.ChangeDetection = DefaultChangeDetection()
	}

	if err := validateIngestionSpec(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func validateIngestionSpec(spec *IngestionSpec) error {
	if spec.SpecName == "" {
		return fmt.Errorf("ingestion spec: spec_name is required")
	}
	if spec.WorkspaceID == "" {
		return fmt.Errorf("ingestion spec: workspace_id is required")
	}
	if len(spec.Sheets) == 0 {
		return fmt.Errorf("ingestion spec %q: at least one sheet is required", spec.SpecName)
	}
	switch spec.ChangeDetection.Mode {
	case "strict", "normalized":
	default:
		return fmt.Errorf("ingestion spec %q: change_detection.mode must be strict or normalized, got %q", spec.SpecName, spec.ChangeDetection.Mode)
	}
	for _, sheet := range spec.Sheets {
		if sheet.SheetName == nil && sheet.SheetIndex == nil && spec.SourceType == "excel" {
			return fmt.Errorf("ingestion spec %q: each excel sheet needs sheet_name or sheet_index", spec.SpecName)
		}
		for name, em := range sheet.Entities {
			if em.EntityType == "" {
				return fmt.Errorf("ingestion spec %q: entity mapping %q missing entity_type", spec.SpecName, name)
			}
			if len(em.KeyColumns) == 0 {
				return fmt.Errorf("ingestion spec %q: entity mapping %q needs at least one key_column", spec.SpecName, name)
			}
		}
		for _, rm := range sheet.Relationships {
			if _, ok := sheet.Entities[rm.FromEntity]; !ok {
				return fmt.Errorf("ingestion spec %q: relationship %q references undefined from_entity %q", spec.SpecName, rm.RelationshipType, rm.FromEntity)
			}
			if _, ok := sheet.Entities[rm.ToEntity]; !ok {
				return fmt.Errorf("ingestion spec %q: relationship %q references undefined to_entity %q", spec.SpecName, rm.RelationshipType, rm.ToEntity)
			}
		}
	}
	return nil
}
