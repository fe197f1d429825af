package tabular

import (
	"fmt"
	"strings"

	"github.com/factlake/factlake/pkg/specs"
)

func buildHeaderMap(headers []string) map[string]int {
	m := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h != "" {
			m[h] = i
		}
	}
	return m
}

func cellValue(rowValues []string, headerMap map[string]int, column string) any {
	idx, ok := headerMap[column]
	if !ok || idx >= len(rowValues) {
		return nil
	}
	v := rowValues[idx]
	if v == "" {
		return nil
	}
	return v
}

// resolveKey fills keyTemplate's {name} placeholders from rowData, which is
// keyed by each mapped column's target_property; raw source column names
// are not available as placeholders. It returns ("", false) when any
// key_column is missing or blank, or when a placeholder is left unfilled,
// matching the original's key-validity check.
func resolveKey(keyTemplate string, keyColumns []string, rowData map[string]any) (string, bool) {
	for _, col := range keyColumns {
		v, ok := rowData[col]
		if !ok || v == nil {
			return "", false
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return "", false
		}
	}

	key := keyTemplate
	for col, v := range rowData {
		if v == nil {
			continue
		}
		placeholder := "{" + col + "}"
		if strings.Contains(key, placeholder) {
			key = strings.ReplaceAll(key, placeholder, fmt.Sprintf("%v", v))
		}
	}
	if strings.Contains(key, "{") {
		return "", false
	}
	return key, true
}

func extractEntity(mapping specs.EntityMapping, rowValues []string, headerMap map[string]int, sourceRef string) *StagedEntity {
	rowData := make(map[string]any, len(mapping.Properties))
	properties := make(map[string]any, len(mapping.Properties))

	for _, prop := range mapping.Properties {
		value := cellValue(rowValues, headerMap, prop.SourceColumn)
		if prop.Transform != nil {
			value = applyTransform(value, *prop.Transform)
		}
		rowData[prop.TargetProperty] = value
		properties[prop.TargetProperty] = value
	}

	primaryKey, ok := resolveKey(mapping.KeyTemplate, mapping.KeyColumns, rowData)
	if !ok {
		return nil
	}

	keyColumnSet := make(map[string]bool, len(mapping.KeyColumns))
	for _, k := range mapping.KeyColumns {
		keyColumnSet[k] = true
	}

	var displayName *string
	for _, prop := range mapping.Properties {
		if keyColumnSet[prop.TargetProperty] {
			continue
		}
		if v, ok := properties[prop.TargetProperty]; ok && v != nil {
			s := fmt.Sprintf("%v", v)
			displayName = &s
			break
		}
	}
	if displayName == nil {
		displayName = &primaryKey
	}

	return &StagedEntity{
		EntityType:  mapping.EntityType,
		PrimaryKey:  primaryKey,
		DisplayName: displayName,
		Properties:  properties,
		SourceRef:   sourceRef,
	}
}

func extractRelationship(mapping specs.RelationshipMapping, entitiesByKey map[string]*StagedEntity, rowValues []string, headerMap map[string]int, sourceRef string) *StagedRelationship {
	from, ok := entitiesByKey[mapping.FromEntity]
	if !ok {
		return nil
	}
	to, ok := entitiesByKey[mapping.ToEntity]
	if !ok {
		return nil
	}

	var properties map[string]any
	if len(mapping.Properties) > 0 {
		properties = make(map[string]any, len(mapping.Properties))
		for _, prop := range mapping.Properties {
			value := cellValue(rowValues, headerMap, prop.SourceColumn)
			if prop.Transform != nil {
				value = applyTransform(value, *prop.Transform)
			}
			properties[prop.TargetProperty] = value
		}
	}

	return &StagedRelationship{
		RelationshipType: mapping.RelationshipType,
		FromEntityType:   from.EntityType,
		FromPrimaryKey:   from.PrimaryKey,
		ToEntityType:     to.EntityType,
		ToPrimaryKey:     to.PrimaryKey,
		Properties:       properties,
		SourceRef:        sourceRef,
	}
}
