package tabular

import (
	"fmt"

	"github.com/factlake/factlake/pkg/hashing"
	"github.com/factlake/factlake/pkg/specs"
)

// parseRows turns a raw grid of string cells (already sheet-selected) into
// StagedRows, padding or truncating every row to the header row's width and
// applying a SheetSpec's header row, skip_rows, entity/relationship
// mappings, and the IngestionSpec's dual-hash configuration. Shared by both the xlsx and CSV
// entry points so the two source types stage rows identically.
func parseRows(rows [][]string, sheetSpec specs.SheetSpec, spec specs.IngestionSpec, sheetName string) ([]StagedRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if sheetSpec.HeaderRow >= len(rows) {
		return nil, fmt.Errorf("header row %d out of range for sheet %q (only %d rows)", sheetSpec.HeaderRow, sheetName, len(rows))
	}

	headers := rows[sheetSpec.HeaderRow]
	headerMap := buildHeaderMap(headers)
	numCols := len(headers)

	skipRows := make(map[int]bool, len(sheetSpec.SkipRows)+1)
	for _, r := range sheetSpec.SkipRows {
		skipRows[r] = true
	}
	skipRows[sheetSpec.HeaderRow] = true

	serSpec := ToSerializationSpec(spec.RawHashSerialization)
	normRules := ToNormalizationRules(spec.ChangeDetection.NormalizationRules)
	valueTypes := make([]hashing.CellType, numCols)
	for i := range valueTypes {
		valueTypes[i] = hashing.CellTypeString
	}

	var staged []StagedRow
	for rowIdx, row := range rows {
		if skipRows[rowIdx] {
			continue
		}

		rawValues := padRow(row, numCols)

		rawAny := make([]any, len(rawValues))
		allEmpty := true
		for i, v := range rawValues {
			if v == "" {
				rawAny[i] = nil
			} else {
				rawAny[i] = v
				allEmpty = false
			}
		}
		if allEmpty {
			continue
		}

		rawHash := hashing.ComputeRawHash(rawAny, serSpec)
		normalizedHash := hashing.ComputeNormalizedHash(rawAny, serSpec, normRules, valueTypes)

		entitiesByKey := make(map[string]*StagedEntity, len(sheetSpec.Entities))
		var entityList []StagedEntity
		for entityKey, mapping := range sheetSpec.Entities {
			sourceRef := fmt.Sprintf("sheet:%s,row:%d", sheetName, rowIdx)
			entity := extractEntity(mapping, rawValues, headerMap, sourceRef)
			if entity != nil {
				entitiesByKey[entityKey] = entity
				entityList = append(entityList, *entity)
			}
		}
		if len(entityList) == 0 {
			continue
		}

		var relList []StagedRelationship
		for _, relMapping := range sheetSpec.Relationships {
			sourceRef := fmt.Sprintf("sheet:%s,row:%d", sheetName, rowIdx)
			rel := extractRelationship(relMapping, entitiesByKey, rawValues, headerMap, sourceRef)
			if rel != nil {
				relList = append(relList, *rel)
			}
		}

		staged = append(staged, StagedRow{
			RowIndex:       rowIdx,
			RawValues:      rawAny,
			Entities:       entityList,
			Relationships:  relList,
			RawHash:        rawHash,
			NormalizedHash: normalizedHash,
		})
	}

	return staged, nil
}

func padRow(row []string, numCols int) []string {
	out := make([]string, numCols)
	copy(out, row)
	return out
}
