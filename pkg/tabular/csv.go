package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/factlake/factlake/pkg/specs"
)

// ParseCSV reads a CSV file and stages it against spec.Sheets[0]. CSV
// sources carry exactly one implicit sheet, since a CSV file has no sheet
// concept of its own; source_type=csv specs are expected to declare a
// single SheetSpec.
func ParseCSV(filePath string, spec specs.IngestionSpec) ([]StagedRow, error) {
	if len(spec.Sheets) == 0 {
		return nil, fmt.Errorf("ingestion spec %q: csv source requires exactly one sheet", spec.SpecName)
	}
	sheetSpec := spec.Sheets[0]

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening csv file %s: %w", filePath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var grid [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv file %s: %w", filePath, err)
		}
		grid = append(grid, record)
	}

	return parseRows(grid, sheetSpec, spec, "csv")
}
