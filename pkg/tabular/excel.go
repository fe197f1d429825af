package tabular

import (
	"fmt"

	"github.com/tealeg/xlsx/v3"

	"github.com/factlake/factlake/pkg/specs"
)

// ParseExcel reads an xlsx workbook and stages every sheet named by
// spec.Sheets, in spec order.
func ParseExcel(filePath string, spec specs.IngestionSpec) ([]StagedRow, error) {
	wb, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", filePath, err)
	}

	var all []StagedRow
	for _, sheetSpec := range spec.Sheets {
		sheet, sheetName, ok := selectSheet(wb, sheetSpec)
		if !ok {
			continue
		}

		rows, err := sheetToGrid(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheetName, err)
		}

		staged, err := parseRows(rows, sheetSpec, spec, sheetName)
		if err != nil {
			return nil, err
		}
		all = append(all, staged...)
	}

	return all, nil
}

func selectSheet(wb *xlsx.File, sheetSpec specs.SheetSpec) (*xlsx.Sheet, string, bool) {
	if sheetSpec.SheetName != nil {
		sheet, ok := wb.Sheet[*sheetSpec.SheetName]
		return sheet, *sheetSpec.SheetName, ok
	}
	if sheetSpec.SheetIndex != nil {
		if *sheetSpec.SheetIndex >= len(wb.Sheets) {
			return nil, "", false
		}
		sheet := wb.Sheets[*sheetSpec.SheetIndex]
		return sheet, sheet.Name, true
	}
	if len(wb.Sheets) == 0 {
		return nil, "", false
	}
	return wb.Sheets[0], wb.Sheets[0].Name, true
}

func sheetToGrid(sheet *xlsx.Sheet) ([][]string, error) {
	var grid [][]string
	err := sheet.ForEachRow(func(row *xlsx.Row) error {
		var cells []string
		err := row.ForEachCell(func(cell *xlsx.Cell) error {
			cells = append(cells, cell.String())
			return nil
		})
		grid = append(grid, cells)
		return err
	})
	return grid, err
}
