package report

import (
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"

	"github.com/eargollo/dupefinder/internal/monitor"
)

const sheetName = "Duplicates"

var xlsxHeader = []interface{}{"Set", "Path", "Size", "Tags"}

// WriteXLSX saves dups as a single-sheet workbook at path, one row per file.
func WriteXLSX(path string, dups []monitor.Duplicate) (err error) {
	f := excelize.NewFile()
	defer func() { err = multierr.Append(err, f.Close()) }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A1", &xlsxHeader); err != nil {
		return err
	}
	for i, d := range dups {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{d.Set, d.Path, d.Size, formatTags(d.Tags)}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func formatTags(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, "; ")
}
