package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm")
}

// Read returns every sheet of the workbook as a sub-table. Cell values are read raw so that
// date cells arrive as serial numbers regardless of their display format.
func (xlsxReader) Read(path string, _ Options) ([]SubTable, error) {
	raw := excelize.Options{RawCellValue: true}
	f, err := excelize.OpenFile(path, raw)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var tables []SubTable
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, raw)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		tables = append(tables, SubTable{Name: name, Rows: rows, SerialDates: true, Date1904: date1904})
	}
	return tables, nil
}
