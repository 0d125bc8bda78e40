// Package dataset reads tabular air-quality sources and normalizes every eligible sub-table into
// typed measurement records.
package dataset

import (
	"errors"
	"fmt"
	"os"
)

// SubTable is one rectangular block of a source: a workbook sheet or a whole CSV file.
// Rows[0] is the header row. Rows may be shorter than the header.
type SubTable struct {
	Name string
	Rows [][]string
	// SerialDates is set when numeric date cells are spreadsheet serial numbers.
	SerialDates bool
	Date1904    bool
}

// Reader turns one source file into its sub-tables.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt Options) ([]SubTable, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates no registered reader handles the file.
var ErrUnsupported = errors.New("unsupported source format")

// ReadTables selects a reader based on the file name and returns the file's sub-tables.
func ReadTables(path string, opt Options) ([]SubTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func init() {
	Register(xlsxReader{})
	Register(csvReader{})
}
