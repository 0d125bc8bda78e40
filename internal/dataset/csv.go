package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

type csvReader struct{}

func (csvReader) CanRead(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Read loads the file as a single sub-table named after the file. Every column is read as text;
// typing happens during normalization.
func (csvReader) Read(path string, opt Options) ([]SubTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(bytes.TrimSpace(b)) == 0 {
		return []SubTable{{Name: name}}, nil
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, b)
	}
	cr := csv.NewReader(bytes.NewReader(b))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) <= 1 {
		return []SubTable{{Name: name, Rows: records}}, nil
	}
	header := records[0]
	width := len(header)
	for _, r := range records[1:] {
		width = max(width, len(r))
	}
	for i, r := range records {
		if len(r) < width {
			records[i] = append(r, make([]string, width-len(r))...)
		}
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}
	rows := df.Records()
	// gota renames duplicate and blank headers; keep the file's own names.
	rows[0] = append(append([]string(nil), header...), make([]string, width-len(header))...)
	return []SubTable{{Name: name, Rows: rows}}, nil
}

var utf8BOM = []byte("\xEF\xBB\xBF")

// sniffDelimiter picks tab for .tsv files, otherwise the most frequent of ',', ';' and tab on
// the header line.
func sniffDelimiter(path string, content []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	header := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		header = content[:i]
	}
	best, bestN := ',', bytes.Count(header, []byte{','})
	for _, r := range []rune{';', '\t'} {
		if n := bytes.Count(header, []byte(string(r))); n > bestN {
			best, bestN = r, n
		}
	}
	return best
}
