package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/xuri/excelize/v2"
)

// Options controls how sources are read and normalized.
type Options struct {
	// SiteColumn and DateColumn name the required columns; matched case-insensitively.
	SiteColumn string
	DateColumn string
	// Delimiter for CSV. If 0, auto-detects among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultOptions returns the column names used by the monitoring network's workbooks.
func DefaultOptions() Options {
	return Options{SiteColumn: "Site", DateColumn: "Date"}
}

// TableReport describes what happened to one sub-table during normalization.
type TableReport struct {
	Name         string   `json:"name" yaml:"name"`
	Included     bool     `json:"included" yaml:"included"`
	SkipReason   string   `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Rows         int      `json:"rows" yaml:"rows"`
	Kept         int      `json:"kept" yaml:"kept"`
	DroppedDates int      `json:"dropped_dates" yaml:"dropped_dates"`
	DroppedSites int      `json:"dropped_sites" yaml:"dropped_sites"`
	Pollutants   []string `json:"pollutants,omitempty" yaml:"pollutants,omitempty"`
	Unrecognized []string `json:"unrecognized,omitempty" yaml:"unrecognized,omitempty"`
}

// Normalize converts one sub-table into records. A table without both the site and the date
// column is skipped entirely. Rows whose date cannot be parsed are dropped, never zero-filled.
func Normalize(t SubTable, opt Options) ([]air.Record, TableReport) {
	rep := TableReport{Name: t.Name}
	if len(t.Rows) == 0 {
		rep.SkipReason = "empty"
		return nil, rep
	}
	header := t.Rows[0]
	rep.Rows = len(t.Rows) - 1

	siteIdx, dateIdx := -1, -1
	cols := map[int]air.Pollutant{}
	seen := map[air.Pollutant]bool{}
	for i, h := range header {
		name, _ := splitUnits(h)
		if name == "" {
			continue
		}
		switch {
		case siteIdx < 0 && strings.EqualFold(name, opt.SiteColumn):
			siteIdx = i
		case dateIdx < 0 && strings.EqualFold(name, opt.DateColumn):
			dateIdx = i
		default:
			p, err := air.ParsePollutant(name)
			if err != nil || seen[p] {
				rep.Unrecognized = append(rep.Unrecognized, name)
				continue
			}
			seen[p] = true
			cols[i] = p
			rep.Pollutants = append(rep.Pollutants, p.String())
		}
	}
	switch {
	case siteIdx < 0 && dateIdx < 0:
		rep.SkipReason = "missing site and date columns"
	case siteIdx < 0:
		rep.SkipReason = "missing site column"
	case dateIdx < 0:
		rep.SkipReason = "missing date column"
	}
	if rep.SkipReason != "" {
		return nil, rep
	}
	rep.Included = true

	out := make([]air.Record, 0, rep.Rows)
	for _, row := range t.Rows[1:] {
		date, ok := parseDate(cell(row, dateIdx), t.SerialDates, t.Date1904)
		if !ok {
			rep.DroppedDates++
			continue
		}
		site := cell(row, siteIdx)
		if missingTokens[strings.ToLower(site)] {
			rep.DroppedSites++
			continue
		}
		rec := air.Record{Site: site, Date: date}
		for idx, p := range cols {
			if v, ok := parseValue(cell(row, idx), opt); ok {
				rec.Readings.Set(p, v)
			}
		}
		out = append(out, rec)
	}
	rep.Kept = len(out)
	return out, rep
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02 15:04:05",
	"01/02/2006", "1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"02/01/2006", "02-Jan-2006", "2 January 2006", "January 2, 2006",
}

// parseDate accepts spreadsheet serial numbers (when serial is set) and the common textual
// layouts. Month-first is tried before day-first for slash dates.
func parseDate(s string, serial, date1904 bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if serial {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
				return time.Time{}, false
			}
			t, err := excelize.ExcelDateToTime(f, date1904)
			if err != nil {
				return time.Time{}, false
			}
			return air.Day(t), true
		}
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return air.Day(t), true
		}
	}
	return time.Time{}, false
}

// missingTokens are cell values treated as absent, for readings and for site names.
var missingTokens = map[string]bool{
	"": true, "nan": true, "na": true, "n/a": true, "-": true, "null": true, "none": true, "<nil>": true,
}

// parseValue returns a concentration, or false when the cell is empty or not a number.
func parseValue(s string, opt Options) (float64, bool) {
	if missingTokens[strings.ToLower(s)] {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var ok bool
		if f, ok = parseNumeric(s, opt); !ok {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseNumeric parses a number written with locale separators ("1.234,5", "1,234.5", "12,5").
// With no configured decimal separator the last of ',' and '.' is taken as the decimal point.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)\s*$`),  // PM2.5 (µg/m³)
	regexp.MustCompile(`^(.*?)\s*\[([^\]]+)\]\s*$`), // NO2 [ug/m3]
}

// splitUnits separates a trailing unit annotation from a header name.
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
