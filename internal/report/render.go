package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/analysis"
	"github.com/KaramelBytes/aircheck-cli/internal/dataset"
	"github.com/KaramelBytes/aircheck-cli/internal/utils"
)

// Format selects how results are written.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// ParseFormat accepts text, markdown (or md), json and yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown format %q (use text, markdown, json or yaml)", s)
}

// Structured writes v as JSON or YAML. It returns false for the human formats so the caller can
// render those itself.
func Structured(w io.Writer, f Format, v any) (bool, error) {
	var (
		b   []byte
		err error
	)
	switch f {
	case JSON:
		b, err = utils.PrettyJSON(v)
		if err == nil {
			b = append(b, '\n')
		}
	case YAML:
		b, err = utils.PrettyYAML(v)
	default:
		return false, nil
	}
	if err != nil {
		return true, err
	}
	_, err = w.Write(b)
	return true, err
}

// Series writes a date/value table.
func Series(w io.Writer, site string, p air.Pollutant, year int, pts []analysis.Point) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s at %s, %d (threshold %.4g %s)\n", p, site, year, p.Threshold(), air.Unit)
	fmt.Fprintln(tw, "DATE\tVALUE\tLEVEL")
	for _, pt := range pts {
		level := "SAFE"
		if pt.Value > p.Threshold() {
			level = "HIGH"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\n", pt.Date.Format("2006-01-02"), pt.Value, level)
	}
	return tw.Flush()
}

// Summary writes a site summary as text or Markdown.
func Summary(w io.Writer, f Format, s analysis.SiteSummary) error {
	if f == Markdown {
		_, err := io.WriteString(w, s.Markdown())
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s, %d: %d records (%s to %s)\n", s.Site, s.Year, s.Records, s.First.Format("2006-01-02"), s.Last.Format("2006-01-02"))
	fmt.Fprintln(tw, "POLLUTANT\tMEAN\tMIN\tMAX\tN\tTHRESHOLD\tLEVEL")
	for _, p := range s.Pollutants {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\t%.4g\t%s\n", p.Pollutant, p.Mean, p.Min, p.Max, p.Count, p.Verdict.Threshold, p.Verdict.Level)
	}
	if len(s.Missing) > 0 {
		fmt.Fprintf(tw, "not measured: %s\n", strings.Join(s.Missing, ", "))
	}
	return tw.Flush()
}

// Inspect writes the per-source load report: which sub-tables were used and why others were not.
func Inspect(w io.Writer, datasets []*dataset.Dataset) error {
	var b strings.Builder
	for i, ds := range datasets {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("[SOURCE %s]\n", ds.Source.Name))
		b.WriteString(fmt.Sprintf("File: %s\n", ds.Source.Path))
		b.WriteString(fmt.Sprintf("Records: %d\n", len(ds.Records)))
		for _, t := range ds.Tables {
			if !t.Included {
				b.WriteString(fmt.Sprintf("- %s: skipped (%s)\n", t.Name, t.SkipReason))
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %d of %d rows kept", t.Name, t.Kept, t.Rows))
			if t.DroppedDates > 0 {
				b.WriteString(fmt.Sprintf("; %d bad dates", t.DroppedDates))
			}
			if t.DroppedSites > 0 {
				b.WriteString(fmt.Sprintf("; %d without site", t.DroppedSites))
			}
			if len(t.Pollutants) > 0 {
				b.WriteString(fmt.Sprintf("; pollutants: %s", strings.Join(t.Pollutants, ", ")))
			}
			if len(t.Unrecognized) > 0 {
				b.WriteString(fmt.Sprintf("; ignored columns: %s", strings.Join(t.Unrecognized, ", ")))
			}
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
