// Package report renders query results for people: advisory messages, tables, JSON/YAML
// documents and trend charts.
package report

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/analysis"
)

// AverageMessage renders an average and its advice.
func AverageMessage(res analysis.QueryResult) string {
	return fmt.Sprintf("Average %s level in %d: %.2f %s\n\n%s", res.Pollutant, res.Year, res.Mean, air.Unit, res.Verdict.Message)
}

// ForecastMessage renders a year-end prediction and its advice.
func ForecastMessage(res analysis.ForecastResult) string {
	return fmt.Sprintf("Predicted %s level for %d: %.2f %s\n\n%s", res.Pollutant, res.Year, res.Predicted, air.Unit, res.Verdict.Message)
}

// NoDataMessage is shown when a site has no records in a year.
func NoDataMessage(site string, year int) string {
	return fmt.Sprintf("No data found for %s in %d.", site, year)
}

// Describe turns a recoverable query error into a message for the user. ok is false for errors
// that are not query outcomes.
func Describe(err error, site string, p air.Pollutant, year int) (msg string, ok bool) {
	switch {
	case errors.Is(err, air.ErrNoData):
		return NoDataMessage(site, year), true
	case errors.Is(err, air.ErrNoReadings):
		return fmt.Sprintf("No %s readings found for %s in %d.", p, site, year), true
	case errors.Is(err, air.ErrInsufficientData):
		return fmt.Sprintf("Not enough %s readings for %s in %d to forecast; at least two different days are needed.", p, site, year), true
	case errors.Is(err, air.ErrUnknownPollutant):
		return fmt.Sprintf("Unknown pollutant. Choose one of: %s.", pollutantList()), true
	}
	return "", false
}

func pollutantList() string {
	s := ""
	for i, p := range air.Pollutants() {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s
}
