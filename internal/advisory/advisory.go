// Package advisory classifies pollutant concentrations against the fixed safety thresholds.
package advisory

import (
	"fmt"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
)

// Level is the qualitative classification of a concentration.
type Level string

const (
	High Level = "HIGH"
	Safe Level = "SAFE"
)

// Advice returns the fixed advisory text for a level.
func (l Level) Advice() string {
	if l == High {
		return "Limit outdoor activities and wear a mask."
	}
	return "No major health risks."
}

// Verdict is the outcome of evaluating a single value.
type Verdict struct {
	Pollutant air.Pollutant `json:"pollutant" yaml:"pollutant"`
	Value     float64       `json:"value" yaml:"value"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
	Level     Level         `json:"level" yaml:"level"`
	Message   string        `json:"message" yaml:"message"`
}

// High reports whether the value exceeded the threshold.
func (v Verdict) High() bool { return v.Level == High }

func (v Verdict) String() string { return v.Message }

// Evaluate compares value against the pollutant's threshold. Only a value strictly greater than
// the threshold is HIGH. Unknown pollutants are rejected with air.ErrUnknownPollutant rather
// than compared against a zero threshold.
func Evaluate(p air.Pollutant, value float64) (Verdict, error) {
	if !p.Valid() {
		return Verdict{}, fmt.Errorf("%w: %v", air.ErrUnknownPollutant, p)
	}
	v := Verdict{Pollutant: p, Value: value, Threshold: p.Threshold(), Level: Safe}
	if value > v.Threshold {
		v.Level = High
	}
	v.Message = message(v)
	return v, nil
}

// EvaluateSymbol parses the symbol and evaluates value against it.
func EvaluateSymbol(symbol string, value float64) (Verdict, error) {
	p, err := air.ParsePollutant(symbol)
	if err != nil {
		return Verdict{}, err
	}
	return Evaluate(p, value)
}

func message(v Verdict) string {
	if v.Level == High {
		return fmt.Sprintf("WARNING: %s levels are HIGH (%.2f %s). %s", v.Pollutant, v.Value, air.Unit, v.Level.Advice())
	}
	return fmt.Sprintf("%s levels are safe (%.2f %s). %s", v.Pollutant, v.Value, air.Unit, v.Level.Advice())
}
