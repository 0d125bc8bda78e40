package air

import (
	"fmt"
	"strings"
)

// Pollutant identifies one of the monitored air pollutants.
type Pollutant int

const (
	SO2 Pollutant = iota
	CO
	PM10
	NO2
	O3
	PM25

	numPollutants = iota
)

// Unit is the concentration unit every reading is expressed in.
const Unit = "µg/m³"

var symbols = [numPollutants]string{"SO2", "CO", "PM10", "NO2", "O3", "PM2.5"}

// thresholds holds the safety limit per pollutant in µg/m³.
var thresholds = [numPollutants]float64{
	SO2:  40,
	CO:   4,
	PM10: 45,
	NO2:  25,
	O3:   100,
	PM25: 15,
}

// Pollutants returns every known pollutant in display order.
func Pollutants() []Pollutant {
	out := make([]Pollutant, numPollutants)
	for i := range out {
		out[i] = Pollutant(i)
	}
	return out
}

// Valid reports whether p is a known pollutant.
func (p Pollutant) Valid() bool { return p >= 0 && p < numPollutants }

// String returns the pollutant symbol, e.g. "PM2.5".
func (p Pollutant) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Pollutant(%d)", int(p))
	}
	return symbols[p]
}

// Threshold returns the safety limit for p.
func (p Pollutant) Threshold() float64 {
	if !p.Valid() {
		return 0
	}
	return thresholds[p]
}

// MarshalText encodes the pollutant as its symbol.
func (p Pollutant) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPollutant, int(p))
	}
	return []byte(symbols[p]), nil
}

// UnmarshalText accepts any spelling ParsePollutant accepts.
func (p *Pollutant) UnmarshalText(b []byte) error {
	v, err := ParsePollutant(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePollutant resolves a symbol or column header to a Pollutant. Matching ignores case,
// spaces, underscores and dashes, so "pm 2.5" and "PM-10" resolve.
func ParsePollutant(s string) (Pollutant, error) {
	key := foldSymbol(s)
	for i, sym := range symbols {
		if foldSymbol(sym) == key {
			return Pollutant(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPollutant, s)
}

// Thresholds returns a copy of the threshold table keyed by symbol.
func Thresholds() map[string]float64 {
	out := make(map[string]float64, numPollutants)
	for i, sym := range symbols {
		out[sym] = thresholds[i]
	}
	return out
}

func foldSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
