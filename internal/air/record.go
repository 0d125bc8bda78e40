package air

import "time"

// Readings holds at most one concentration per pollutant. The zero value has no readings.
type Readings struct {
	vals [numPollutants]float64
	set  uint8
}

// Set stores v for p. Unknown pollutants are ignored.
func (r *Readings) Set(p Pollutant, v float64) {
	if !p.Valid() {
		return
	}
	r.vals[p] = v
	r.set |= 1 << uint(p)
}

// Get returns the reading for p and whether one is present.
func (r Readings) Get(p Pollutant) (float64, bool) {
	if !p.Valid() || r.set&(1<<uint(p)) == 0 {
		return 0, false
	}
	return r.vals[p], true
}

// Len returns the number of pollutants with a reading.
func (r Readings) Len() int {
	n := 0
	for i := 0; i < numPollutants; i++ {
		if r.set&(1<<uint(i)) != 0 {
			n++
		}
	}
	return n
}

// Map returns the present readings keyed by symbol.
func (r Readings) Map() map[string]float64 {
	out := make(map[string]float64, r.Len())
	for _, p := range Pollutants() {
		if v, ok := r.Get(p); ok {
			out[p.String()] = v
		}
	}
	return out
}

// Record is one measurement row: a site, a calendar date and the readings taken that day.
type Record struct {
	Site     string
	Date     time.Time // midnight UTC
	Readings Readings
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b. Both are truncated to calendar dates.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
