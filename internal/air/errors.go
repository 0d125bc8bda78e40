package air

import "errors"

var (
	// ErrNoData is returned when a site/year filter matches zero records.
	ErrNoData = errors.New("no data")
	// ErrNoReadings is returned when records matched but none carries a value for the pollutant.
	ErrNoReadings = errors.New("no readings for pollutant")
	// ErrInsufficientData is returned when a trend fit has fewer than two distinct days to work with.
	ErrInsufficientData = errors.New("insufficient data for forecast")
	// ErrUnknownPollutant is returned for a pollutant symbol outside the threshold table.
	ErrUnknownPollutant = errors.New("unknown pollutant")
)
