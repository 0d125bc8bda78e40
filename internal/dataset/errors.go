package dataset

import "fmt"

// Reasons a source can be unavailable.
const (
	ReasonNotFound         = "not_found"
	ReasonUnreadable       = "unreadable"
	ReasonUnsupported      = "unsupported_format"
	ReasonNoEligibleTables = "no_eligible_subtables"
)

// SourceUnavailableError reports that a required source could not produce any data.
type SourceUnavailableError struct {
	Source string
	Path   string
	Reason string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e == nil {
		return "source unavailable"
	}
	if e.Err != nil {
		return fmt.Sprintf("source %q unavailable (%s) at %s: %v", e.Source, e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("source %q unavailable (%s) at %s", e.Source, e.Reason, e.Path)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }
