package domain

import "errors"

// FilteredError marks a record rejected by a quality rule, as opposed to a
// malformed row that failed to parse. Both are skipped, but they are counted
// separately.
type FilteredError struct {
	Reason string
}

func (e *FilteredError) Error() string { return "filtered: " + e.Reason }

func filtered(reason string) error { return &FilteredError{Reason: reason} }

// FilterReason returns the rejection reason if err is a FilteredError, or ""
// otherwise. Reasons are stable strings used as metric label values.
func FilterReason(err error) string {
	var fe *FilteredError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}

// IsFiltered reports whether err marks a quality-rule rejection.
func IsFiltered(err error) bool {
	var fe *FilteredError
	return errors.As(err, &fe)
}
