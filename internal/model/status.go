package model

// Status is an employee's selection status for one event.
type Status string

const (
	StatusNotSelected  Status = "not-selected"
	StatusAvailable    Status = "available"
	StatusSelected     Status = "selected"
	StatusUnavailable  Status = "unavailable"
	StatusAlwaysNeeded Status = "always-needed"
)

// Statuses lists every status value.
var Statuses = []Status{StatusNotSelected, StatusAvailable, StatusSelected, StatusUnavailable, StatusAlwaysNeeded}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether a user may move a status from one value to
// another directly. Selected is entered and left through assignments; the
// only direct way out is unavailable, for staff who drop out on the day.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if to == StatusSelected {
		return false
	}
	if from == StatusSelected {
		return to == StatusUnavailable
	}
	return true
}
