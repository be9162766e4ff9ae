package allocator

import (
	"fmt"

	"staffplan-backend/internal/apperr"
)

// Verify re-checks an outcome against the areas it was computed for: every
// employee appears at most once and no area ends above maxCapacity.
func Verify(outcome Outcome, areas []Area) error {
	byID := make(map[string]Area, len(areas))
	for _, a := range areas {
		byID[a.ID] = a
	}

	seen := make(map[string]string, len(outcome.Pairs))
	for _, p := range outcome.Pairs {
		if prev, dup := seen[p.EmployeeID]; dup {
			return fmt.Errorf("employee %s assigned to both %s and %s", p.EmployeeID, prev, p.WorkAreaID)
		}
		seen[p.EmployeeID] = p.WorkAreaID
		if _, ok := byID[p.WorkAreaID]; !ok {
			return fmt.Errorf("employee %s assigned to unknown work area %s", p.EmployeeID, p.WorkAreaID)
		}
	}

	for id, n := range outcome.CountByArea() {
		a := byID[id]
		if a.Assigned+n > a.MaxCapacity {
			return fmt.Errorf("work area %s: %d of %d: %w", id, a.Assigned+n, a.MaxCapacity, apperr.ErrCapacityExceeded)
		}
	}
	return nil
}
