package allocator

import "staffplan-backend/internal/model"

// Phase identifies which allocation pass produced a pair.
type Phase string

const (
	PhaseExact    Phase = "exact"
	PhaseFallback Phase = "fallback"
)

// Candidate is an employee eligible for assignment.
type Candidate struct {
	EmployeeID string
	Role       model.Role
}

// Area is an active work area as seen by the engine.
type Area struct {
	ID          string
	MaxCapacity int

	// Assigned is the number of assignments the area already holds.
	Assigned int

	// Filled counts existing assignments per required role. Optional.
	Filled map[model.Role]int

	// Requirements is the headcount needed per role.
	Requirements map[model.Role]int
}

// Pair is one assignment to persist.
type Pair struct {
	EmployeeID string     `json:"employee_id"`
	WorkAreaID string     `json:"work_area_id"`
	Role       model.Role `json:"role"`
	Phase      Phase      `json:"phase"`
}

// Shortfall reports a role slot that stayed unfilled.
type Shortfall struct {
	WorkAreaID string     `json:"work_area_id"`
	Role       model.Role `json:"role"`
	Missing    int        `json:"missing"`
}

// Outcome is the result of an allocation run.
type Outcome struct {
	Pairs      []Pair
	Remaining  []Candidate
	Shortfalls []Shortfall
}

// CountByArea returns the number of new pairs per work area.
func (o *Outcome) CountByArea() map[string]int {
	counts := make(map[string]int)
	for _, p := range o.Pairs {
		counts[p.WorkAreaID]++
	}
	return counts
}
