package allocator

import (
	"staffplan-backend/internal/model"
)

// areaState tracks one area's running totals during a run.
type areaState struct {
	area     Area
	assigned int
	filled   map[model.Role]int
}

func newAreaState(a Area) *areaState {
	filled := make(map[model.Role]int, len(a.Filled))
	for role, n := range a.Filled {
		filled[role] = n
	}
	return &areaState{area: a, assigned: a.Assigned, filled: filled}
}

func (s *areaState) remainingCapacity() int {
	return max(s.area.MaxCapacity-s.assigned, 0)
}

func (s *areaState) remainingNeed(role model.Role) int {
	return max(s.area.Requirements[role]-s.filled[role], 0)
}

// Allocate distributes the candidate pool over the work areas in two passes.
//
// Phase 1 fills each required role with employees whose base role matches
// exactly. Phase 2 fills what is still missing with employees whose role
// covers the slot in the hierarchy. Areas are processed in the given order
// and roles within an area from most to least senior. Candidates are taken
// in pool order and leave the pool as soon as they are placed.
//
// Allocate never fails: empty inputs, unmatched employees and unfilled slots
// are reported in the Outcome.
func Allocate(candidates []Candidate, areas []Area) Outcome {
	pool := make([]Candidate, len(candidates))
	copy(pool, candidates)

	states := make([]*areaState, 0, len(areas))
	for _, a := range areas {
		if a.MaxCapacity <= 0 {
			continue
		}
		states = append(states, newAreaState(a))
	}

	var pairs []Pair

	// Phase 1: exact match
	for _, st := range states {
		for _, role := range model.Roles {
			need := min(st.remainingNeed(role), st.remainingCapacity())
			if need == 0 {
				continue
			}
			var taken []Pair
			pool, taken = take(pool, need, func(c Candidate) bool { return c.Role == role })
			for i := range taken {
				taken[i].WorkAreaID = st.area.ID
				taken[i].Role = role
				taken[i].Phase = PhaseExact
			}
			st.assigned += len(taken)
			st.filled[role] += len(taken)
			pairs = append(pairs, taken...)
		}
	}

	// Phase 2: hierarchy fallback
	for _, st := range states {
		for _, role := range model.Roles {
			need := min(st.remainingNeed(role), st.remainingCapacity())
			if need == 0 {
				continue
			}
			var taken []Pair
			pool, taken = take(pool, need, func(c Candidate) bool { return c.Role.CanCover(role) })
			for i := range taken {
				taken[i].WorkAreaID = st.area.ID
				taken[i].Role = role
				taken[i].Phase = PhaseFallback
			}
			st.assigned += len(taken)
			st.filled[role] += len(taken)
			pairs = append(pairs, taken...)
		}
	}

	var shortfalls []Shortfall
	for _, st := range states {
		for _, role := range model.Roles {
			if missing := st.remainingNeed(role); missing > 0 {
				shortfalls = append(shortfalls, Shortfall{WorkAreaID: st.area.ID, Role: role, Missing: missing})
			}
		}
	}

	return Outcome{Pairs: pairs, Remaining: pool, Shortfalls: shortfalls}
}

// take removes up to n matching candidates from pool, preserving pool order.
func take(pool []Candidate, n int, match func(Candidate) bool) ([]Candidate, []Pair) {
	if n <= 0 {
		return pool, nil
	}
	rest := pool[:0:0]
	var taken []Pair
	for _, c := range pool {
		if len(taken) < n && match(c) {
			taken = append(taken, Pair{EmployeeID: c.EmployeeID})
			continue
		}
		rest = append(rest, c)
	}
	return rest, taken
}
