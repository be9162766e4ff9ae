package allocator

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffplan-backend/internal/model"
)

func cand(id string, role model.Role) Candidate {
	return Candidate{EmployeeID: id, Role: role}
}

func TestAllocate_Scenarios(t *testing.T) {
	testCases := []struct {
		name          string
		candidates    []Candidate
		areas         []Area
		expectedPairs []Pair
		remaining     []string
		shortfalls    []Shortfall
	}{
		{
			name:       "exact match then manager fills versorger slot",
			candidates: []Candidate{cand("allround-1", model.RoleAllrounder), cand("mgr-1", model.RoleManager)},
			areas: []Area{{
				ID: "gastro-1", MaxCapacity: 2,
				Requirements: map[model.Role]int{model.RoleAllrounder: 1, model.RoleVersorger: 1},
			}},
			expectedPairs: []Pair{
				{EmployeeID: "allround-1", WorkAreaID: "gastro-1", Role: model.RoleAllrounder, Phase: PhaseExact},
				{EmployeeID: "mgr-1", WorkAreaID: "gastro-1", Role: model.RoleVersorger, Phase: PhaseFallback},
			},
		},
		{
			name:       "manager covers essen through the hierarchy",
			candidates: []Candidate{cand("mgr-1", model.RoleManager)},
			areas: []Area{{
				ID: "kitchen", MaxCapacity: 1,
				Requirements: map[model.Role]int{model.RoleEssen: 1},
			}},
			expectedPairs: []Pair{
				{EmployeeID: "mgr-1", WorkAreaID: "kitchen", Role: model.RoleEssen, Phase: PhaseFallback},
			},
		},
		{
			name:       "first area in given order wins the only match",
			candidates: []Candidate{cand("sales-1", model.RoleVerkauf)},
			areas: []Area{
				{ID: "booth-a", MaxCapacity: 1, Requirements: map[model.Role]int{model.RoleVerkauf: 1}},
				{ID: "booth-b", MaxCapacity: 1, Requirements: map[model.Role]int{model.RoleVerkauf: 1}},
			},
			expectedPairs: []Pair{
				{EmployeeID: "sales-1", WorkAreaID: "booth-a", Role: model.RoleVerkauf, Phase: PhaseExact},
			},
			shortfalls: []Shortfall{{WorkAreaID: "booth-b", Role: model.RoleVerkauf, Missing: 1}},
		},
		{
			name:       "junior roles never cover senior slots",
			candidates: []Candidate{cand("food-1", model.RoleEssen)},
			areas: []Area{{
				ID: "bar", MaxCapacity: 3,
				Requirements: map[model.Role]int{model.RoleVerkauf: 1},
			}},
			remaining:  []string{"food-1"},
			shortfalls: []Shortfall{{WorkAreaID: "bar", Role: model.RoleVerkauf, Missing: 1}},
		},
		{
			name: "capacity bounds requirements",
			candidates: []Candidate{
				cand("s1", model.RoleVerkauf), cand("s2", model.RoleVerkauf), cand("s3", model.RoleVerkauf),
			},
			areas: []Area{{
				ID: "shop", MaxCapacity: 2,
				Requirements: map[model.Role]int{model.RoleVerkauf: 5},
			}},
			expectedPairs: []Pair{
				{EmployeeID: "s1", WorkAreaID: "shop", Role: model.RoleVerkauf, Phase: PhaseExact},
				{EmployeeID: "s2", WorkAreaID: "shop", Role: model.RoleVerkauf, Phase: PhaseExact},
			},
			remaining:  []string{"s3"},
			shortfalls: []Shortfall{{WorkAreaID: "shop", Role: model.RoleVerkauf, Missing: 3}},
		},
		{
			name:       "already assigned headcount counts against capacity",
			candidates: []Candidate{cand("s1", model.RoleVerkauf)},
			areas: []Area{{
				ID: "shop", MaxCapacity: 2, Assigned: 2,
				Requirements: map[model.Role]int{model.RoleVerkauf: 1},
			}},
			remaining:  []string{"s1"},
			shortfalls: []Shortfall{{WorkAreaID: "shop", Role: model.RoleVerkauf, Missing: 1}},
		},
		{
			name:       "existing per-role fulfilment is honoured",
			candidates: []Candidate{cand("s1", model.RoleVerkauf), cand("e1", model.RoleEssen)},
			areas: []Area{{
				ID: "shop", MaxCapacity: 4, Assigned: 1,
				Filled:       map[model.Role]int{model.RoleVerkauf: 1},
				Requirements: map[model.Role]int{model.RoleVerkauf: 1, model.RoleEssen: 1},
			}},
			expectedPairs: []Pair{
				{EmployeeID: "e1", WorkAreaID: "shop", Role: model.RoleEssen, Phase: PhaseExact},
			},
			remaining: []string{"s1"},
		},
		{
			name:       "zero and missing requirements assign nobody",
			candidates: []Candidate{cand("m1", model.RoleManager)},
			areas: []Area{
				{ID: "idle", MaxCapacity: 3, Requirements: map[model.Role]int{model.RoleEssen: 0}},
				{ID: "none", MaxCapacity: 3},
			},
			remaining: []string{"m1"},
		},
		{
			name: "empty inputs",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := Allocate(tc.candidates, tc.areas)

			assert.Equal(t, tc.expectedPairs, outcome.Pairs)

			var remaining []string
			for _, c := range outcome.Remaining {
				remaining = append(remaining, c.EmployeeID)
			}
			assert.Equal(t, tc.remaining, remaining)
			assert.Equal(t, tc.shortfalls, outcome.Shortfalls)
			assert.NoError(t, Verify(outcome, tc.areas))
		})
	}
}

func TestAllocate_PerRoleBookkeeping(t *testing.T) {
	// Only the manager can stand in for an allrounder. Per-role tracking must
	// report the second allrounder slot as short even though the area still
	// has room and a versorger is left over.
	candidates := []Candidate{
		cand("v1", model.RoleVersorger),
		cand("v2", model.RoleVersorger),
		cand("m1", model.RoleManager),
	}
	areas := []Area{{
		ID: "stage", MaxCapacity: 4,
		Requirements: map[model.Role]int{model.RoleAllrounder: 2, model.RoleVersorger: 1},
	}}

	outcome := Allocate(candidates, areas)

	filled := map[model.Role]int{}
	for _, p := range outcome.Pairs {
		filled[p.Role]++
	}
	assert.Equal(t, 1, filled[model.RoleAllrounder])
	assert.Equal(t, 1, filled[model.RoleVersorger])
	assert.Equal(t, []Shortfall{{WorkAreaID: "stage", Role: model.RoleAllrounder, Missing: 1}}, outcome.Shortfalls)
	require.Len(t, outcome.Remaining, 1)
	assert.Equal(t, "v2", outcome.Remaining[0].EmployeeID)
}

func TestAllocate_DoesNotMutateInput(t *testing.T) {
	candidates := []Candidate{cand("a", model.RoleEssen), cand("b", model.RoleEssen)}
	areas := []Area{{ID: "x", MaxCapacity: 1, Requirements: map[model.Role]int{model.RoleEssen: 1}}}

	Allocate(candidates, areas)

	assert.Equal(t, []Candidate{cand("a", model.RoleEssen), cand("b", model.RoleEssen)}, candidates)
	assert.Equal(t, 0, areas[0].Assigned)
}

// TestAllocate_Invariants checks capacity, uniqueness and phase priority on
// generated inputs.
func TestAllocate_Invariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for run := 0; run < 200; run++ {
		var candidates []Candidate
		nCandidates := rng.IntN(25)
		for i := 0; i < nCandidates; i++ {
			candidates = append(candidates, cand(fmt.Sprintf("e%d", i), model.Roles[rng.IntN(len(model.Roles))]))
		}
		var areas []Area
		nAreas := rng.IntN(6)
		for i := 0; i < nAreas; i++ {
			req := map[model.Role]int{}
			for _, r := range model.Roles {
				if rng.IntN(2) == 0 {
					req[r] = rng.IntN(4)
				}
			}
			areas = append(areas, Area{
				ID:           fmt.Sprintf("a%d", i),
				MaxCapacity:  1 + rng.IntN(5),
				Assigned:     rng.IntN(2),
				Requirements: req,
			})
		}

		outcome := Allocate(candidates, areas)
		require.NoError(t, Verify(outcome, areas), "run %d", run)
		assert.Equal(t, len(candidates), len(outcome.Pairs)+len(outcome.Remaining), "run %d", run)

		byEmployee := map[string]Candidate{}
		for _, c := range candidates {
			byEmployee[c.EmployeeID] = c
		}
		for _, p := range outcome.Pairs {
			c := byEmployee[p.EmployeeID]
			switch p.Phase {
			case PhaseExact:
				assert.Equal(t, c.Role, p.Role)
			case PhaseFallback:
				assert.True(t, c.Role.CanCover(p.Role))
			}
		}

		// A fallback fill for a role means no exact match for it was left.
		leftover := map[model.Role]bool{}
		for _, c := range outcome.Remaining {
			leftover[c.Role] = true
		}
		for _, p := range outcome.Pairs {
			if p.Phase == PhaseFallback {
				assert.False(t, leftover[p.Role], "run %d: %s filled by fallback while exact match remained", run, p.Role)
			}
		}
	}
}

func TestVerify_DetectsViolations(t *testing.T) {
	areas := []Area{{ID: "a", MaxCapacity: 1}, {ID: "b", MaxCapacity: 1}}

	dup := Outcome{Pairs: []Pair{{EmployeeID: "e1", WorkAreaID: "a"}, {EmployeeID: "e1", WorkAreaID: "b"}}}
	assert.Error(t, Verify(dup, areas))

	over := Outcome{Pairs: []Pair{{EmployeeID: "e1", WorkAreaID: "a"}, {EmployeeID: "e2", WorkAreaID: "a"}}}
	assert.Error(t, Verify(over, areas))

	unknown := Outcome{Pairs: []Pair{{EmployeeID: "e1", WorkAreaID: "zzz"}}}
	assert.Error(t, Verify(unknown, areas))
}

func TestOrderAreas(t *testing.T) {
	areas := []Area{
		{ID: "busy", Assigned: 3},
		{ID: "empty-1", Assigned: 0},
		{ID: "half", Assigned: 1},
		{ID: "empty-2", Assigned: 0},
	}

	ids := func(as []Area) []string {
		var out []string
		for _, a := range as {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []string{"empty-1", "empty-2", "half", "busy"}, ids(OrderAreas(areas, OrderHeadcount, nil)))
	assert.Equal(t, []string{"busy", "empty-1", "half", "empty-2"}, ids(OrderAreas(areas, OrderGiven, nil)))

	shuffled := OrderAreas(areas, OrderShuffle, rand.New(rand.NewPCG(1, 2)))
	assert.ElementsMatch(t, ids(areas), ids(shuffled))
	assert.Equal(t, "busy", areas[0].ID, "input must not be reordered")
}
