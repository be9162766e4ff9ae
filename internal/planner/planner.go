// Package planner runs the durable assignment operations and keeps each
// employee's event status coupled to their assignment.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"staffplan-backend/internal/allocator"
	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/metrics"
	"staffplan-backend/internal/model"
	"staffplan-backend/internal/parse"
	"staffplan-backend/internal/store"
)

// Reasons reported by AutoAssign when there is nothing to do.
const (
	ReasonNoEmployees = "no eligible employees"
	ReasonNoAreas     = "no active work areas"
)

// Options tunes a Service.
type Options struct {
	// StoreTimeout bounds every durable call. Zero means no extra deadline.
	StoreTimeout time.Duration
	// AreaOrder is one of the allocator order modes.
	AreaOrder string
	// Rand drives the shuffle order. A random source is used when nil.
	Rand *rand.Rand
}

// Service is the assignment service shared by the HTTP API, the surfaces
// and the CLI. It does not publish notifications; callers do.
type Service struct {
	store   store.Store
	logger  *zap.Logger
	metrics metrics.Recorder
	opts    Options

	rngMu sync.Mutex
}

// NewService creates a planner over s.
func NewService(s store.Store, logger *zap.Logger, rec metrics.Recorder, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if opts.AreaOrder == "" {
		opts.AreaOrder = allocator.OrderHeadcount
	}
	return &Service{store: s, logger: logger, metrics: rec, opts: opts}
}

// AutoAssignResult is the outcome of an auto-assign run.
type AutoAssignResult struct {
	Assignments []model.Assignment    `json:"assignments"`
	Message     string                `json:"message"`
	Reason      string                `json:"reason,omitempty"`
	Shortfalls  []allocator.Shortfall `json:"shortfalls,omitempty"`
	Unassigned  []string              `json:"unassigned,omitempty"`
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

// fail counts store failures before handing err back.
func (s *Service) fail(err error) error {
	var se *apperr.StoreError
	if errors.As(err, &se) {
		s.metrics.RecordStoreFailure(se.Op)
		s.logger.Error("store call failed", zap.String("op", se.Op), zap.Error(se.Err))
	}
	return err
}

// ListAssignments returns the event's assignments, newest first.
func (s *Service) ListAssignments(ctx context.Context, eventID string) ([]model.Assignment, error) {
	if eventID == "" {
		return nil, apperr.Required("event_id")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	assignments, err := s.store.ListAssignments(ctx, eventID)
	if err != nil {
		return nil, s.fail(err)
	}
	return assignments, nil
}

// Assign places an employee in a work area, replacing any assignment the
// employee already holds in the event, and marks the employee selected.
// It returns the joined assignment and the id of the area the employee left.
func (s *Service) Assign(ctx context.Context, eventID, employeeID, workAreaID string) (*model.Assignment, string, error) {
	switch {
	case eventID == "":
		return nil, "", apperr.Required("event_id")
	case employeeID == "":
		return nil, "", apperr.Required("employee_id")
	case workAreaID == "":
		return nil, "", apperr.Required("work_area_id")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	assignment, previous, err := s.store.UpsertAssignment(ctx, eventID, employeeID, workAreaID)
	if err != nil {
		return nil, "", s.fail(err)
	}

	s.metrics.RecordAssignment("manual")
	s.logger.Info("employee assigned",
		zap.String("event_id", eventID),
		zap.String("employee_id", employeeID),
		zap.String("work_area_id", workAreaID),
		zap.String("previous_work_area_id", previous))
	return assignment, previous, nil
}

// Unassign removes the employee's assignment for the event. Removing an
// assignment that does not exist succeeds and reports false. A removed
// employee who is still selected goes back to available.
func (s *Service) Unassign(ctx context.Context, eventID, employeeID string) (bool, error) {
	switch {
	case eventID == "":
		return false, apperr.Required("event_id")
	case employeeID == "":
		return false, apperr.Required("employee_id")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	removed, err := s.store.DeleteAssignment(ctx, eventID, employeeID)
	if err != nil {
		return false, s.fail(err)
	}
	return removed, nil
}

// AutoAssign recomputes the event's assignments. With employeeIDs the pool is
// exactly those employees; otherwise it is every employee whose status is
// available. Existing assignments are replaced in one batched write, unless
// there is nothing to assign, in which case they are left alone and the
// result carries the reason.
func (s *Service) AutoAssign(ctx context.Context, eventID string, employeeIDs []string) (*AutoAssignResult, error) {
	if eventID == "" {
		return nil, apperr.Required("event_id")
	}

	pool, err := s.pool(ctx, eventID, employeeIDs)
	if err != nil {
		return nil, s.fail(err)
	}
	if len(pool) == 0 {
		return s.nothingToDo(eventID, ReasonNoEmployees), nil
	}

	areas, err := s.areas(ctx, eventID)
	if err != nil {
		return nil, s.fail(err)
	}
	if len(areas) == 0 {
		return s.nothingToDo(eventID, ReasonNoAreas), nil
	}

	s.rngMu.Lock()
	ordered := allocator.OrderAreas(areas, s.opts.AreaOrder, s.opts.Rand)
	s.rngMu.Unlock()

	// Everything is cleared before the insert, so the run starts from empty areas.
	for i := range ordered {
		ordered[i].Assigned = 0
		ordered[i].Filled = nil
	}

	outcome := allocator.Allocate(pool, ordered)
	if err := allocator.Verify(outcome, ordered); err != nil {
		return nil, fmt.Errorf("auto-assign for event %s: %w", eventID, err)
	}

	pairs := make([]store.AssignmentPair, 0, len(outcome.Pairs))
	for _, p := range outcome.Pairs {
		pairs = append(pairs, store.AssignmentPair{EmployeeID: p.EmployeeID, WorkAreaID: p.WorkAreaID})
	}

	writeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	inserted, err := s.store.ReplaceAssignments(writeCtx, eventID, pairs)
	if err != nil {
		return nil, s.fail(err)
	}

	unfilled := 0
	for _, sf := range outcome.Shortfalls {
		unfilled += sf.Missing
	}
	for _, p := range outcome.Pairs {
		s.metrics.RecordAssignment(string(p.Phase))
	}
	s.metrics.RecordAutoAssign(len(inserted), unfilled)

	result := &AutoAssignResult{
		Assignments: inserted,
		Message:     fmt.Sprintf("Assigned %d employees", len(inserted)),
		Shortfalls:  outcome.Shortfalls,
	}
	for _, c := range outcome.Remaining {
		result.Unassigned = append(result.Unassigned, c.EmployeeID)
	}
	if result.Assignments == nil {
		result.Assignments = []model.Assignment{}
	}

	s.logger.Info("auto-assign complete",
		zap.String("event_id", eventID),
		zap.Int("pool", len(pool)),
		zap.Int("assigned", len(inserted)),
		zap.Int("unfilled_slots", unfilled))
	return result, nil
}

func (s *Service) nothingToDo(eventID, reason string) *AutoAssignResult {
	s.logger.Info("auto-assign skipped", zap.String("event_id", eventID), zap.String("reason", reason))
	return &AutoAssignResult{
		Assignments: []model.Assignment{},
		Message:     "Assigned 0 employees: " + reason,
		Reason:      reason,
	}
}

// pool builds the candidate list. An explicit id list keeps its order and
// drops duplicates; otherwise candidates come from available statuses, minus
// employees flagged always-needed.
func (s *Service) pool(ctx context.Context, eventID string, employeeIDs []string) ([]allocator.Candidate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var employees []model.Employee
	if len(employeeIDs) > 0 {
		found, err := s.store.ListEmployees(ctx, store.EmployeeFilter{IDs: employeeIDs})
		if err != nil {
			return nil, err
		}
		byID := make(map[string]model.Employee, len(found))
		for _, e := range found {
			byID[e.ID] = e
		}
		seen := make(map[string]bool, len(employeeIDs))
		for _, id := range employeeIDs {
			e, ok := byID[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			employees = append(employees, e)
		}
	} else {
		statuses, err := s.store.GetEmployeeEventStatuses(ctx, eventID, model.StatusAvailable)
		if err != nil {
			return nil, err
		}
		if len(statuses) == 0 {
			return nil, nil
		}
		ids := make([]string, len(statuses))
		for i, st := range statuses {
			ids[i] = st.EmployeeID
		}
		notAlwaysNeeded := false
		employees, err = s.store.ListEmployees(ctx, store.EmployeeFilter{IDs: ids, AlwaysNeeded: &notAlwaysNeeded})
		if err != nil {
			return nil, err
		}
	}

	candidates := make([]allocator.Candidate, 0, len(employees))
	for _, e := range employees {
		role, err := parse.ParseRole(string(e.Role))
		if err != nil {
			s.logger.Warn("skipping employee with unknown role",
				zap.String("employee_id", e.ID), zap.String("role", string(e.Role)))
			continue
		}
		candidates = append(candidates, allocator.Candidate{EmployeeID: e.ID, Role: role})
	}
	return candidates, nil
}

// areas loads the active work areas with their current headcount, which
// drives the "headcount" ordering.
func (s *Service) areas(ctx context.Context, eventID string) ([]allocator.Area, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	workAreas, err := s.store.ListWorkAreas(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	if len(workAreas) == 0 {
		return nil, nil
	}

	current, err := s.store.ListAssignments(ctx, eventID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(workAreas))
	for _, a := range current {
		counts[a.WorkAreaID]++
	}

	areas := make([]allocator.Area, 0, len(workAreas))
	for _, wa := range workAreas {
		areas = append(areas, allocator.Area{
			ID:           wa.ID,
			MaxCapacity:  wa.MaxCapacity,
			Assigned:     counts[wa.ID],
			Requirements: parse.ParseRequirements(wa.RoleRequirements),
		})
	}
	return areas, nil
}

// ClearAssignments removes every assignment of the event; released
// employees that were selected go back to available.
func (s *Service) ClearAssignments(ctx context.Context, eventID string) (int64, error) {
	if eventID == "" {
		return 0, apperr.Required("event_id")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	removed, err := s.store.ClearAssignments(ctx, eventID)
	if err != nil {
		return 0, s.fail(err)
	}
	s.logger.Info("assignments cleared", zap.String("event_id", eventID), zap.Int64("removed", removed))
	return removed, nil
}

// ResetEvent deletes every assignment of the event and returns every status
// except always-needed to not-selected.
func (s *Service) ResetEvent(ctx context.Context, eventID string) (store.ResetSummary, error) {
	if eventID == "" {
		return store.ResetSummary{}, apperr.Required("event_id")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	summary, err := s.store.ResetEvent(ctx, eventID)
	if err != nil {
		return store.ResetSummary{}, s.fail(err)
	}
	s.logger.Info("event reset",
		zap.String("event_id", eventID),
		zap.Int64("assignments_removed", summary.AssignmentsRemoved),
		zap.Int64("statuses_reset", summary.StatusesReset))
	return summary, nil
}
