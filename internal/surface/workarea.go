package surface

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/model"
	"staffplan-backend/internal/planner"
)

// Kinds carried by notifications the editor publishes.
const (
	KindAreaSaved   = "saved"
	KindAreaDeleted = "deleted"
	KindAssign      = "assign"
	KindUnassign    = "unassign"
	KindAutoAssign  = "auto-assign"
	KindClear       = "clear"
)

// WorkAreaEditor edits an event's work areas and who is placed in them.
type WorkAreaEditor struct {
	*view
	areas       []model.WorkArea
	assignments []model.Assignment
}

// AreaView is a work area with its live headcount.
type AreaView struct {
	model.WorkArea
	CurrentAssigned int      `json:"current_assigned"`
	EmployeeIDs     []string `json:"employee_ids"`
}

// NewWorkAreaEditor loads the editor for eventID and subscribes it to the bus.
func NewWorkAreaEditor(ctx context.Context, deps Deps, eventID string) (*WorkAreaEditor, error) {
	if eventID == "" {
		return nil, apperr.Required("event_id")
	}
	e := &WorkAreaEditor{view: newView("work-areas", eventID, deps)}
	e.reload = e.Refresh
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}

	e.subscribe(func(n bus.Notification) { e.onStatusChanged(n, e.refreshOnNotify) }, bus.TopicStatusChanged)
	e.subscribe(func(bus.Notification) { e.refreshOnNotify() },
		bus.TopicWorkAreasChanged, bus.TopicAssignmentsChanged, bus.TopicConfigurationChanged)
	return e, nil
}

// Refresh re-reads areas, assignments and statuses from the store.
func (e *WorkAreaEditor) Refresh(ctx context.Context) error {
	loadCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	areas, err := e.deps.Store.ListWorkAreas(loadCtx, e.eventID, false)
	if err != nil {
		return err
	}
	assignments, err := e.deps.Store.ListAssignments(loadCtx, e.eventID)
	if err != nil {
		return err
	}
	if err := e.refreshStatuses(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.areas = areas
	e.assignments = assignments
	e.reapplyPending()
	return nil
}

// Areas returns every work area of the event with its live headcount.
func (e *WorkAreaEditor) Areas() []AreaView {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]AreaView, 0, len(e.areas))
	for _, a := range e.areas {
		av := AreaView{WorkArea: a, EmployeeIDs: []string{}}
		for _, as := range e.assignments {
			if as.WorkAreaID == a.ID {
				av.CurrentAssigned++
				av.EmployeeIDs = append(av.EmployeeIDs, as.EmployeeID)
			}
		}
		out = append(out, av)
	}
	return out
}

// Assignments returns a copy of the editor's assignments.
func (e *WorkAreaEditor) Assignments() []model.Assignment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Assignment, len(e.assignments))
	copy(out, e.assignments)
	return out
}

// The helpers below expect mu to be held.

func (e *WorkAreaEditor) findArea(id string) (model.WorkArea, bool) {
	for _, a := range e.areas {
		if a.ID == id {
			return a, true
		}
	}
	return model.WorkArea{}, false
}

func (e *WorkAreaEditor) countIn(areaID, except string) int {
	n := 0
	for _, a := range e.assignments {
		if a.WorkAreaID == areaID && a.EmployeeID != except {
			n++
		}
	}
	return n
}

func (e *WorkAreaEditor) putArea(area model.WorkArea) {
	for i := range e.areas {
		if e.areas[i].ID == area.ID {
			e.areas[i] = area
			return
		}
	}
	e.areas = append(e.areas, area)
}

func (e *WorkAreaEditor) removeArea(id string) []string {
	areas := e.areas[:0]
	for _, a := range e.areas {
		if a.ID != id {
			areas = append(areas, a)
		}
	}
	e.areas = areas

	var released []string
	assignments := e.assignments[:0]
	for _, a := range e.assignments {
		if a.WorkAreaID == id {
			released = append(released, a.EmployeeID)
			continue
		}
		assignments = append(assignments, a)
	}
	e.assignments = assignments
	return released
}

func (e *WorkAreaEditor) putAssignment(a model.Assignment) {
	for i := range e.assignments {
		if e.assignments[i].EmployeeID == a.EmployeeID {
			e.assignments[i] = a
			return
		}
	}
	e.assignments = append([]model.Assignment{a}, e.assignments...)
}

func (e *WorkAreaEditor) removeAssignment(employeeID string) bool {
	for i := range e.assignments {
		if e.assignments[i].EmployeeID == employeeID {
			e.assignments = append(e.assignments[:i], e.assignments[i+1:]...)
			return true
		}
	}
	return false
}

// SaveArea creates or updates a work area. New areas get their id up front so
// the local view and the store agree on it.
func (e *WorkAreaEditor) SaveArea(ctx context.Context, area model.WorkArea) (model.WorkArea, error) {
	switch {
	case area.EventID != "" && area.EventID != e.eventID:
		return model.WorkArea{}, &apperr.ValidationError{Field: "event_id", Reason: "does not match the editor's event"}
	case area.Name == "":
		return model.WorkArea{}, apperr.Required("name")
	case area.MaxCapacity <= 0:
		return model.WorkArea{}, &apperr.ValidationError{Field: "max_capacity", Reason: "must be positive"}
	}
	area.EventID = e.eventID
	if area.ID == "" {
		area.ID = uuid.NewString()
	}

	e.mu.Lock()
	if n := e.countIn(area.ID, ""); n > area.MaxCapacity {
		e.mu.Unlock()
		return model.WorkArea{}, apperr.ErrCapacityExceeded
	}
	apply := func() { e.putArea(area) }
	key := "area:" + area.ID
	change := &pendingChange{
		write: func(ctx context.Context) error {
			stored := area
			return e.deps.Store.SaveWorkArea(ctx, &stored)
		},
		reapply: apply,
	}
	apply()
	e.track(key, change)
	e.mu.Unlock()
	e.reportPending()

	err := e.run(ctx, key, change, func() {
		e.deps.Bus.Publish(bus.TopicWorkAreasChanged, bus.Notification{EventID: e.eventID, Kind: KindAreaSaved})
	})
	return area, err
}

// SetAreaActive switches a work area in or out of assignment consideration.
func (e *WorkAreaEditor) SetAreaActive(ctx context.Context, areaID string, active bool) error {
	e.mu.Lock()
	area, ok := e.findArea(areaID)
	e.mu.Unlock()
	if !ok {
		return apperr.ErrNotFound
	}
	area.IsActive = active
	_, err := e.SaveArea(ctx, area)
	return err
}

// DeleteArea removes a work area together with its assignments. Released
// employees that were selected go back to available.
func (e *WorkAreaEditor) DeleteArea(ctx context.Context, areaID string) error {
	e.mu.Lock()
	if _, ok := e.findArea(areaID); !ok {
		e.mu.Unlock()
		return apperr.ErrNotFound
	}
	var provisional []string
	for _, a := range e.assignments {
		if a.WorkAreaID == areaID && e.statusOf(a.EmployeeID) == model.StatusSelected {
			provisional = append(provisional, a.EmployeeID)
		}
	}
	var released []string
	apply := func() {
		released = e.removeArea(areaID)
		for _, id := range provisional {
			e.statuses[id] = model.StatusAvailable
		}
	}
	key := "area:" + areaID
	change := &pendingChange{
		write: func(ctx context.Context) error {
			_, err := e.deps.Store.DeleteWorkArea(ctx, areaID)
			return err
		},
		reapply: apply,
	}
	apply()
	e.track(key, change)
	e.mu.Unlock()

	for _, id := range provisional {
		e.deps.Cache.Put(e.eventID, id, model.StatusAvailable)
	}
	e.reportPending()

	return e.run(ctx, key, change, func() {
		for _, id := range provisional {
			e.confirmStatus(id, model.StatusAvailable)
		}
		e.deps.Bus.Publish(bus.TopicWorkAreasChanged, bus.Notification{
			EventID: e.eventID,
			Kind:    KindAreaDeleted,
			Count:   len(released),
		})
	})
}

// Assign places an employee in a work area, moving them out of any other
// area of the event.
func (e *WorkAreaEditor) Assign(ctx context.Context, employeeID, areaID string) error {
	switch {
	case employeeID == "":
		return apperr.Required("employee_id")
	case areaID == "":
		return apperr.Required("work_area_id")
	}

	e.mu.Lock()
	area, ok := e.findArea(areaID)
	if !ok {
		e.mu.Unlock()
		return apperr.ErrNotFound
	}
	if !area.IsActive {
		e.mu.Unlock()
		return &apperr.ValidationError{Field: "work_area_id", Reason: "work area is inactive"}
	}
	if e.countIn(areaID, employeeID) >= area.MaxCapacity {
		e.mu.Unlock()
		return apperr.ErrCapacityExceeded
	}

	status := model.StatusSelected
	if e.statusOf(employeeID) == model.StatusAlwaysNeeded {
		status = model.StatusAlwaysNeeded
	}
	apply := func() {
		e.putAssignment(model.Assignment{
			EmployeeID: employeeID,
			WorkAreaID: areaID,
			EventID:    e.eventID,
			CreatedAt:  time.Now().UTC(),
		})
		e.statuses[employeeID] = status
	}
	key := "assign:" + employeeID
	var stored *model.Assignment
	change := &pendingChange{
		employeeID: employeeID,
		status:     status,
		write: func(ctx context.Context) error {
			a, _, err := e.deps.Planner.Assign(ctx, e.eventID, employeeID, areaID)
			stored = a
			return err
		},
		reapply: apply,
	}
	apply()
	e.track(key, change)
	e.mu.Unlock()

	e.deps.Cache.Put(e.eventID, employeeID, status)
	e.reportPending()

	return e.run(ctx, key, change, func() {
		if stored != nil {
			e.mu.Lock()
			e.putAssignment(*stored)
			e.mu.Unlock()
		}
		e.confirmStatus(employeeID, status)
		e.deps.Bus.Publish(bus.TopicAssignmentsChanged, bus.Notification{
			EventID:    e.eventID,
			EmployeeID: employeeID,
			Kind:       KindAssign,
			Count:      1,
		})
		e.deps.Bus.Publish(bus.TopicStatusChanged, bus.Notification{
			EventID:    e.eventID,
			EmployeeID: employeeID,
			Status:     status,
		})
	})
}

// Unassign removes an employee from their work area. Unassigning an employee
// without an assignment succeeds without publishing anything.
func (e *WorkAreaEditor) Unassign(ctx context.Context, employeeID string) error {
	if employeeID == "" {
		return apperr.Required("employee_id")
	}

	e.mu.Lock()
	var status model.Status
	if e.statusOf(employeeID) == model.StatusSelected {
		status = model.StatusAvailable
	}
	apply := func() {
		e.removeAssignment(employeeID)
		if status != "" {
			e.statuses[employeeID] = status
		}
	}
	key := "assign:" + employeeID
	var removed bool
	change := &pendingChange{
		employeeID: employeeID,
		status:     status,
		write: func(ctx context.Context) error {
			var err error
			removed, err = e.deps.Planner.Unassign(ctx, e.eventID, employeeID)
			return err
		},
		reapply: apply,
	}
	apply()
	e.track(key, change)
	e.mu.Unlock()

	if status != "" {
		e.deps.Cache.Put(e.eventID, employeeID, status)
	}
	e.reportPending()

	return e.run(ctx, key, change, func() {
		if !removed {
			// Nothing was assigned, so the store kept the status as it was.
			if status != "" {
				e.deps.Cache.Clear(e.eventID, employeeID)
				e.mu.Lock()
				e.statuses[employeeID] = model.StatusSelected
				e.mu.Unlock()
			}
			return
		}
		if status != "" {
			e.confirmStatus(employeeID, status)
		}
		e.deps.Bus.Publish(bus.TopicAssignmentsChanged, bus.Notification{
			EventID:    e.eventID,
			EmployeeID: employeeID,
			Kind:       KindUnassign,
			Count:      1,
		})
		if status != "" {
			e.deps.Bus.Publish(bus.TopicStatusChanged, bus.Notification{
				EventID:    e.eventID,
				EmployeeID: employeeID,
				Status:     status,
			})
		}
	})
}

// AutoAssign recomputes the event's assignments in one batch. When there is
// nothing to do the result carries the reason and nothing is published.
func (e *WorkAreaEditor) AutoAssign(ctx context.Context, employeeIDs []string) (*planner.AutoAssignResult, error) {
	result, err := e.deps.Planner.AutoAssign(ctx, e.eventID, employeeIDs)
	if err != nil {
		return nil, err
	}
	if result.Reason != "" {
		return result, nil
	}

	for _, a := range result.Assignments {
		e.deps.Cache.Clear(e.eventID, a.EmployeeID)
	}
	for _, id := range result.Unassigned {
		e.deps.Cache.Clear(e.eventID, id)
	}
	e.bulkDone(ctx, KindAutoAssign, len(result.Assignments))
	return result, nil
}

// ClearAll removes every assignment of the event in one batch.
func (e *WorkAreaEditor) ClearAll(ctx context.Context) (int64, error) {
	removed, err := e.deps.Planner.ClearAssignments(ctx, e.eventID)
	if err != nil {
		return 0, err
	}
	e.bulkDone(ctx, KindClear, int(removed))
	return removed, nil
}

func (e *WorkAreaEditor) bulkDone(ctx context.Context, kind string, count int) {
	if err := e.Refresh(ctx); err != nil {
		e.logger.Warn("refresh after bulk change failed", zap.String("kind", kind), zap.Error(err))
	}
	e.deps.Bus.Publish(bus.TopicAssignmentsChanged, bus.Notification{
		EventID: e.eventID,
		Kind:    kind,
		Count:   count,
	})
}
