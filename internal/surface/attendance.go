package surface

import (
	"context"
	"fmt"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/model"
)

// AttendanceBoard tracks who actually turns up for the employees placed at
// an event.
type AttendanceBoard struct {
	*view
	areas       []model.WorkArea
	assignments []model.Assignment
}

// RosterEntry is one employee on the roster.
type RosterEntry struct {
	Employee model.Employee `json:"employee"`
	Status   model.Status   `json:"status"`
}

// RosterArea groups the roster by work area.
type RosterArea struct {
	Area    model.WorkArea `json:"area"`
	Entries []RosterEntry  `json:"entries"`
}

// Roster is the attendance view of an event. Unplaced lists selected or
// always-needed employees without an assignment.
type Roster struct {
	Areas    []RosterArea  `json:"areas"`
	Unplaced []RosterEntry `json:"unplaced"`
}

// NewAttendanceBoard loads the board for eventID and subscribes it to the bus.
func NewAttendanceBoard(ctx context.Context, deps Deps, eventID string) (*AttendanceBoard, error) {
	if eventID == "" {
		return nil, apperr.Required("event_id")
	}
	b := &AttendanceBoard{view: newView("attendance", eventID, deps)}
	b.reload = b.Refresh
	if err := b.Refresh(ctx); err != nil {
		return nil, err
	}

	b.subscribe(func(n bus.Notification) { b.onStatusChanged(n, b.refreshOnNotify) }, bus.TopicStatusChanged)
	b.subscribe(func(bus.Notification) { b.refreshOnNotify() }, bus.TopicWorkAreasChanged, bus.TopicAssignmentsChanged)
	return b, nil
}

// Refresh re-reads areas, assignments and statuses from the store.
func (b *AttendanceBoard) Refresh(ctx context.Context) error {
	loadCtx, cancel := b.withTimeout(ctx)
	defer cancel()

	areas, err := b.deps.Store.ListWorkAreas(loadCtx, b.eventID, false)
	if err != nil {
		return err
	}
	assignments, err := b.deps.Store.ListAssignments(loadCtx, b.eventID)
	if err != nil {
		return err
	}
	if err := b.refreshStatuses(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.areas = areas
	b.assignments = assignments
	b.reapplyPending()
	return nil
}

// Roster returns the employees placed at the event grouped by work area.
func (b *AttendanceBoard) Roster() Roster {
	b.mu.Lock()
	defer b.mu.Unlock()

	byID := make(map[string]model.Employee, len(b.employees))
	for _, e := range b.employees {
		byID[e.ID] = e
	}

	placed := make(map[string]bool, len(b.assignments))
	roster := Roster{Areas: make([]RosterArea, 0, len(b.areas)), Unplaced: []RosterEntry{}}
	for _, area := range b.areas {
		ra := RosterArea{Area: area, Entries: []RosterEntry{}}
		for _, a := range b.assignments {
			if a.WorkAreaID != area.ID {
				continue
			}
			placed[a.EmployeeID] = true
			ra.Entries = append(ra.Entries, RosterEntry{Employee: byID[a.EmployeeID], Status: b.statusOf(a.EmployeeID)})
		}
		roster.Areas = append(roster.Areas, ra)
	}

	for _, e := range b.employees {
		s := b.statusOf(e.ID)
		if placed[e.ID] || (s != model.StatusSelected && s != model.StatusAlwaysNeeded) {
			continue
		}
		roster.Unplaced = append(roster.Unplaced, RosterEntry{Employee: e, Status: s})
	}
	return roster
}

// MarkUnavailable records that an employee cannot work the event.
func (b *AttendanceBoard) MarkUnavailable(ctx context.Context, employeeID string) error {
	return b.mark(ctx, employeeID, model.StatusUnavailable)
}

// MarkAvailable takes back an earlier MarkUnavailable.
func (b *AttendanceBoard) MarkAvailable(ctx context.Context, employeeID string) error {
	return b.mark(ctx, employeeID, model.StatusAvailable)
}

func (b *AttendanceBoard) mark(ctx context.Context, employeeID string, status model.Status) error {
	if employeeID == "" {
		return apperr.Required("employee_id")
	}
	current := b.Status(employeeID)
	if current == status {
		return nil
	}
	if !model.CanTransition(current, status) {
		return fmt.Errorf("%s -> %s: %w", current, status, apperr.ErrTransitionNotAllowed)
	}
	return b.applyStatus(ctx, employeeID, status)
}
