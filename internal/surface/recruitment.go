package surface

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/model"
	"staffplan-backend/internal/store"
)

// Kinds carried by notifications the board publishes.
const (
	KindHeadcount    = "headcount"
	KindAlwaysNeeded = "always-needed"
	KindReset        = "reset"
)

const headcountKey = "config:headcount"

// RecruitmentBoard decides who is asked to work an event.
type RecruitmentBoard struct {
	*view
	event model.Event
}

// BoardRow is one employee on the recruitment board.
type BoardRow struct {
	Employee model.Employee `json:"employee"`
	Status   model.Status   `json:"status"`
	Pending  bool           `json:"pending"`
}

// BoardSnapshot is a consistent copy of the board.
type BoardSnapshot struct {
	Event                     model.Event          `json:"event"`
	Rows                      []BoardRow           `json:"rows"`
	Counts                    map[model.Status]int `json:"counts"`
	RequiredAfterAlwaysNeeded int                  `json:"required_after_always_needed"`
}

// NewRecruitmentBoard loads the board for eventID and subscribes it to the bus.
func NewRecruitmentBoard(ctx context.Context, deps Deps, eventID string) (*RecruitmentBoard, error) {
	if eventID == "" {
		return nil, apperr.Required("event_id")
	}
	b := &RecruitmentBoard{view: newView("recruitment", eventID, deps)}
	b.reload = b.Refresh
	if err := b.Refresh(ctx); err != nil {
		return nil, err
	}

	b.subscribe(func(n bus.Notification) { b.onStatusChanged(n, b.refreshOnNotify) }, bus.TopicStatusChanged)
	b.subscribe(func(bus.Notification) { b.refreshOnNotify() },
		bus.TopicConfigurationChanged, bus.TopicAssignmentsChanged, bus.TopicWorkAreasChanged)
	return b, nil
}

// Refresh re-reads the event and every status from the store.
func (b *RecruitmentBoard) Refresh(ctx context.Context) error {
	loadCtx, cancel := b.withTimeout(ctx)
	event, err := b.deps.Store.GetEvent(loadCtx, b.eventID)
	cancel()
	if err != nil {
		return err
	}
	if err := b.refreshStatuses(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.event = *event
	b.reapplyPending()
	return nil
}

// SetStatus is a direct user change of an employee's status. Changes the
// state machine reserves for assignments are refused before anything is
// applied.
func (b *RecruitmentBoard) SetStatus(ctx context.Context, employeeID string, status model.Status) error {
	if employeeID == "" {
		return apperr.Required("employee_id")
	}
	if !status.Valid() {
		return &apperr.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
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

// SetHeadcount changes the event's needed and requested headcount.
func (b *RecruitmentBoard) SetHeadcount(ctx context.Context, needed, requested int) error {
	if needed < 0 {
		return &apperr.ValidationError{Field: "headcount_needed", Reason: "must not be negative"}
	}
	if requested < 0 {
		return &apperr.ValidationError{Field: "headcount_requested", Reason: "must not be negative"}
	}

	apply := func() {
		b.event.HeadcountNeeded = needed
		b.event.HeadcountRequested = requested
	}
	change := &pendingChange{
		write: func(ctx context.Context) error {
			return b.deps.Store.UpdateEventHeadcount(ctx, b.eventID, needed, requested)
		},
		reapply: apply,
	}
	b.mu.Lock()
	apply()
	b.track(headcountKey, change)
	b.mu.Unlock()
	b.reportPending()

	return b.run(ctx, headcountKey, change, func() {
		b.deps.Bus.Publish(bus.TopicConfigurationChanged, bus.Notification{
			EventID: b.eventID,
			Kind:    KindHeadcount,
		})
	})
}

// ApplyAlwaysNeededDefaults gives every employee flagged always-needed the
// always-needed status in one batched write and returns how many changed.
func (b *RecruitmentBoard) ApplyAlwaysNeededDefaults(ctx context.Context) (int, error) {
	b.mu.Lock()
	var ids []string
	for _, e := range b.employees {
		if e.AlwaysNeeded && b.statusOf(e.ID) != model.StatusAlwaysNeeded {
			ids = append(ids, e.ID)
		}
	}
	b.mu.Unlock()
	if len(ids) == 0 {
		return 0, nil
	}

	writeCtx, cancel := b.withTimeout(ctx)
	err := b.deps.Store.SetStatuses(writeCtx, b.eventID, ids, model.StatusAlwaysNeeded)
	cancel()
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	for _, id := range ids {
		b.statuses[id] = model.StatusAlwaysNeeded
	}
	b.mu.Unlock()

	b.logger.Info("always-needed defaults applied", zap.Int("count", len(ids)))
	b.deps.Bus.Publish(bus.TopicStatusChanged, bus.Notification{
		EventID: b.eventID,
		Status:  model.StatusAlwaysNeeded,
		Kind:    KindAlwaysNeeded,
		Count:   len(ids),
	})
	return len(ids), nil
}

// ResetAll removes every assignment of the event and returns every
// non-always-needed status to not-selected.
func (b *RecruitmentBoard) ResetAll(ctx context.Context) (store.ResetSummary, error) {
	summary, err := b.deps.Planner.ResetEvent(ctx, b.eventID)
	if err != nil {
		return store.ResetSummary{}, err
	}

	b.deps.Cache.ClearEvent(b.eventID)
	b.mu.Lock()
	for key, p := range b.pending {
		if p.employeeID != "" {
			delete(b.pending, key)
		}
	}
	b.mu.Unlock()
	b.reportPending()

	if err := b.Refresh(ctx); err != nil {
		b.logger.Warn("refresh after reset failed", zap.Error(err))
	}
	b.deps.Bus.Publish(bus.TopicAssignmentsChanged, bus.Notification{
		EventID: b.eventID,
		Kind:    KindReset,
		Count:   int(summary.AssignmentsRemoved),
	})
	return summary, nil
}

// RequiredAfterAlwaysNeeded is the headcount still to recruit once the
// always-needed employees are counted in.
func (b *RecruitmentBoard) RequiredAfterAlwaysNeeded() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requiredAfterAlwaysNeeded()
}

func (b *RecruitmentBoard) requiredAfterAlwaysNeeded() int {
	always := 0
	for _, s := range b.statuses {
		if s == model.StatusAlwaysNeeded {
			always++
		}
	}
	return max(b.event.HeadcountNeeded-always, 0)
}

// Snapshot returns a copy of the board.
func (b *RecruitmentBoard) Snapshot() BoardSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BoardSnapshot{
		Event:                     b.event,
		Rows:                      make([]BoardRow, 0, len(b.employees)),
		Counts:                    make(map[model.Status]int),
		RequiredAfterAlwaysNeeded: b.requiredAfterAlwaysNeeded(),
	}
	for _, e := range b.employees {
		s := b.statusOf(e.ID)
		_, pending := b.pending[statusKey(e.ID)]
		snap.Rows = append(snap.Rows, BoardRow{Employee: e, Status: s, Pending: pending})
		snap.Counts[s]++
	}
	return snap
}
