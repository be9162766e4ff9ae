package surface

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"staffplan-backend/internal/apperr"
)

// Set is the three controllers of one event.
type Set struct {
	Recruitment *RecruitmentBoard
	WorkAreas   *WorkAreaEditor
	Attendance  *AttendanceBoard
}

func (s *Set) close() {
	s.Recruitment.Close()
	s.WorkAreas.Close()
	s.Attendance.Close()
}

// Controller is what the reconciler needs from a surface.
type Controller interface {
	Name() string
	EventID() string
	Refresh(ctx context.Context) error
	RetryPending(ctx context.Context) error
	Pending() int
}

// Registry opens controllers per event on first use and keeps them alive
// so their pending changes survive between requests.
type Registry struct {
	deps Deps

	mu   sync.Mutex
	sets map[string]*Set
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	deps.defaults()
	return &Registry{deps: deps, sets: make(map[string]*Set)}
}

// Get returns the controllers for eventID, opening them if needed.
// Unknown events yield apperr.ErrNotFound.
func (r *Registry) Get(ctx context.Context, eventID string) (*Set, error) {
	if eventID == "" {
		return nil, apperr.Required("event_id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.sets[eventID]; ok {
		return set, nil
	}

	if _, err := r.deps.Store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	recruitment, err := NewRecruitmentBoard(ctx, r.deps, eventID)
	if err != nil {
		return nil, err
	}
	editor, err := NewWorkAreaEditor(ctx, r.deps, eventID)
	if err != nil {
		recruitment.Close()
		return nil, err
	}
	attendance, err := NewAttendanceBoard(ctx, r.deps, eventID)
	if err != nil {
		recruitment.Close()
		editor.Close()
		return nil, err
	}

	set := &Set{Recruitment: recruitment, WorkAreas: editor, Attendance: attendance}
	r.sets[eventID] = set
	r.deps.Logger.Info("surfaces opened", zap.String("event_id", eventID))
	return set, nil
}

// Controllers lists every open controller.
func (r *Registry) Controllers() []Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Controller, 0, 3*len(r.sets))
	for _, set := range r.sets {
		out = append(out, set.Recruitment, set.WorkAreas, set.Attendance)
	}
	return out
}

// Close detaches every controller from the bus.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, set := range r.sets {
		set.close()
		delete(r.sets, id)
	}
}
