// Package surface implements the controllers behind the recruitment board,
// the work-area editor and the attendance board.
//
// Every single-item mutation follows the same protocol: apply to the local
// view, write the provisional status through the status cache, issue the
// durable write, then on success clear the cache entry and publish on the
// bus. A failed durable write is not rolled back; the change stays pending
// until RetryPending or a later reconciliation pass gets it through.
// Bulk operations skip the cache and publish one summarising notification.
package surface

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/metrics"
	"staffplan-backend/internal/model"
	"staffplan-backend/internal/planner"
	"staffplan-backend/internal/statuscache"
	"staffplan-backend/internal/store"
)

// Deps are the collaborators shared by every controller.
type Deps struct {
	Store        store.Store
	Planner      *planner.Service
	Cache        *statuscache.Cache
	Bus          *bus.Bus
	Metrics      metrics.Recorder
	Logger       *zap.Logger
	StoreTimeout time.Duration
}

func (d *Deps) defaults() {
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// pendingChange is a local change the store has not confirmed yet.
// employeeID and status are set when the change moves an employee's status;
// reapply restores any other part of the local view after a refresh.
type pendingChange struct {
	seq        uint64
	employeeID string
	status     model.Status
	write      func(ctx context.Context) error
	reapply    func()
}

// view is the state and write protocol shared by the controllers.
// Everything below mu is guarded by it.
type view struct {
	name    string
	eventID string
	deps    Deps
	logger  *zap.Logger

	// reload re-reads the controller's whole view.
	reload func(ctx context.Context) error

	mu        sync.Mutex
	employees []model.Employee
	statuses  map[string]model.Status
	pending   map[string]*pendingChange
	seq       uint64

	unsubscribe []func()
}

func newView(name, eventID string, deps Deps) *view {
	deps.defaults()
	return &view{
		name:     name,
		eventID:  eventID,
		deps:     deps,
		logger:   deps.Logger.With(zap.String("surface", name), zap.String("event_id", eventID)),
		statuses: make(map[string]model.Status),
		pending:  make(map[string]*pendingChange),
	}
}

func statusKey(employeeID string) string {
	return "status:" + employeeID
}

func (v *view) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.deps.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, v.deps.StoreTimeout)
}

// statusOf returns the view's status for an employee. Caller holds mu.
func (v *view) statusOf(employeeID string) model.Status {
	if s, ok := v.statuses[employeeID]; ok {
		return s
	}
	return model.StatusNotSelected
}

// Status returns the status the surface currently shows for an employee.
func (v *view) Status(employeeID string) model.Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.statusOf(employeeID)
}

// Pending reports how many local changes await confirmation.
func (v *view) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

// EventID is the event the surface is bound to.
func (v *view) EventID() string {
	return v.eventID
}

// Name identifies the surface in logs and metrics.
func (v *view) Name() string {
	return v.name
}

// track records a pending change under key. A newer change under the same
// key supersedes the older one. Caller holds mu.
func (v *view) track(key string, change *pendingChange) {
	v.seq++
	change.seq = v.seq
	v.pending[key] = change
}

// reapplyPending replays pending local changes over freshly loaded state,
// oldest first. Caller holds mu.
func (v *view) reapplyPending() {
	changes := make([]*pendingChange, 0, len(v.pending))
	for _, p := range v.pending {
		if p.reapply != nil {
			changes = append(changes, p)
		}
	}
	slices.SortFunc(changes, func(a, b *pendingChange) int {
		return cmp.Compare(a.seq, b.seq)
	})
	for _, p := range changes {
		p.reapply()
	}
}

// settle drops the pending entry for key if it is still the change with seq.
func (v *view) settle(key string, seq uint64) {
	v.mu.Lock()
	if p, ok := v.pending[key]; ok && p.seq == seq {
		delete(v.pending, key)
	}
	n := len(v.pending)
	v.mu.Unlock()
	v.deps.Metrics.SetPendingChanges(v.name, n)
}

func (v *view) reportPending() {
	v.mu.Lock()
	n := len(v.pending)
	v.mu.Unlock()
	v.deps.Metrics.SetPendingChanges(v.name, n)
}

// isRejection reports whether err is a definitive answer from the store
// rather than a failure to reach it. Rejected changes are not retried.
func isRejection(err error) bool {
	var se *apperr.StoreError
	if errors.As(err, &se) {
		return false
	}
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrCapacityExceeded) ||
		errors.Is(err, apperr.ErrTransitionNotAllowed) ||
		apperr.IsValidation(err)
}

// run performs the durable write of a tracked change. On success the pending
// marker is dropped and after runs. A store failure keeps the marker; a
// rejection drops it along with the provisional cache entry and reloads the
// view from the store.
func (v *view) run(ctx context.Context, key string, change *pendingChange, after func()) error {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	if err := change.write(ctx); err != nil {
		if !isRejection(err) {
			v.logger.Warn("durable write failed, keeping change pending", zap.String("key", key), zap.Error(err))
			return err
		}
		v.settle(key, change.seq)
		if change.employeeID != "" && change.status != "" {
			v.deps.Cache.Clear(v.eventID, change.employeeID)
		}
		v.logger.Info("change rejected by store", zap.String("key", key), zap.Error(err))
		if v.reload != nil {
			if rerr := v.reload(context.WithoutCancel(ctx)); rerr != nil {
				v.logger.Warn("reload after rejection failed", zap.Error(rerr))
			}
		}
		return err
	}
	v.settle(key, change.seq)
	if after != nil {
		after()
	}
	return nil
}

// applyStatus runs the single-change protocol for a status write.
func (v *view) applyStatus(ctx context.Context, employeeID string, status model.Status) error {
	key := statusKey(employeeID)
	var confirmed model.Status
	change := &pendingChange{
		employeeID: employeeID,
		status:     status,
		write: func(ctx context.Context) error {
			rec, err := v.deps.Store.UpsertEmployeeEventStatus(ctx, v.eventID, employeeID, status)
			if err != nil {
				return err
			}
			confirmed = rec.Status
			return nil
		},
	}

	v.mu.Lock()
	v.statuses[employeeID] = status
	v.track(key, change)
	v.mu.Unlock()

	v.deps.Cache.Put(v.eventID, employeeID, status)
	v.reportPending()

	return v.run(ctx, key, change, func() {
		v.confirmStatus(employeeID, confirmed)
		v.deps.Bus.Publish(bus.TopicStatusChanged, bus.Notification{
			EventID:    v.eventID,
			EmployeeID: employeeID,
			Status:     confirmed,
		})
	})
}

// markStatus applies a status change caused by another write (an assignment)
// to the view and the cache. The caller owns the durable write.
func (v *view) markStatus(employeeID string, status model.Status) {
	v.mu.Lock()
	v.statuses[employeeID] = status
	v.mu.Unlock()
	v.deps.Cache.Put(v.eventID, employeeID, status)
}

// confirmStatus records a store-confirmed status and clears the cache entry,
// unless a newer provisional value has been written since.
func (v *view) confirmStatus(employeeID string, status model.Status) {
	v.mu.Lock()
	if _, newer := v.pending[statusKey(employeeID)]; !newer {
		v.statuses[employeeID] = status
	}
	v.mu.Unlock()

	if cached, ok := v.deps.Cache.Get(v.eventID, employeeID); ok && cached != status {
		return
	}
	v.deps.Cache.Clear(v.eventID, employeeID)
}

// refreshStatuses reloads employees and statuses from the store, then
// overlays provisional cache entries and this view's pending changes.
func (v *view) refreshStatuses(ctx context.Context) error {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	employees, err := v.deps.Store.ListEmployees(ctx, store.EmployeeFilter{})
	if err != nil {
		return err
	}
	records, err := v.deps.Store.GetEmployeeEventStatuses(ctx, v.eventID)
	if err != nil {
		return err
	}

	statuses := make(map[string]model.Status, len(records))
	for _, r := range records {
		statuses[r.EmployeeID] = r.Status
	}
	for employeeID, s := range v.deps.Cache.Entries(v.eventID) {
		statuses[employeeID] = s
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.pending {
		if p.employeeID != "" && p.status != "" {
			statuses[p.employeeID] = p.status
		}
	}
	v.employees = employees
	v.statuses = statuses
	return nil
}

// RetryPending re-attempts every unconfirmed change.
func (v *view) RetryPending(ctx context.Context) error {
	type item struct {
		key    string
		change pendingChange
	}
	v.mu.Lock()
	items := make([]item, 0, len(v.pending))
	for k, p := range v.pending {
		items = append(items, item{key: k, change: *p})
	}
	v.mu.Unlock()

	var errs []error
	for _, it := range items {
		change := it.change
		after := func() {}
		if change.employeeID != "" && change.status != "" {
			after = func() {
				v.confirmStatus(change.employeeID, change.status)
				v.deps.Bus.Publish(bus.TopicStatusChanged, bus.Notification{
					EventID:    v.eventID,
					EmployeeID: change.employeeID,
					Status:     change.status,
				})
			}
		}
		if err := v.run(ctx, it.key, &change, after); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// subscribe registers handler for the given topics, filtered to this event.
func (v *view) subscribe(handler bus.Handler, topics ...bus.Topic) {
	for _, topic := range topics {
		unsub := v.deps.Bus.Subscribe(topic, func(n bus.Notification) {
			if n.EventID != v.eventID {
				return
			}
			handler(n)
		})
		v.unsubscribe = append(v.unsubscribe, unsub)
	}
}

// Close detaches the surface from the bus.
func (v *view) Close() {
	for _, unsub := range v.unsubscribe {
		unsub()
	}
	v.unsubscribe = nil
}

// onStatusChanged applies a single-employee status notification directly and
// asks for a full refresh for anything broader.
func (v *view) onStatusChanged(n bus.Notification, refresh func()) {
	if n.EmployeeID == "" || n.Status == "" {
		refresh()
		return
	}
	v.mu.Lock()
	if _, mine := v.pending[statusKey(n.EmployeeID)]; !mine {
		v.statuses[n.EmployeeID] = n.Status
	}
	v.mu.Unlock()
}

// refreshOnNotify is the bus-driven reload; failures are logged and left to
// the next reconciliation pass.
func (v *view) refreshOnNotify() {
	if err := v.reload(context.Background()); err != nil {
		v.logger.Warn("refresh after notification failed", zap.Error(err))
	}
}
