package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/model"
)

// Store defines every durable operation the planner needs.
type Store interface {
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error)
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	UpdateEventHeadcount(ctx context.Context, eventID string, needed, requested int) error

	ListWorkAreas(ctx context.Context, eventID string, activeOnly bool) ([]model.WorkArea, error)
	GetWorkArea(ctx context.Context, id string) (*model.WorkArea, error)
	SaveWorkArea(ctx context.Context, area *model.WorkArea) error
	DeleteWorkArea(ctx context.Context, id string) ([]string, error)

	GetEmployeeEventStatuses(ctx context.Context, eventID string, statuses ...model.Status) ([]model.EmployeeEventStatus, error)
	UpsertEmployeeEventStatus(ctx context.Context, eventID, employeeID string, status model.Status) (*model.EmployeeEventStatus, error)
	SetStatuses(ctx context.Context, eventID string, employeeIDs []string, status model.Status) error

	ListAssignments(ctx context.Context, eventID string) ([]model.Assignment, error)
	CreateAssignments(ctx context.Context, eventID string, pairs []AssignmentPair) ([]model.Assignment, error)
	UpsertAssignment(ctx context.Context, eventID, employeeID, workAreaID string) (*model.Assignment, string, error)
	DeleteAssignment(ctx context.Context, eventID, employeeID string) (bool, error)
	DeleteAssignmentsForEvent(ctx context.Context, eventID string) (int64, error)

	ReplaceAssignments(ctx context.Context, eventID string, pairs []AssignmentPair) ([]model.Assignment, error)
	ClearAssignments(ctx context.Context, eventID string) (int64, error)
	ResetEvent(ctx context.Context, eventID string) (ResetSummary, error)

	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
	ListPushSubscriptions(ctx context.Context, eventID string) ([]model.PushSubscription, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

// ListEmployees returns employees ordered by name.
func (s *gormStore) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error) {
	q := s.db.WithContext(ctx).Model(&model.Employee{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if len(filter.Roles) > 0 {
		q = q.Where("role IN ?", filter.Roles)
	}
	if filter.AlwaysNeeded != nil {
		q = q.Where("always_needed = ?", *filter.AlwaysNeeded)
	}

	var employees []model.Employee
	if err := q.Order("name, id").Find(&employees).Error; err != nil {
		return nil, apperr.Store("list_employees", err)
	}
	return employees, nil
}

func (s *gormStore) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	var event model.Event
	if err := s.db.WithContext(ctx).First(&event, "id = ?", eventID).Error; err != nil {
		return nil, apperr.Store("get_event", notFound(err))
	}
	return &event, nil
}

func (s *gormStore) UpdateEventHeadcount(ctx context.Context, eventID string, needed, requested int) error {
	res := s.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ?", eventID).
		Updates(map[string]any{"headcount_needed": needed, "headcount_requested": requested})
	if res.Error != nil {
		return apperr.Store("update_event_headcount", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *gormStore) ListWorkAreas(ctx context.Context, eventID string, activeOnly bool) ([]model.WorkArea, error) {
	q := s.db.WithContext(ctx).Where("event_id = ?", eventID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var areas []model.WorkArea
	if err := q.Order("name, id").Find(&areas).Error; err != nil {
		return nil, apperr.Store("list_work_areas", err)
	}
	return areas, nil
}

func (s *gormStore) GetWorkArea(ctx context.Context, id string) (*model.WorkArea, error) {
	var area model.WorkArea
	if err := s.db.WithContext(ctx).First(&area, "id = ?", id).Error; err != nil {
		return nil, apperr.Store("get_work_area", notFound(err))
	}
	return &area, nil
}

// SaveWorkArea creates or updates an area. An ID with no stored row is
// created as given. Lowering maxCapacity below the number of assignments the
// area already holds is rejected.
func (s *gormStore) SaveWorkArea(ctx context.Context, area *model.WorkArea) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if area.ID == "" {
			return tx.Create(area).Error
		}

		var existing model.WorkArea
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", area.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(area).Error
		}
		if err != nil {
			return err
		}

		var current int64
		if err := tx.Model(&model.Assignment{}).Where("work_area_id = ?", area.ID).Count(&current).Error; err != nil {
			return err
		}
		if int(current) > area.MaxCapacity {
			return apperr.ErrCapacityExceeded
		}
		return tx.Save(area).Error
	})
	return apperr.Store("save_work_area", err)
}

// DeleteWorkArea removes an area with its assignments and returns the
// employees that were released. Their selected statuses revert to available.
func (s *gormStore) DeleteWorkArea(ctx context.Context, id string) ([]string, error) {
	var released []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var area model.WorkArea
		if err := tx.First(&area, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Model(&model.Assignment{}).Where("work_area_id = ?", id).Pluck("employee_id", &released).Error; err != nil {
			return err
		}
		if err := tx.Where("work_area_id = ?", id).Delete(&model.Assignment{}).Error; err != nil {
			return err
		}
		if err := s.revertSelected(tx, area.EventID, released); err != nil {
			return err
		}
		return tx.Delete(&area).Error
	})
	if err != nil {
		return nil, apperr.Store("delete_work_area", err)
	}
	return released, nil
}

func (s *gormStore) GetEmployeeEventStatuses(ctx context.Context, eventID string, statuses ...model.Status) ([]model.EmployeeEventStatus, error) {
	q := s.db.WithContext(ctx).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var records []model.EmployeeEventStatus
	if err := q.Order("employee_id").Find(&records).Error; err != nil {
		return nil, apperr.Store("get_statuses", err)
	}
	return records, nil
}

func (s *gormStore) UpsertEmployeeEventStatus(ctx context.Context, eventID, employeeID string, status model.Status) (*model.EmployeeEventStatus, error) {
	var record *model.EmployeeEventStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = s.upsertStatus(tx, eventID, employeeID, status)
		return err
	})
	if err != nil {
		return nil, apperr.Store("upsert_status", err)
	}
	return record, nil
}

func (s *gormStore) upsertStatus(tx *gorm.DB, eventID, employeeID string, status model.Status) (*model.EmployeeEventStatus, error) {
	record := model.EmployeeEventStatus{
		EventID:    eventID,
		EmployeeID: employeeID,
		Status:     status,
		UpdatedAt:  s.now(),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, err
	}

	var stored model.EmployeeEventStatus
	if err := tx.First(&stored, "event_id = ? AND employee_id = ?", eventID, employeeID).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// SetStatuses writes the same status for many employees in one transaction.
func (s *gormStore) SetStatuses(ctx context.Context, eventID string, employeeIDs []string, status model.Status) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range employeeIDs {
			if _, err := s.upsertStatus(tx, eventID, id, status); err != nil {
				return err
			}
		}
		return nil
	})
	return apperr.Store("set_statuses", err)
}

// markSelected moves the given employees to selected, leaving always-needed
// employees untouched.
func (s *gormStore) markSelected(tx *gorm.DB, eventID string, employeeIDs []string) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	var sticky []string
	if err := tx.Model(&model.EmployeeEventStatus{}).
		Where("event_id = ? AND employee_id IN ? AND status = ?", eventID, employeeIDs, model.StatusAlwaysNeeded).
		Pluck("employee_id", &sticky).Error; err != nil {
		return err
	}
	skip := make(map[string]bool, len(sticky))
	for _, id := range sticky {
		skip[id] = true
	}
	for _, id := range employeeIDs {
		if skip[id] {
			continue
		}
		if _, err := s.upsertStatus(tx, eventID, id, model.StatusSelected); err != nil {
			return err
		}
	}
	return nil
}

// revertSelected moves the given employees from selected back to available.
// Any other status is left alone.
func (s *gormStore) revertSelected(tx *gorm.DB, eventID string, employeeIDs []string) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	return tx.Model(&model.EmployeeEventStatus{}).
		Where("event_id = ? AND employee_id IN ? AND status = ?", eventID, employeeIDs, model.StatusSelected).
		Updates(map[string]any{"status": model.StatusAvailable, "updated_at": s.now()}).Error
}

// ListAssignments returns an event's assignments joined with employee and
// work area, newest first.
func (s *gormStore) ListAssignments(ctx context.Context, eventID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	if err := s.db.WithContext(ctx).
		Preload("Employee").
		Preload("WorkArea").
		Where("event_id = ?", eventID).
		Order("created_at DESC, id").
		Find(&assignments).Error; err != nil {
		return nil, apperr.Store("list_assignments", err)
	}
	return assignments, nil
}

func (s *gormStore) CreateAssignments(ctx context.Context, eventID string, pairs []AssignmentPair) ([]model.Assignment, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	rows := s.buildAssignments(eventID, pairs)
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, apperr.Store("create_assignments", err)
	}
	return rows, nil
}

func (s *gormStore) buildAssignments(eventID string, pairs []AssignmentPair) []model.Assignment {
	now := s.now()
	rows := make([]model.Assignment, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, model.Assignment{
			EmployeeID: p.EmployeeID,
			WorkAreaID: p.WorkAreaID,
			EventID:    eventID,
			CreatedAt:  now,
		})
	}
	return rows
}

// UpsertAssignment places an employee in a work area, replacing any prior
// assignment for the same event, and marks the employee selected in the same
// transaction. The area row stays locked until commit so concurrent writers
// count against the same capacity. It returns the joined assignment and the
// work area the employee left ("" if there was none).
func (s *gormStore) UpsertAssignment(ctx context.Context, eventID, employeeID, workAreaID string) (*model.Assignment, string, error) {
	var (
		assignmentID string
		previous     string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var area model.WorkArea
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&area, "id = ?", workAreaID).Error; err != nil {
			return notFound(err)
		}
		if area.EventID != eventID {
			return &apperr.ValidationError{Field: "work_area_id", Reason: "belongs to another event"}
		}
		if !area.IsActive {
			return &apperr.ValidationError{Field: "work_area_id", Reason: "work area is inactive"}
		}
		if err := tx.First(&model.Employee{}, "id = ?", employeeID).Error; err != nil {
			return notFound(err)
		}

		var existing model.Assignment
		err := tx.Where("event_id = ? AND employee_id = ?", eventID, employeeID).First(&existing).Error
		hasExisting := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if hasExisting && existing.WorkAreaID == workAreaID {
			assignmentID = existing.ID
			return s.markSelected(tx, eventID, []string{employeeID})
		}

		var current int64
		if err := tx.Model(&model.Assignment{}).Where("work_area_id = ?", workAreaID).Count(&current).Error; err != nil {
			return err
		}
		if int(current) >= area.MaxCapacity {
			return apperr.ErrCapacityExceeded
		}

		if hasExisting {
			previous = existing.WorkAreaID
			assignmentID = existing.ID
			if err := tx.Model(&existing).Updates(map[string]any{
				"work_area_id": workAreaID,
				"created_at":   s.now(),
			}).Error; err != nil {
				return err
			}
		} else {
			row := model.Assignment{EmployeeID: employeeID, WorkAreaID: workAreaID, EventID: eventID, CreatedAt: s.now()}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			assignmentID = row.ID
		}
		return s.markSelected(tx, eventID, []string{employeeID})
	})
	if err != nil {
		if apperr.IsValidation(err) {
			return nil, "", err
		}
		return nil, "", apperr.Store("upsert_assignment", err)
	}

	var joined model.Assignment
	if err := s.db.WithContext(ctx).Preload("Employee").Preload("WorkArea").First(&joined, "id = ?", assignmentID).Error; err != nil {
		return nil, "", apperr.Store("upsert_assignment", err)
	}
	return &joined, previous, nil
}

// DeleteAssignment removes the employee's assignment for the event and
// reports whether one existed. A removed employee who was selected goes back
// to available in the same transaction.
func (s *gormStore) DeleteAssignment(ctx context.Context, eventID, employeeID string) (bool, error) {
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ? AND employee_id = ?", eventID, employeeID).Delete(&model.Assignment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return s.revertSelected(tx, eventID, []string{employeeID})
	})
	if err != nil {
		return false, apperr.Store("delete_assignment", err)
	}
	return removed, nil
}

func (s *gormStore) DeleteAssignmentsForEvent(ctx context.Context, eventID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("event_id = ?", eventID).Delete(&model.Assignment{})
	if res.Error != nil {
		return 0, apperr.Store("delete_event_assignments", res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceAssignments swaps an event's assignments for pairs in one
// transaction. Newly placed employees become selected unless they are
// always-needed; employees that lost their place and were selected become
// available.
func (s *gormStore) ReplaceAssignments(ctx context.Context, eventID string, pairs []AssignmentPair) ([]model.Assignment, error) {
	var ids []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before []string
		if err := tx.Model(&model.Assignment{}).Where("event_id = ?", eventID).Pluck("employee_id", &before).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", eventID).Delete(&model.Assignment{}).Error; err != nil {
			return err
		}

		placed := make(map[string]bool, len(pairs))
		if len(pairs) > 0 {
			rows := s.buildAssignments(eventID, pairs)
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
			employees := make([]string, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.ID)
				placed[r.EmployeeID] = true
				employees = append(employees, r.EmployeeID)
			}
			if err := s.markSelected(tx, eventID, employees); err != nil {
				return err
			}
		}

		var released []string
		for _, id := range before {
			if !placed[id] {
				released = append(released, id)
			}
		}
		return s.revertSelected(tx, eventID, released)
	})
	if err != nil {
		return nil, apperr.Store("replace_assignments", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var inserted []model.Assignment
	if err := s.db.WithContext(ctx).Preload("Employee").Preload("WorkArea").
		Where("id IN ?", ids).Order("created_at DESC, id").Find(&inserted).Error; err != nil {
		return nil, apperr.Store("replace_assignments", err)
	}
	return inserted, nil
}

// ClearAssignments removes every assignment of an event and reverts the
// selected statuses of the released employees.
func (s *gormStore) ClearAssignments(ctx context.Context, eventID string) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var released []string
		if err := tx.Model(&model.Assignment{}).Where("event_id = ?", eventID).Pluck("employee_id", &released).Error; err != nil {
			return err
		}
		res := tx.Where("event_id = ?", eventID).Delete(&model.Assignment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return s.revertSelected(tx, eventID, released)
	})
	if err != nil {
		return 0, apperr.Store("clear_assignments", err)
	}
	return removed, nil
}

// ResetEvent deletes every assignment of an event and moves every status
// except always-needed back to not-selected.
func (s *gormStore) ResetEvent(ctx context.Context, eventID string) (ResetSummary, error) {
	var summary ResetSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ?", eventID).Delete(&model.Assignment{})
		if res.Error != nil {
			return res.Error
		}
		summary.AssignmentsRemoved = res.RowsAffected

		res = tx.Model(&model.EmployeeEventStatus{}).
			Where("event_id = ? AND status <> ?", eventID, model.StatusAlwaysNeeded).
			Updates(map[string]any{"status": model.StatusNotSelected, "updated_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		summary.StatusesReset = res.RowsAffected
		return nil
	})
	if err != nil {
		return ResetSummary{}, apperr.Store("reset_event", err)
	}
	return summary, nil
}

func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "event_id"}),
	}).Create(sub).Error
	return apperr.Store("save_push_subscription", err)
}

func (s *gormStore) GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, apperr.Store("get_push_subscription", notFound(err))
	}
	return &sub, nil
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	return apperr.Store("delete_push_subscription", err)
}

func (s *gormStore) ListPushSubscriptions(ctx context.Context, eventID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&subs).Error; err != nil {
		return nil, apperr.Store("list_push_subscriptions", err)
	}
	return subs, nil
}
