package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/db"
	"staffplan-backend/internal/model"
)

// Any matches any driver argument.
type Any struct{}

func (a Any) Match(v driver.Value) bool {
	return true
}

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// newTestDB opens a private in-memory sqlite database with every table migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

type fixture struct {
	store     Store
	db        *gorm.DB
	event     model.Event
	employees map[string]model.Employee
	areas     map[string]model.WorkArea
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gormDB := newTestDB(t)
	f := &fixture{
		store:     NewGormStore(gormDB),
		db:        gormDB,
		event:     model.Event{Name: "Sommerfest", Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
		employees: map[string]model.Employee{},
		areas:     map[string]model.WorkArea{},
	}
	require.NoError(t, gormDB.Create(&f.event).Error)
	return f
}

func (f *fixture) employee(t *testing.T, name string, role model.Role, alwaysNeeded bool) model.Employee {
	t.Helper()
	e := model.Employee{Name: name, Role: role, AlwaysNeeded: alwaysNeeded}
	require.NoError(t, f.db.Create(&e).Error)
	f.employees[name] = e
	return e
}

func (f *fixture) area(t *testing.T, name string, capacity int, active bool) model.WorkArea {
	t.Helper()
	a := model.WorkArea{EventID: f.event.ID, Name: name, MaxCapacity: capacity, IsActive: active}
	require.NoError(t, f.store.SaveWorkArea(context.Background(), &a))
	f.areas[name] = a
	return a
}

func (f *fixture) status(t *testing.T, employeeID string) model.Status {
	t.Helper()
	var rec model.EmployeeEventStatus
	err := f.db.First(&rec, "event_id = ? AND employee_id = ?", f.event.ID, employeeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.StatusNotSelected
	}
	require.NoError(t, err)
	return rec.Status
}

func TestGormStore_ListEmployees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.employee(t, "Anna", model.RoleManager, true)
	f.employee(t, "Ben", model.RoleEssen, false)
	carl := f.employee(t, "Carl", model.RoleEssen, false)

	yes := true
	testCases := []struct {
		name   string
		filter EmployeeFilter
		want   []string
	}{
		{"all ordered by name", EmployeeFilter{}, []string{"Anna", "Ben", "Carl"}},
		{"by id", EmployeeFilter{IDs: []string{carl.ID, anna.ID}}, []string{"Anna", "Carl"}},
		{"by role", EmployeeFilter{Roles: []model.Role{model.RoleEssen}}, []string{"Ben", "Carl"}},
		{"always needed", EmployeeFilter{AlwaysNeeded: &yes}, []string{"Anna"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.store.ListEmployees(ctx, tc.filter)
			require.NoError(t, err)
			names := make([]string, len(got))
			for i, e := range got {
				names[i] = e.Name
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestGormStore_UpdateEventHeadcount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.UpdateEventHeadcount(ctx, f.event.ID, 12, 15))
	event, err := f.store.GetEvent(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, event.HeadcountNeeded)
	assert.Equal(t, 15, event.HeadcountRequested)

	err = f.store.UpdateEventHeadcount(ctx, "missing", 1, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.store.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGormStore_WorkAreas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 2, true)
	f.area(t, "Lager", 5, false)

	all, err := f.store.ListWorkAreas(ctx, f.event.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.store.ListWorkAreas(ctx, f.event.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bar", active[0].Name)

	bar.RoleRequirements = map[string]any{"verkauf": 2}
	require.NoError(t, f.store.SaveWorkArea(ctx, &bar))
	got, err := f.store.GetWorkArea(ctx, bar.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.RoleRequirements["verkauf"])

	_, err = f.store.GetWorkArea(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGormStore_SaveWorkArea_RejectsCapacityBelowAssigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 2, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)
	b := f.employee(t, "Ben", model.RoleVerkauf, false)

	_, err := f.store.CreateAssignments(ctx, f.event.ID, []AssignmentPair{
		{EmployeeID: a.ID, WorkAreaID: bar.ID},
		{EmployeeID: b.ID, WorkAreaID: bar.ID},
	})
	require.NoError(t, err)

	bar.MaxCapacity = 1
	err = f.store.SaveWorkArea(ctx, &bar)
	assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)

	got, err := f.store.GetWorkArea(ctx, bar.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MaxCapacity)
}

func TestGormStore_DeleteWorkArea_ReleasesEmployees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 3, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)
	b := f.employee(t, "Ben", model.RoleVerkauf, false)

	_, _, err := f.store.UpsertAssignment(ctx, f.event.ID, a.ID, bar.ID)
	require.NoError(t, err)
	_, _, err = f.store.UpsertAssignment(ctx, f.event.ID, b.ID, bar.ID)
	require.NoError(t, err)
	_, err = f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, a.ID, model.StatusSelected)
	require.NoError(t, err)
	_, err = f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, b.ID, model.StatusUnavailable)
	require.NoError(t, err)

	released, err := f.store.DeleteWorkArea(ctx, bar.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, released)

	assert.Equal(t, model.StatusAvailable, f.status(t, a.ID))
	assert.Equal(t, model.StatusUnavailable, f.status(t, b.ID))

	remaining, err := f.store.ListAssignments(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = f.store.DeleteWorkArea(ctx, bar.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGormStore_UpsertEmployeeEventStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.employee(t, "Anna", model.RoleVerkauf, false)

	first, err := f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, a.ID, model.StatusAvailable)
	require.NoError(t, err)
	second, err := f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, a.ID, model.StatusUnavailable)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.StatusUnavailable, second.Status)

	var count int64
	require.NoError(t, f.db.Model(&model.EmployeeEventStatus{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	filtered, err := f.store.GetEmployeeEventStatuses(ctx, f.event.ID, model.StatusAvailable)
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestGormStore_UpsertAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 1, true)
	kasse := f.area(t, "Kasse", 1, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)
	b := f.employee(t, "Ben", model.RoleVerkauf, false)

	created, previous, err := f.store.UpsertAssignment(ctx, f.event.ID, a.ID, bar.ID)
	require.NoError(t, err)
	assert.Empty(t, previous)
	require.NotNil(t, created.Employee)
	require.NotNil(t, created.WorkArea)
	assert.Equal(t, "Anna", created.Employee.Name)
	assert.Equal(t, "Bar", created.WorkArea.Name)

	again, _, err := f.store.UpsertAssignment(ctx, f.event.ID, a.ID, bar.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	_, _, err = f.store.UpsertAssignment(ctx, f.event.ID, b.ID, bar.ID)
	assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)

	moved, previous, err := f.store.UpsertAssignment(ctx, f.event.ID, a.ID, kasse.ID)
	require.NoError(t, err)
	assert.Equal(t, bar.ID, previous)
	assert.Equal(t, created.ID, moved.ID)
	assert.Equal(t, kasse.ID, moved.WorkAreaID)

	all, err := f.store.ListAssignments(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, _, err = f.store.UpsertAssignment(ctx, f.event.ID, b.ID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	other := model.Event{Name: "Herbstfest", Date: time.Now()}
	require.NoError(t, f.db.Create(&other).Error)
	_, _, err = f.store.UpsertAssignment(ctx, other.ID, b.ID, bar.ID)
	assert.True(t, apperr.IsValidation(err))
}

func TestGormStore_UpsertAssignment_Rejects(t *testing.T) {
	testCases := []struct {
		name     string
		employee func(f *fixture) string
		area     func(f *fixture) string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "inactive area",
			employee: func(f *fixture) string { return f.employees["Anna"].ID },
			area:     func(f *fixture) string { return f.areas["Lager"].ID },
			check: func(t *testing.T, err error) {
				var ve *apperr.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "work_area_id", ve.Field)
			},
		},
		{
			name:     "unknown employee",
			employee: func(f *fixture) string { return uuid.NewString() },
			area:     func(f *fixture) string { return f.areas["Bar"].ID },
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperr.ErrNotFound)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.area(t, "Bar", 3, true)
			f.area(t, "Lager", 3, false)
			anna := f.employee(t, "Anna", model.RoleVerkauf, false)
			_, err := f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, anna.ID, model.StatusAvailable)
			require.NoError(t, err)

			_, _, err = f.store.UpsertAssignment(ctx, f.event.ID, tc.employee(f), tc.area(f))
			tc.check(t, err)

			all, err := f.store.ListAssignments(ctx, f.event.ID)
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Equal(t, model.StatusAvailable, f.status(t, anna.ID))
		})
	}
}

func TestGormStore_DeleteAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 1, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)

	_, _, err := f.store.UpsertAssignment(ctx, f.event.ID, a.ID, bar.ID)
	require.NoError(t, err)

	removed, err := f.store.DeleteAssignment(ctx, f.event.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.store.DeleteAssignment(ctx, f.event.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestGormStore_ReplaceAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 2, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)
	b := f.employee(t, "Ben", model.RoleVerkauf, false)
	c := f.employee(t, "Carl", model.RoleVerkauf, false)

	_, err := f.store.ReplaceAssignments(ctx, f.event.ID, []AssignmentPair{
		{EmployeeID: a.ID, WorkAreaID: bar.ID},
		{EmployeeID: b.ID, WorkAreaID: bar.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSelected, f.status(t, a.ID))
	assert.Equal(t, model.StatusSelected, f.status(t, b.ID))

	// Ben is dropped and Carl joins.
	inserted, err := f.store.ReplaceAssignments(ctx, f.event.ID, []AssignmentPair{
		{EmployeeID: a.ID, WorkAreaID: bar.ID},
		{EmployeeID: c.ID, WorkAreaID: bar.ID},
	})
	require.NoError(t, err)
	assert.Len(t, inserted, 2)
	for _, r := range inserted {
		assert.NotNil(t, r.Employee)
		assert.NotNil(t, r.WorkArea)
	}

	assert.Equal(t, model.StatusSelected, f.status(t, a.ID))
	assert.Equal(t, model.StatusAvailable, f.status(t, b.ID))
	assert.Equal(t, model.StatusSelected, f.status(t, c.ID))

	empty, err := f.store.ReplaceAssignments(ctx, f.event.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, model.StatusAvailable, f.status(t, a.ID))
}

func TestGormStore_ClearAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 2, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)
	b := f.employee(t, "Ben", model.RoleVerkauf, false)

	_, err := f.store.ReplaceAssignments(ctx, f.event.ID, []AssignmentPair{
		{EmployeeID: a.ID, WorkAreaID: bar.ID},
		{EmployeeID: b.ID, WorkAreaID: bar.ID},
	})
	require.NoError(t, err)
	_, err = f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, b.ID, model.StatusUnavailable)
	require.NoError(t, err)

	removed, err := f.store.ClearAssignments(ctx, f.event.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	assert.Equal(t, model.StatusAvailable, f.status(t, a.ID))
	assert.Equal(t, model.StatusUnavailable, f.status(t, b.ID))
}

func TestGormStore_ResetEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 2, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)
	m := f.employee(t, "Mia", model.RoleManager, true)
	u := f.employee(t, "Udo", model.RoleEssen, false)

	_, err := f.store.ReplaceAssignments(ctx, f.event.ID, []AssignmentPair{{EmployeeID: a.ID, WorkAreaID: bar.ID}})
	require.NoError(t, err)
	_, err = f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, m.ID, model.StatusAlwaysNeeded)
	require.NoError(t, err)
	_, err = f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, u.ID, model.StatusUnavailable)
	require.NoError(t, err)

	summary, err := f.store.ResetEvent(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, ResetSummary{AssignmentsRemoved: 1, StatusesReset: 2}, summary)

	assert.Equal(t, model.StatusNotSelected, f.status(t, a.ID))
	assert.Equal(t, model.StatusAlwaysNeeded, f.status(t, m.ID))
	assert.Equal(t, model.StatusNotSelected, f.status(t, u.ID))
}

func TestGormStore_PushSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "key", Auth: "auth", EventID: f.event.ID}
	require.NoError(t, f.store.SavePushSubscription(ctx, sub))

	sub.Auth = "rotated"
	require.NoError(t, f.store.SavePushSubscription(ctx, sub))

	got, err := f.store.GetPushSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Auth)

	list, err := f.store.ListPushSubscriptions(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.store.DeletePushSubscription(ctx, sub.Endpoint))
	_, err = f.store.GetPushSubscription(ctx, sub.Endpoint)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGormStore_WrapsDriverFailures(t *testing.T) {
	boom := errors.New("connection reset")

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		call             func(s Store) error
		wantOp           string
	}{
		{
			name: "list assignments",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "assignments"`)).
					WithArgs("ev-1").
					WillReturnError(boom)
			},
			call: func(s Store) error {
				_, err := s.ListAssignments(context.Background(), "ev-1")
				return err
			},
			wantOp: "list_assignments",
		},
		{
			name: "delete assignment",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "assignments"`)).
					WithArgs("ev-1", "emp-1").
					WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				_, err := s.DeleteAssignment(context.Background(), "ev-1", "emp-1")
				return err
			},
			wantOp: "delete_assignment",
		},
		{
			name: "upsert assignment rolls back when the status write fails",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "work_areas" WHERE id = $1`) + `.*FOR UPDATE`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "name", "max_capacity", "is_active"}).
						AddRow("wa-1", "ev-1", "Bar", 2, true))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "employees" WHERE id = $1`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).AddRow("emp-1", "Anna", "verkauf"))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "assignments" WHERE event_id = $1 AND employee_id = $2`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "assignments" WHERE work_area_id = $1`)).
					WithArgs("wa-1").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "assignments"`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT "employee_id" FROM "employee_event_statuses"`)).
					WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				_, _, err := s.UpsertAssignment(context.Background(), "ev-1", "emp-1", "wa-1")
				return err
			},
			wantOp: "upsert_assignment",
		},
		{
			name: "delete assignment rolls back when the status revert fails",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "assignments"`)).
					WithArgs("ev-1", "emp-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "employee_event_statuses"`)).
					WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				_, err := s.DeleteAssignment(context.Background(), "ev-1", "emp-1")
				return err
			},
			wantOp: "delete_assignment",
		},
		{
			name: "save work area locks the row before counting",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "work_areas" WHERE id = $1`) + `.*FOR UPDATE`).
					WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				return s.SaveWorkArea(context.Background(), &model.WorkArea{ID: "wa-1", EventID: "ev-1", Name: "Bar", MaxCapacity: 1})
			},
			wantOp: "save_work_area",
		},
		{
			name: "reset event rolls back",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "assignments"`)).
					WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "employee_event_statuses"`)).
					WithArgs(Any{}, Any{}, "ev-1", Any{}).
					WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				_, err := s.ResetEvent(context.Background(), "ev-1")
				return err
			},
			wantOp: "reset_event",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			tc.mockExpectations(mock)

			err := tc.call(NewGormStore(gormDB))

			var se *apperr.StoreError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.wantOp, se.Op)
			assert.ErrorIs(t, err, boom)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_AssignmentMovesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bar := f.area(t, "Bar", 3, true)
	a := f.employee(t, "Anna", model.RoleVerkauf, false)
	m := f.employee(t, "Mia", model.RoleManager, true)

	require.NoError(t, f.store.SetStatuses(ctx, f.event.ID, []string{a.ID, m.ID}, model.StatusAvailable))
	_, err := f.store.UpsertEmployeeEventStatus(ctx, f.event.ID, m.ID, model.StatusAlwaysNeeded)
	require.NoError(t, err)

	for _, id := range []string{a.ID, m.ID} {
		_, _, err := f.store.UpsertAssignment(ctx, f.event.ID, id, bar.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, model.StatusSelected, f.status(t, a.ID))
	assert.Equal(t, model.StatusAlwaysNeeded, f.status(t, m.ID))

	for _, id := range []string{a.ID, m.ID} {
		removed, err := f.store.DeleteAssignment(ctx, f.event.ID, id)
		require.NoError(t, err)
		assert.True(t, removed)
	}
	assert.Equal(t, model.StatusAvailable, f.status(t, a.ID))
	assert.Equal(t, model.StatusAlwaysNeeded, f.status(t, m.ID))
}

func TestGormStore_SaveWorkArea_CreatesWithGivenID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	area := model.WorkArea{ID: uuid.NewString(), EventID: f.event.ID, Name: "Garderobe", MaxCapacity: 2, IsActive: true}
	require.NoError(t, f.store.SaveWorkArea(ctx, &area))

	got, err := f.store.GetWorkArea(ctx, area.ID)
	require.NoError(t, err)
	assert.Equal(t, "Garderobe", got.Name)
}
