package store

import "staffplan-backend/internal/model"

// EmployeeFilter narrows ListEmployees. Zero values mean "no restriction".
type EmployeeFilter struct {
	IDs          []string
	Roles        []model.Role
	AlwaysNeeded *bool
}

// AssignmentPair is one (employee, work area) placement to insert.
type AssignmentPair struct {
	EmployeeID string
	WorkAreaID string
}

// ResetSummary reports what ResetEvent changed.
type ResetSummary struct {
	AssignmentsRemoved int64
	StatusesReset      int64
}
