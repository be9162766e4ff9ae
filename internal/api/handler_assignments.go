package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/model"
	"staffplan-backend/internal/surface"
)

// assignmentView is an assignment joined with the display fields of its
// employee and work area.
type assignmentView struct {
	ID         string       `json:"id"`
	EmployeeID string       `json:"employee_id"`
	WorkAreaID string       `json:"work_area_id"`
	EventID    string       `json:"event_id"`
	CreatedAt  time.Time    `json:"created_at"`
	Employee   *employeeRef `json:"employee,omitempty"`
	WorkArea   *workAreaRef `json:"work_area,omitempty"`
}

type employeeRef struct {
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

type workAreaRef struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func toAssignmentView(a model.Assignment) assignmentView {
	v := assignmentView{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		WorkAreaID: a.WorkAreaID,
		EventID:    a.EventID,
		CreatedAt:  a.CreatedAt,
	}
	if a.Employee != nil {
		v.Employee = &employeeRef{Name: a.Employee.Name, Role: a.Employee.Role}
	}
	if a.WorkArea != nil {
		v.WorkArea = &workAreaRef{Name: a.WorkArea.Name, Location: a.WorkArea.Location}
	}
	return v
}

func toAssignmentViews(in []model.Assignment) []assignmentView {
	out := make([]assignmentView, 0, len(in))
	for _, a := range in {
		out = append(out, toAssignmentView(a))
	}
	return out
}

// GetAssignments lists an event's assignments, newest first.
func (h *Handler) GetAssignments(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		eventID = c.Query("event_id")
	}
	if eventID == "" {
		h.fail(c, apperr.Required("eventId"))
		return
	}

	assignments, err := h.planner.ListAssignments(c.Request.Context(), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, toAssignmentViews(assignments), "")
}

type postAssignmentRequest struct {
	EmployeeID string `json:"employee_id"`
	WorkAreaID string `json:"work_area_id"`
	EventID    string `json:"event_id"`
	Action     string `json:"action"`
}

// PostAssignment assigns an employee to a work area, replacing any
// assignment they hold for the event. With action "remove" it deletes the
// employee's assignment instead.
func (h *Handler) PostAssignment(c *gin.Context) {
	var req postAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.Action == "remove" {
		removed, err := h.planner.Unassign(ctx, req.EventID, req.EmployeeID)
		if err != nil {
			h.fail(c, err)
			return
		}
		message := "No assignment to remove"
		if removed {
			message = "Assignment removed"
			h.publish(bus.TopicAssignmentsChanged, bus.Notification{
				EventID:    req.EventID,
				EmployeeID: req.EmployeeID,
				Kind:       surface.KindUnassign,
				Count:      1,
			})
			h.publish(bus.TopicStatusChanged, bus.Notification{EventID: req.EventID, EmployeeID: req.EmployeeID})
		}
		respond(c, http.StatusOK, gin.H{"removed": removed}, message)
		return
	}

	assignment, previous, err := h.planner.Assign(ctx, req.EventID, req.EmployeeID, req.WorkAreaID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.publish(bus.TopicAssignmentsChanged, bus.Notification{
		EventID:    req.EventID,
		EmployeeID: req.EmployeeID,
		Kind:       surface.KindAssign,
		Count:      1,
	})
	h.publish(bus.TopicStatusChanged, bus.Notification{EventID: req.EventID, EmployeeID: req.EmployeeID})

	message := "Assignment saved"
	if previous != "" && previous != req.WorkAreaID {
		message = "Assignment moved"
	}
	respond(c, http.StatusOK, toAssignmentView(*assignment), message)
}

type putAssignmentsRequest struct {
	EventID     string   `json:"event_id"`
	EmployeeIDs []string `json:"employee_ids"`
}

// PutAssignments runs auto-assignment for an event. Without employee_ids the
// pool is every available employee.
func (h *Handler) PutAssignments(c *gin.Context) {
	var req putAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.planner.AutoAssign(c.Request.Context(), req.EventID, req.EmployeeIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	if result.Reason == "" {
		h.publish(bus.TopicAssignmentsChanged, bus.Notification{
			EventID: req.EventID,
			Kind:    surface.KindAutoAssign,
			Count:   len(result.Assignments),
		})
	}
	respond(c, http.StatusOK, toAssignmentViews(result.Assignments), result.Message)
}
