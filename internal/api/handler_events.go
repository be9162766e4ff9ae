package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"staffplan-backend/internal/model"
	"staffplan-backend/internal/parse"
	"staffplan-backend/internal/surface"
)

// surfacesFor opens the controllers of the event named in the path. It
// writes the error response itself and reports false on failure.
func (h *Handler) surfacesFor(c *gin.Context) (*surface.Set, bool) {
	set, err := h.surfaces.Get(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return set, true
}

// GetStatuses lists every employee with their status for the event,
// optionally filtered by ?status=.
func (h *Handler) GetStatuses(c *gin.Context) {
	var filter model.Status
	if raw := c.Query("status"); raw != "" {
		status, err := parse.ParseStatus(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter = status
	}

	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	rows := set.Recruitment.Snapshot().Rows
	if filter != "" {
		kept := rows[:0]
		for _, row := range rows {
			if row.Status == filter {
				kept = append(kept, row)
			}
		}
		rows = kept
	}
	respond(c, http.StatusOK, rows, "")
}

// GetBoard returns the recruitment board with its counters.
func (h *Handler) GetBoard(c *gin.Context) {
	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, set.Recruitment.Snapshot(), "")
}

type putStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PutStatus is a direct status change on the recruitment board.
func (h *Handler) PutStatus(c *gin.Context) {
	var req putStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := parse.ParseStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}

	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	employeeID := c.Param("employee_id")
	if err := set.Recruitment.SetStatus(c.Request.Context(), employeeID, status); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"employee_id": employeeID, "status": set.Recruitment.Status(employeeID)}, "")
}

type putHeadcountRequest struct {
	Needed    *int `json:"headcount_needed" binding:"required"`
	Requested *int `json:"headcount_requested" binding:"required"`
}

// PutHeadcount changes the event's needed and requested headcount.
func (h *Handler) PutHeadcount(c *gin.Context) {
	var req putHeadcountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	if err := set.Recruitment.SetHeadcount(c.Request.Context(), *req.Needed, *req.Requested); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, set.Recruitment.Snapshot().Event, "")
}

// PostAlwaysNeeded sets every always-needed employee's status for the event.
func (h *Handler) PostAlwaysNeeded(c *gin.Context) {
	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	n, err := set.Recruitment.ApplyAlwaysNeededDefaults(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"count": n}, fmt.Sprintf("Marked %d employees always needed", n))
}

// PostReset removes every assignment of the event and resets all statuses
// except always-needed to not-selected.
func (h *Handler) PostReset(c *gin.Context) {
	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	summary, err := set.Recruitment.ResetAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"assignments_removed": summary.AssignmentsRemoved,
		"statuses_reset":      summary.StatusesReset,
	}, "Event reset")
}

// DeleteEventAssignments removes every assignment of the event.
func (h *Handler) DeleteEventAssignments(c *gin.Context) {
	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	n, err := set.WorkAreas.ClearAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"removed": n}, fmt.Sprintf("Removed %d assignments", n))
}

// GetRoster returns the attendance roster grouped by work area.
func (h *Handler) GetRoster(c *gin.Context) {
	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, set.Attendance.Roster(), "")
}

type putAttendanceRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// PutAttendance marks an employee unavailable on the day, or back available.
func (h *Handler) PutAttendance(c *gin.Context) {
	var req putAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	employeeID := c.Param("employee_id")
	var err error
	if *req.Available {
		err = set.Attendance.MarkAvailable(c.Request.Context(), employeeID)
	} else {
		err = set.Attendance.MarkUnavailable(c.Request.Context(), employeeID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"employee_id": employeeID, "status": set.Attendance.Status(employeeID)}, "")
}
