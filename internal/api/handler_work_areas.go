package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staffplan-backend/internal/model"
	"staffplan-backend/internal/surface"
)

type workAreaRequest struct {
	Name             string         `json:"name" binding:"required"`
	Location         string         `json:"location"`
	MaxCapacity      int            `json:"max_capacity" binding:"required,min=1"`
	RoleRequirements map[string]any `json:"role_requirements"`
	IsActive         *bool          `json:"is_active"`
}

func (r workAreaRequest) toModel(id string) model.WorkArea {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return model.WorkArea{
		ID:               id,
		Name:             r.Name,
		Location:         r.Location,
		MaxCapacity:      r.MaxCapacity,
		RoleRequirements: r.RoleRequirements,
		IsActive:         active,
	}
}

// GetWorkAreas lists the event's work areas with their live headcount.
func (h *Handler) GetWorkAreas(c *gin.Context) {
	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, set.WorkAreas.Areas(), "")
}

// PostWorkArea creates a work area for the event.
func (h *Handler) PostWorkArea(c *gin.Context) {
	var req workAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	set, ok := h.surfacesFor(c)
	if !ok {
		return
	}
	area, err := set.WorkAreas.SaveArea(c.Request.Context(), req.toModel(""))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, area, "Work area created")
}

// editorForArea resolves the editor owning the work area in the path.
func (h *Handler) editorForArea(c *gin.Context) (*surface.WorkAreaEditor, *model.WorkArea, bool) {
	area, err := h.store.GetWorkArea(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	set, err := h.surfaces.Get(c.Request.Context(), area.EventID)
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	if !hasArea(set.WorkAreas.Areas(), area.ID) {
		// Created elsewhere since the editor last loaded.
		if err := set.WorkAreas.Refresh(c.Request.Context()); err != nil {
			h.fail(c, err)
			return nil, nil, false
		}
	}
	return set.WorkAreas, area, true
}

func hasArea(areas []surface.AreaView, id string) bool {
	for _, a := range areas {
		if a.ID == id {
			return true
		}
	}
	return false
}

// PutWorkArea updates a work area. Lowering max_capacity below the number
// of employees already assigned is refused.
func (h *Handler) PutWorkArea(c *gin.Context) {
	var req workAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	editor, existing, ok := h.editorForArea(c)
	if !ok {
		return
	}
	update := req.toModel(existing.ID)
	if req.IsActive == nil {
		update.IsActive = existing.IsActive
	}
	area, err := editor.SaveArea(c.Request.Context(), update)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, area, "Work area updated")
}

// DeleteWorkArea removes a work area and releases its employees.
func (h *Handler) DeleteWorkArea(c *gin.Context) {
	editor, area, ok := h.editorForArea(c)
	if !ok {
		return
	}
	if err := editor.DeleteArea(c.Request.Context(), area.ID); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": area.ID}, "Work area deleted")
}
