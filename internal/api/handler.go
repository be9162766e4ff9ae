package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffplan-backend/internal/apperr"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/planner"
	"staffplan-backend/internal/store"
	"staffplan-backend/internal/surface"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	planner  *planner.Service
	surfaces *surface.Registry
	bus      *bus.Bus
	webpush  *webpush.Options
	logger   *zap.Logger
}

// Deps groups what NewHandler needs. Webpush may be nil when push is disabled.
type Deps struct {
	Store    store.Store
	Planner  *planner.Service
	Surfaces *surface.Registry
	Bus      *bus.Bus
	Webpush  *webpush.Options
	Logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{
		store:    deps.Store,
		planner:  deps.Planner,
		surfaces: deps.Surfaces,
		bus:      deps.Bus,
		webpush:  deps.Webpush,
		logger:   deps.Logger,
	}
}

// envelope is the body of every /api response except the subscription
// endpoints kept for the push client.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrTransitionNotAllowed), errors.Is(err, apperr.ErrCapacityExceeded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, envelope{Success: false, Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
}

func (h *Handler) publish(topic bus.Topic, n bus.Notification) {
	if h.bus != nil {
		h.bus.Publish(topic, n)
	}
}
