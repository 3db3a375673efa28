package reminder

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/handler"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/service/escalation"
	reminderService "github.com/jwalitptl/reminderd/internal/service/reminder"
)

type Handler struct {
	service *reminderService.Service
	engine  *escalation.Engine
}

func NewHandler(service *reminderService.Service, engine *escalation.Engine) *Handler {
	return &Handler{service: service, engine: engine}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reminders := r.Group("/reminders")
	{
		reminders.GET("/pending", h.ListPending)
		reminders.POST("/:medicineId/confirm", h.ConfirmTaken)
		reminders.POST("/:medicineId/dismiss", h.Dismiss)
	}

	lifecycle := r.Group("/lifecycle")
	{
		lifecycle.POST("/background", h.EnterBackground)
		lifecycle.POST("/foreground", h.EnterForeground)
	}
}

func (h *Handler) ListPending(c *gin.Context) {
	pending := h.service.Pending(c.Request.Context())
	c.JSON(http.StatusOK, handler.NewSuccessResponse(pending))
}

func (h *Handler) ConfirmTaken(c *gin.Context) {
	medicineID, err := uuid.Parse(c.Param("medicineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medicine ID"))
		return
	}

	var req model.ConfirmTakenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.service.ConfirmTaken(c.Request.Context(), medicineID, req.PhotoRef)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(record))
}

func (h *Handler) Dismiss(c *gin.Context) {
	medicineID, err := uuid.Parse(c.Param("medicineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medicine ID"))
		return
	}

	if err := h.service.NotYet(c.Request.Context(), medicineID); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{Status: "success", Message: "reminder dismissed"})
}

// EnterBackground switches every open session to deferred delivery: future
// emissions are scheduled through the dispatcher instead of fired live.
func (h *Handler) EnterBackground(c *gin.Context) {
	h.engine.EnterBackground(c.Request.Context())
	c.JSON(http.StatusOK, &handler.Response{Status: "success", Message: "background delivery active"})
}

// EnterForeground cancels the deferred schedule and resumes live delivery at
// each session's current escalation level.
func (h *Handler) EnterForeground(c *gin.Context) {
	h.engine.EnterForeground(c.Request.Context())
	c.JSON(http.StatusOK, &handler.Response{Status: "success", Message: "live delivery active"})
}
