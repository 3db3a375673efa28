package adherence

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/handler"
	adherenceService "github.com/jwalitptl/reminderd/internal/service/adherence"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service *adherenceService.Service
}

func NewHandler(service *adherenceService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	adherence := r.Group("/adherence")
	{
		adherence.GET("/dates", h.ListDatesWithRecords)
		adherence.GET("/days/:date", h.ListDayRecords)
		adherence.GET("/days/:date/medicines/:medicineId", h.GetDueStatus)
	}
}

func (h *Handler) ListDatesWithRecords(c *gin.Context) {
	dates, err := h.service.GetDatesWithAnyRecord(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, d.Format(dateLayout))
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(formatted))
}

func (h *Handler) ListDayRecords(c *gin.Context) {
	date, err := time.ParseInLocation(dateLayout, c.Param("date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date, expected YYYY-MM-DD"))
		return
	}

	records, err := h.service.GetRecords(c.Request.Context(), date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) GetDueStatus(c *gin.Context) {
	date, err := time.ParseInLocation(dateLayout, c.Param("date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date, expected YYYY-MM-DD"))
		return
	}

	medicineID, err := uuid.Parse(c.Param("medicineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medicine ID"))
		return
	}

	status, err := h.service.GetDueStatus(c.Request.Context(), medicineID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": status}))
}
