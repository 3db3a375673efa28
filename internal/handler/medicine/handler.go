package medicine

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/handler"
	"github.com/jwalitptl/reminderd/internal/model"
	medicineService "github.com/jwalitptl/reminderd/internal/service/medicine"
)

type Handler struct {
	service *medicineService.Service
}

func NewHandler(service *medicineService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	medicines := r.Group("/medicines")
	{
		medicines.POST("", h.CreateMedicine)
		medicines.GET("", h.ListMedicines)
		medicines.GET("/:id", h.GetMedicine)
		medicines.PUT("/:id", h.UpdateMedicine)
		medicines.DELETE("/:id", h.DeleteMedicine)
	}
}

func (h *Handler) CreateMedicine(c *gin.Context) {
	var req model.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	m, err := h.service.CreateMedicine(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) ListMedicines(c *gin.Context) {
	medicines, err := h.service.ListMedicines(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(medicines))
}

func (h *Handler) GetMedicine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medicine ID"))
		return
	}

	m, err := h.service.GetMedicine(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) UpdateMedicine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medicine ID"))
		return
	}

	var req model.UpdateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	m, err := h.service.UpdateMedicine(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) DeleteMedicine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medicine ID"))
		return
	}

	if err := h.service.DeleteMedicine(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, &handler.Response{Status: "success", Message: "medicine deleted"})
}
