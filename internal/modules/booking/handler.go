package booking

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"kundenportal/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	k := rg.Group("/kunde/:token")
	{
		k.GET("", h.GetBooking)
		k.PATCH("/layout", h.SubmitLayout)
		k.POST("/layout/approve", h.ApproveLayout)
		k.GET("/qr.png", h.QRCode)
	}
}

func (h *Handler) GetBooking(c *gin.Context) {
	view, err := h.service.Load(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) SubmitLayout(c *gin.Context) {
	var req LayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	view, err := h.service.SubmitLayout(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) ApproveLayout(c *gin.Context) {
	view, err := h.service.ApproveLayout(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) QRCode(c *gin.Context) {
	png, err := h.service.QRCode(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var valErr *ValidationError
	switch {
	case errors.As(err, &valErr):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Please check the layout fields", valErr.Fields)
	case errors.Is(err, ErrBookingNotFound):
		response.Error(c, http.StatusNotFound, "BOOKING_NOT_FOUND", "Buchung konnte nicht geladen werden.")
	case errors.Is(err, ErrLayoutNotBooked):
		response.Error(c, http.StatusConflict, "LAYOUT_NOT_BOOKED", err.Error())
	case errors.Is(err, ErrLayoutLocked):
		response.Error(c, http.StatusConflict, "LAYOUT_LOCKED", err.Error())
	case errors.Is(err, ErrApprovalNotPossible):
		response.Error(c, http.StatusConflict, "APPROVAL_NOT_POSSIBLE", err.Error())
	case errors.Is(err, ErrBackendUnavailable):
		response.Error(c, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "Buchung konnte nicht geladen werden.")
	default:
		log.Printf("booking_handler_error path=%s error=%v", c.FullPath(), err)
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
