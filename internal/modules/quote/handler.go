package quote

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domain "kundenportal/internal/domain/quote"
	"kundenportal/internal/middleware"
	"kundenportal/internal/pkg/jwt"
	"kundenportal/internal/pkg/response"
	"kundenportal/internal/session"
)

type Handler struct {
	service *Service
	jwt     *jwt.Service
	cookie  middleware.CookieOptions
}

func NewHandler(service *Service, j *jwt.Service, cookie middleware.CookieOptions) *Handler {
	return &Handler{service: service, jwt: j, cookie: cookie}
}

// RegisterRoutes expects a group carrying the PortalSession middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/angebot/:token", h.GetQuote)
	r.POST("/angebot/:token/feedback", h.SendFeedback)

	s := r.Group("/angebot/:token", middleware.RequireSession())
	{
		s.PUT("/days/:leadId", h.SetDecision)
		s.PUT("/contact", h.UpdateContact)
		s.POST("/confirm/prepare", h.PrepareConfirmation)
		s.POST("/confirm", h.Confirm)
	}
}

// GetQuote opens (or resumes) the caller's session and returns the quote.
func (h *Handler) GetQuote(c *gin.Context) {
	token := c.Param("token")
	sess, created, err := h.service.Open(c.Request.Context(), token, middleware.SessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if created {
		if err := middleware.IssueSession(c, h.jwt, h.cookie, sess.ID, token); err != nil {
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start session")
			return
		}
	}
	response.Success(c, http.StatusOK, h.service.View(sess))
}

func (h *Handler) SetDecision(c *gin.Context) {
	leadID, err := strconv.ParseInt(c.Param("leadId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid day ID")
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	d, err := domain.ParseDecision(req.Decision)
	if err != nil || d == domain.Undecided {
		response.Error(c, http.StatusUnprocessableEntity, "INVALID_DECISION", domain.ErrInvalidDecision.Error())
		return
	}

	sess, err := h.service.SetDecision(c.Request.Context(), c.Param("token"), middleware.SessionID(c), leadID, d)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.service.View(sess))
}

func (h *Handler) UpdateContact(c *gin.Context) {
	var form domain.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	sess, err := h.service.UpdateContact(c.Request.Context(), c.Param("token"), middleware.SessionID(c), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.service.View(sess))
}

func (h *Handler) PrepareConfirmation(c *gin.Context) {
	prepared, err := h.service.Prepare(c.Request.Context(), c.Param("token"), middleware.SessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, prepared)
}

func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", ErrConfirmationRequired.Error())
		return
	}

	outcome, err := h.service.Confirm(c.Request.Context(), c.Param("token"), middleware.SessionID(c), req.Ticket)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if outcome.AlreadyConfirmed {
		response.SuccessWithNotice(c, http.StatusOK, outcome, response.Notice{
			Code:    "ALREADY_CONFIRMED",
			Message: "Dieses Angebot wurde bereits bestätigt.",
		})
		return
	}
	response.Success(c, http.StatusOK, outcome)
}

func (h *Handler) SendFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := h.service.SendFeedback(c.Request.Context(), c.Param("token"), req); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"queued": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		valErr  *ValidationError
		convErr *ConversionError
		netErr  *NetworkError
		incErr  *domain.IncompleteSelectionError
	)

	switch {
	case errors.As(err, &valErr):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Please complete the required fields", valErr.Fields)
	case errors.As(err, &incErr):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "SELECTION_INCOMPLETE", domain.ErrSelectionIncomplete.Error(), gin.H{"undecided": incErr.Undecided})
	case errors.Is(err, domain.ErrNothingAccepted):
		response.Error(c, http.StatusUnprocessableEntity, "NOTHING_ACCEPTED", err.Error())
	case errors.Is(err, domain.ErrUnknownDay):
		response.Error(c, http.StatusNotFound, "DAY_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInvalidDecision):
		response.Error(c, http.StatusUnprocessableEntity, "INVALID_DECISION", err.Error())
	case errors.Is(err, ErrNotGrouped):
		response.Error(c, http.StatusConflict, "NOT_GROUPED", err.Error())
	case errors.Is(err, ErrSessionNotFound):
		response.Error(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Please reload the quote")
	case errors.Is(err, ErrConfirmationRequired):
		response.Error(c, http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", err.Error())
	case errors.Is(err, session.ErrConflict):
		response.Error(c, http.StatusConflict, "SESSION_CONFLICT", "Das Angebot wurde in einem anderen Fenster geändert, bitte neu laden.")
	case errors.Is(err, ErrConfirmationInFlight):
		response.Error(c, http.StatusConflict, "CONFIRMATION_IN_PROGRESS", err.Error())
	case errors.As(err, &convErr):
		status, code := http.StatusBadGateway, "CONVERSION_FAILED"
		if errors.As(err, &netErr) {
			status, code = http.StatusServiceUnavailable, "NETWORK_ERROR"
		}
		response.ErrorWithDetails(c, status, code, "Der Tag "+convErr.Day.Label+" konnte nicht gebucht werden.", convErr.Outcome)
	case errors.Is(err, ErrQuoteNotFound):
		response.Error(c, http.StatusNotFound, "QUOTE_NOT_FOUND", "Angebot konnte nicht geladen werden.")
	case errors.As(err, &netErr):
		response.Error(c, http.StatusServiceUnavailable, "NETWORK_ERROR", "Backend not reachable, please retry")
	case errors.Is(err, ErrBackendUnavailable):
		response.Error(c, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "Angebot konnte nicht geladen werden.")
	default:
		log.Printf("quote_handler_error path=%s error=%v", c.FullPath(), err)
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
