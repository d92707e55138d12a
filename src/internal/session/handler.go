package session

import (
	"context"
	"errors"
	"net/http"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/models"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	CreateSession(c *gin.Context)
	ActivateSession(c *gin.Context)
	TrackEvent(c *gin.Context)
	CompleteSession(c *gin.Context)
	CancelSession(c *gin.Context)
	FailSession(c *gin.Context)
	ExtendSession(c *gin.Context)
	GetSession(c *gin.Context)
	GetAnalytics(c *gin.Context)
	SweepSessions(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) CreateSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", "Please provide a valid session request")
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"pos_system": req.PosSystem,
		"purpose":    req.Purpose,
	}).Info("CreateSession request received")

	descriptor, err := h.service.Create(ctx, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    descriptor,
		"message": "Session created successfully",
	})
}

func (h *handler) ActivateSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Param("id")
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionToken == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", "A session token is required")
		return
	}

	view, err := h.service.Activate(ctx, sessionID, req.SessionToken, clientInfo(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
		"message": "Session activated successfully",
	})
}

func (h *handler) TrackEvent(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Param("id")
	var req TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EventType == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", "An event type is required")
		return
	}

	if err := h.service.TrackEvent(ctx, sessionID, req.EventType, req.Details, clientInfo(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event tracked successfully",
	})
}

func (h *handler) CompleteSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Param("id")
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", "Please provide valid completion data")
		return
	}

	view, err := h.service.Complete(ctx, sessionID, req.CallbackToken, req.CompletionData)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
		"message": "Session completed successfully",
	})
}

func (h *handler) CancelSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Param("id")
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", "Please provide a cancellation reason")
		return
	}

	if err := h.service.Cancel(ctx, sessionID, req.Reason, clientInfo(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session cancelled successfully",
	})
}

func (h *handler) FailSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Param("id")
	var req FailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", "An error code is required")
		return
	}

	if err := h.service.Fail(ctx, sessionID, req.Code, req.Message); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session failure recorded",
	})
}

func (h *handler) ExtendSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Param("id")
	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", "A positive number of minutes is required")
		return
	}

	view, err := h.service.Extend(ctx, sessionID, req.Minutes)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
		"message": "Session expiry extended",
	})
}

func (h *handler) GetSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	view, err := h.service.GetSession(ctx, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
		"message": "Session retrieved successfully",
	})
}

func (h *handler) GetAnalytics(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	analytics, err := h.service.GetAnalytics(ctx, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    analytics,
		"message": "Session analytics retrieved successfully",
	})
}

func (h *handler) SweepSessions(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	count, err := h.service.SweepExpired(ctx)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"expiredCount": count},
		"message": "Expired sessions swept successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

// handleServiceError maps typed service errors to HTTP statuses. Responses
// for authorization and state failures carry only the category, never
// which precondition failed.
func (h *handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Session not found", "No session found with the provided ID")
	case errors.Is(err, models.ErrUnauthorized):
		h.sendErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Session credentials are invalid")
	case errors.Is(err, models.ErrSessionExpired):
		h.sendErrorResponse(c, http.StatusGone, "Session expired", "The session is no longer valid")
	case errors.Is(err, models.ErrInvalidStateTransition):
		h.sendErrorResponse(c, http.StatusConflict, "Invalid state transition", "The session does not allow this operation")
	case errors.Is(err, models.ErrInvalidCallbackToken):
		h.sendErrorResponse(c, http.StatusUnauthorized, "Invalid callback token", "Callback token verification failed")
	case errors.Is(err, models.ErrUnsupportedPOSSystem):
		h.sendErrorResponse(c, http.StatusBadRequest, "Unsupported POS system", "The requested POS system has no redirect mapping")
	case errors.Is(err, models.ErrLoanNotFound):
		h.sendErrorResponse(c, http.StatusBadRequest, "Loan not found", "No loan found with the provided ID")
	case errors.Is(err, models.ErrValidation):
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", "The request is malformed")
	default:
		logrus.WithError(err).Error("Unhandled session service error")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Internal error", "The operation could not be completed")
	}
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, error, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   error,
		"message": message,
	})
}

// clientInfo pulls the client context the middleware captured.
func clientInfo(c *gin.Context) ClientInfo {
	info := ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if ip, ok := c.Get("client_ip"); ok {
		if v, ok := ip.(string); ok && v != "" {
			info.IPAddress = v
		}
	}
	if ua, ok := c.Get("client_user_agent"); ok {
		if v, ok := ua.(string); ok && v != "" {
			info.UserAgent = v
		}
	}
	return info
}
