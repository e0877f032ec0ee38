package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusudc/asesorias-api/internal/guard"
	"github.com/campusudc/asesorias-api/internal/models"
	"github.com/campusudc/asesorias-api/internal/store"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
	"github.com/campusudc/asesorias-api/pkg/response"
)

// RequestHandler exposes the solicitud workflow.
type RequestHandler struct {
	courses *store.CourseStore
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(courses *store.CourseStore) *RequestHandler {
	return &RequestHandler{courses: courses}
}

// List refreshes and returns the pending request set (admin only).
func (h *RequestHandler) List(c *gin.Context) {
	_ = h.courses.FetchRequests(c.Request.Context())
	response.JSON(c, http.StatusOK, h.courses.PendingRequests())
}

// SendRequestPayload is the body for submitting a solicitud.
type SendRequestPayload struct {
	CourseID int64              `json:"curso_id" binding:"required"`
	Kind     models.RequestKind `json:"solicitud_tipo" binding:"required"`
}

// Create submits a solicitud for the authenticated caller.
func (h *RequestHandler) Create(c *gin.Context) {
	var payload SendRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	sess := guard.SessionFromContext(c)
	if sess == nil || sess.Identity() == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	if err := h.courses.SendRequest(c.Request.Context(), sess.Identity().ID, payload.CourseID, payload.Kind); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"status": "pending"})
}

// Approve runs the atomic approval transition for a pending request (admin only).
func (h *RequestHandler) Approve(c *gin.Context) {
	req, err := h.pendingByParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.courses.ApproveRequest(c.Request.Context(), guard.SessionFromContext(c), *req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": string(models.StatusApproved)})
}

// Reject marks a pending request rejected (admin only).
func (h *RequestHandler) Reject(c *gin.Context) {
	req, err := h.pendingByParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.courses.RejectRequest(c.Request.Context(), guard.SessionFromContext(c), req.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": string(models.StatusRejected)})
}

func (h *RequestHandler) pendingByParam(c *gin.Context) (*models.Request, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid request id")
	}

	// The pending set may be cold on this process; refresh before resolving.
	for _, req := range h.courses.PendingRequests() {
		if req.ID == id {
			return &req, nil
		}
	}
	if err := h.courses.FetchRequests(c.Request.Context()); err != nil {
		return nil, err
	}
	for _, req := range h.courses.PendingRequests() {
		if req.ID == id {
			return &req, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "pending request not found")
}
