package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusudc/asesorias-api/internal/guard"
	"github.com/campusudc/asesorias-api/internal/models"
	"github.com/campusudc/asesorias-api/internal/store"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
	"github.com/campusudc/asesorias-api/pkg/export"
	"github.com/campusudc/asesorias-api/pkg/response"
)

type rosterSource interface {
	CoursesByIDs(ctx context.Context, ids []int64) ([]models.Course, error)
	CourseRoster(ctx context.Context, courseID int64) ([]models.Profile, error)
}

// CourseHandler exposes the course catalog and admin CRUD.
type CourseHandler struct {
	courses *store.CourseStore
	roster  rosterSource
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *store.CourseStore, roster rosterSource) *CourseHandler {
	return &CourseHandler{courses: courses, roster: roster}
}

// List refreshes and returns the catalog. A failed refresh degrades to the
// last known snapshot; the store logs the failure.
func (h *CourseHandler) List(c *gin.Context) {
	_ = h.courses.FetchCourses(c.Request.Context())
	response.JSON(c, http.StatusOK, h.courses.Courses())
}

// MyCourses returns the caller's enrolled-or-assigned course set.
func (h *CourseHandler) MyCourses(c *gin.Context) {
	sess := guard.SessionFromContext(c)
	if sess == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	list, err := h.courses.FetchMyCourses(c.Request.Context(), sess.Identity())
	if err != nil {
		// Stale data over failure for reads.
		list = h.courses.MyCourses(sess.Identity().ID)
	}
	if list == nil {
		list = []models.Course{}
	}
	response.JSON(c, http.StatusOK, list)
}

// Involvement reports whether a user is enrolled, pending, or assigned for a course.
func (h *CourseHandler) Involvement(c *gin.Context) {
	courseID, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	sess := guard.SessionFromContext(c)
	userID := c.Query("userId")
	if userID == "" {
		if sess == nil || sess.Identity() == nil {
			response.Error(c, appErrors.ErrUnauthenticated)
			return
		}
		userID = sess.Identity().ID
	}

	response.JSON(c, http.StatusOK, gin.H{
		"userId":   userID,
		"courseId": courseID,
		"involved": h.courses.IsUserInvolved(userID, courseID),
	})
}

// Create adds a course (admin only).
func (h *CourseHandler) Create(c *gin.Context) {
	var in models.CourseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	course, err := h.courses.AddCourse(c.Request.Context(), guard.SessionFromContext(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update edits a course (admin only).
func (h *CourseHandler) Update(c *gin.Context) {
	courseID, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var in models.CourseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	course, err := h.courses.UpdateCourse(c.Request.Context(), guard.SessionFromContext(c), courseID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Delete removes a course (admin only).
func (h *CourseHandler) Delete(c *gin.Context) {
	courseID, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.courses.DeleteCourse(c.Request.Context(), guard.SessionFromContext(c), courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster exports a course's enrollment roster as PDF or CSV (admin only).
func (h *CourseHandler) Roster(c *gin.Context) {
	courseID, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	courses, err := h.roster.CoursesByIDs(ctx, []int64{courseID})
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(courses) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "course not found"))
		return
	}

	roster, err := h.roster.CourseRoster(ctx, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch c.DefaultQuery("format", "pdf") {
	case "csv":
		raw, err := export.RenderRosterCSV(roster)
		if err != nil {
			response.Error(c, appErrors.Remote(err, "render roster"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="roster.csv"`)
		c.Data(http.StatusOK, "text/csv", raw)
	case "pdf":
		raw, err := export.RenderRosterPDF(courses[0], roster)
		if err != nil {
			response.Error(c, appErrors.Remote(err, "render roster"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="roster.pdf"`)
		c.Data(http.StatusOK, "application/pdf", raw)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported format"))
	}
}

func courseIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid course id")
	}
	return id, nil
}
