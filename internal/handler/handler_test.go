package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusudc/asesorias-api/internal/guard"
	"github.com/campusudc/asesorias-api/internal/models"
	"github.com/campusudc/asesorias-api/internal/store"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
)

type stubBackend struct {
	courses     []models.Course
	enrollments []models.Enrollment
	requests    []models.Request
	roster      []models.Profile

	listErr error
	inserts int
}

func (s *stubBackend) ListCourses(ctx context.Context) ([]models.Course, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.Course(nil), s.courses...), nil
}

func (s *stubBackend) CoursesByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	var out []models.Course
	for _, id := range ids {
		for _, course := range s.courses {
			if course.ID == id {
				out = append(out, course)
			}
		}
	}
	return out, nil
}

func (s *stubBackend) CourseIDsByProfessor(ctx context.Context, professorID string) ([]int64, error) {
	return nil, nil
}

func (s *stubBackend) InsertCourse(ctx context.Context, in models.CourseInput) (*models.Course, error) {
	course := models.Course{ID: int64(len(s.courses) + 1), Name: in.Name, MaxCapacity: in.MaxCapacity, ProfessorName: models.UnassignedProfessor}
	s.courses = append(s.courses, course)
	return &course, nil
}

func (s *stubBackend) UpdateCourse(ctx context.Context, id int64, in models.CourseInput) (*models.Course, error) {
	return &models.Course{ID: id, Name: in.Name, MaxCapacity: in.MaxCapacity, ProfessorName: models.UnassignedProfessor}, nil
}

func (s *stubBackend) DeleteCourse(ctx context.Context, id int64) error { return nil }

func (s *stubBackend) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	return append([]models.Enrollment(nil), s.enrollments...), nil
}

func (s *stubBackend) CourseRoster(ctx context.Context, courseID int64) ([]models.Profile, error) {
	return append([]models.Profile(nil), s.roster...), nil
}

func (s *stubBackend) ListPendingRequests(ctx context.Context) ([]models.Request, error) {
	return append([]models.Request(nil), s.requests...), nil
}

func (s *stubBackend) InsertRequest(ctx context.Context, userID string, courseID int64, kind models.RequestKind) error {
	s.inserts++
	s.requests = append(s.requests, models.Request{
		ID: int64(100 + s.inserts), UserID: userID, CourseID: courseID, Kind: kind, Status: models.StatusPending,
	})
	return nil
}

func (s *stubBackend) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	return nil
}

func (s *stubBackend) ApproveRequest(ctx context.Context, req models.Request) error { return nil }

func sessionFor(role models.Role, userID string) *store.SessionStore {
	sess := store.NewSessionStore(nil, nil, zap.NewNop(), "")
	sess.Login(store.SessionToken{AccessToken: "tok", Identity: models.Identity{ID: userID, Email: userID + "@uni.edu"}},
		&models.Profile{ID: userID, FullName: "Test", Role: role})
	return sess
}

func withSession(sess *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(guard.ContextSessionKey, sess)
		c.Next()
	}
}

func perform(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCourseListServesStaleSnapshotOnBackendFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := &stubBackend{courses: []models.Course{{ID: 1, Name: "Algebra"}}}
	courses := store.NewCourseStore(b, nil, nil, zap.NewNop())
	require.NoError(t, courses.FetchCourses(context.Background()))

	b.listErr = appErrors.Clone(appErrors.ErrRemote, "backend down")
	h := NewCourseHandler(courses, b)

	router := gin.New()
	router.GET("/cursos", h.List)

	rec := perform(router, http.MethodGet, "/cursos", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Algebra")
}

func TestCourseInvolvement(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := &stubBackend{
		courses:     []models.Course{{ID: 1, Name: "Algebra"}},
		enrollments: []models.Enrollment{{UserID: "u1", CourseID: 1}},
	}
	courses := store.NewCourseStore(b, nil, nil, zap.NewNop())
	require.NoError(t, courses.FetchCourses(context.Background()))
	h := NewCourseHandler(courses, b)

	router := gin.New()
	router.GET("/cursos/:id/involucrado", withSession(sessionFor(models.RoleStudent, "u1")), h.Involvement)

	rec := perform(router, http.MethodGet, "/cursos/1/involucrado", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"involved":true`)

	rec = perform(router, http.MethodGet, "/cursos/1/involucrado?userId=u9", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"involved":false`)

	rec = perform(router, http.MethodGet, "/cursos/abc/involucrado", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourseCreateRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	courses := store.NewCourseStore(&stubBackend{}, nil, nil, zap.NewNop())
	h := NewCourseHandler(courses, &stubBackend{})

	router := gin.New()
	router.POST("/cursos", withSession(sessionFor(models.RoleStudent, "u1")), h.Create)

	rec := perform(router, http.MethodPost, "/cursos", []byte(`{"nombre":"Algebra"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCourseCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := &stubBackend{}
	courses := store.NewCourseStore(b, nil, nil, zap.NewNop())
	h := NewCourseHandler(courses, b)

	router := gin.New()
	router.POST("/cursos", withSession(sessionFor(models.RoleAdmin, "admin")), h.Create)

	rec := perform(router, http.MethodPost, "/cursos", []byte(`{"nombre":"Algebra","cupo_maximo":0}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cupo_maximo":1`, "missing capacity is stored as the minimum")
}

func TestCourseRosterFormats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := &stubBackend{
		courses: []models.Course{{ID: 1, Name: "Algebra", MaxCapacity: 20, ProfessorName: models.UnassignedProfessor}},
		roster:  []models.Profile{{ID: "u1", FullName: "Ana", Email: "ana@uni.edu", Role: models.RoleStudent}},
	}
	courses := store.NewCourseStore(b, nil, nil, zap.NewNop())
	h := NewCourseHandler(courses, b)

	router := gin.New()
	router.GET("/cursos/:id/roster", h.Roster)

	rec := perform(router, http.MethodGet, "/cursos/1/roster?format=csv", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Ana,ana@uni.edu")

	rec = perform(router, http.MethodGet, "/cursos/1/roster", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = perform(router, http.MethodGet, "/cursos/99/roster", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = perform(router, http.MethodGet, "/cursos/1/roster?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := &stubBackend{courses: []models.Course{{ID: 1, Name: "Algebra"}}}
	courses := store.NewCourseStore(b, nil, nil, zap.NewNop())
	h := NewRequestHandler(courses)

	router := gin.New()
	router.POST("/solicitudes", withSession(sessionFor(models.RoleStudent, "u1")), h.Create)

	body := []byte(`{"curso_id":1,"solicitud_tipo":"ENROLL_STUDENT"}`)
	rec := perform(router, http.MethodPost, "/solicitudes", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, b.inserts)

	// The refreshed pending set now carries the request; a resubmit conflicts.
	rec = perform(router, http.MethodPost, "/solicitudes", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, b.inserts)
}

func TestRequestCreateValidatesPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	courses := store.NewCourseStore(&stubBackend{}, nil, nil, zap.NewNop())
	h := NewRequestHandler(courses)

	router := gin.New()
	router.POST("/solicitudes", withSession(sessionFor(models.RoleStudent, "u1")), h.Create)

	rec := perform(router, http.MethodPost, "/solicitudes", []byte(`{"curso_id":1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(router, http.MethodPost, "/solicitudes", []byte(`{"curso_id":1,"solicitud_tipo":"BOGUS"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestApproveUnknownID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	courses := store.NewCourseStore(&stubBackend{}, nil, nil, zap.NewNop())
	h := NewRequestHandler(courses)

	router := gin.New()
	router.POST("/solicitudes/:id/aprobar", withSession(sessionFor(models.RoleAdmin, "admin")), h.Approve)

	rec := perform(router, http.MethodPost, "/solicitudes/99/aprobar", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = perform(router, http.MethodPost, "/solicitudes/abc/aprobar", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestApproveAndReject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := &stubBackend{requests: []models.Request{
		{ID: 7, UserID: "u1", CourseID: 1, Kind: models.KindEnrollStudent, Status: models.StatusPending},
		{ID: 8, UserID: "u2", CourseID: 1, Kind: models.KindEnrollStudent, Status: models.StatusPending},
	}}
	courses := store.NewCourseStore(b, nil, nil, zap.NewNop())
	require.NoError(t, courses.FetchRequests(context.Background()))
	h := NewRequestHandler(courses)

	admin := sessionFor(models.RoleAdmin, "admin")
	router := gin.New()
	router.POST("/solicitudes/:id/aprobar", withSession(admin), h.Approve)
	router.POST("/solicitudes/:id/rechazar", withSession(admin), h.Reject)

	rec := perform(router, http.MethodPost, "/solicitudes/7/aprobar", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(models.StatusApproved))

	rec = perform(router, http.MethodPost, "/solicitudes/8/rechazar", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(models.StatusRejected))
}
