package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusudc/asesorias-api/internal/models"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
)

type mockBackend struct {
	courses          []models.Course
	enrollments      []models.Enrollment
	requests         []models.Request
	professorCourses map[string][]int64

	listErr     error
	enrollErr   error
	requestsErr error
	approveErr  error

	insertedRequests int
	capturedInputs   []models.CourseInput
	statusUpdates    map[int64]models.RequestStatus
	listCalls        int
	nextRequestID    int64
	nextCourseID     int64
}

func (m *mockBackend) ListCourses(ctx context.Context) ([]models.Course, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.Course(nil), m.courses...), nil
}

func (m *mockBackend) CoursesByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	var out []models.Course
	for _, id := range ids {
		for _, course := range m.courses {
			if course.ID == id {
				out = append(out, course)
			}
		}
	}
	return out, nil
}

func (m *mockBackend) CourseIDsByProfessor(ctx context.Context, professorID string) ([]int64, error) {
	return m.professorCourses[professorID], nil
}

func (m *mockBackend) InsertCourse(ctx context.Context, in models.CourseInput) (*models.Course, error) {
	m.capturedInputs = append(m.capturedInputs, in)
	m.nextCourseID++
	course := models.Course{
		ID:            m.nextCourseID,
		Name:          in.Name,
		Description:   in.Description,
		Schedule:      in.Schedule,
		MaxCapacity:   in.MaxCapacity,
		ProfessorID:   in.ProfessorID,
		ProfessorName: models.UnassignedProfessor,
	}
	m.courses = append(m.courses, course)
	return &course, nil
}

func (m *mockBackend) UpdateCourse(ctx context.Context, id int64, in models.CourseInput) (*models.Course, error) {
	m.capturedInputs = append(m.capturedInputs, in)
	course := models.Course{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		Schedule:      in.Schedule,
		MaxCapacity:   in.MaxCapacity,
		ProfessorID:   in.ProfessorID,
		ProfessorName: models.UnassignedProfessor,
	}
	for i := range m.courses {
		if m.courses[i].ID == id {
			m.courses[i] = course
		}
	}
	return &course, nil
}

func (m *mockBackend) DeleteCourse(ctx context.Context, id int64) error {
	kept := m.courses[:0]
	for _, course := range m.courses {
		if course.ID != id {
			kept = append(kept, course)
		}
	}
	m.courses = kept
	return nil
}

func (m *mockBackend) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return append([]models.Enrollment(nil), m.enrollments...), nil
}

func (m *mockBackend) ListPendingRequests(ctx context.Context) ([]models.Request, error) {
	if m.requestsErr != nil {
		return nil, m.requestsErr
	}
	return append([]models.Request(nil), m.requests...), nil
}

func (m *mockBackend) InsertRequest(ctx context.Context, userID string, courseID int64, kind models.RequestKind) error {
	m.insertedRequests++
	m.nextRequestID++
	m.requests = append(m.requests, models.Request{
		ID:       m.nextRequestID + 100,
		UserID:   userID,
		CourseID: courseID,
		Kind:     kind,
		Status:   models.StatusPending,
	})
	return nil
}

func (m *mockBackend) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	if !m.dropPending(id) {
		return appErrors.Clone(appErrors.ErrRemote, "request is not pending")
	}
	if m.statusUpdates == nil {
		m.statusUpdates = map[int64]models.RequestStatus{}
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockBackend) ApproveRequest(ctx context.Context, req models.Request) error {
	if m.approveErr != nil {
		return m.approveErr
	}
	if !m.dropPending(req.ID) {
		return appErrors.Clone(appErrors.ErrRemote, "request is not pending")
	}
	m.enrollments = append(m.enrollments, models.Enrollment{UserID: req.UserID, CourseID: req.CourseID})
	return nil
}

func (m *mockBackend) dropPending(id int64) bool {
	for i, req := range m.requests {
		if req.ID == id {
			m.requests = append(m.requests[:i], m.requests[i+1:]...)
			return true
		}
	}
	return false
}

type fakeActor struct {
	id    string
	admin bool
}

func (a fakeActor) Identity() *models.Identity { return &models.Identity{ID: a.id} }
func (a fakeActor) IsAdmin() bool              { return a.admin }

func professorCourse(id int64, professorID string) models.Course {
	return models.Course{ID: id, Name: "Algebra", MaxCapacity: 10, ProfessorID: &professorID, ProfessorName: "Dr. Prof"}
}

func newTestStore(b *mockBackend) *CourseStore {
	return NewCourseStore(b, nil, nil, zap.NewNop())
}

func TestIsUserInvolvedDisjuncts(t *testing.T) {
	ctx := context.Background()

	t.Run("enrollment only", func(t *testing.T) {
		b := &mockBackend{
			courses:     []models.Course{{ID: 1, Name: "Algebra"}},
			enrollments: []models.Enrollment{{UserID: "u1", CourseID: 1}},
		}
		s := newTestStore(b)
		require.NoError(t, s.FetchCourses(ctx))
		assert.True(t, s.IsUserInvolved("u1", 1))
		assert.False(t, s.IsUserInvolved("u2", 1))
	})

	t.Run("pending request only", func(t *testing.T) {
		b := &mockBackend{
			courses:  []models.Course{{ID: 1, Name: "Algebra"}},
			requests: []models.Request{{ID: 5, UserID: "u2", CourseID: 1, Kind: models.KindEnrollStudent, Status: models.StatusPending}},
		}
		s := newTestStore(b)
		require.NoError(t, s.FetchCourses(ctx))
		assert.True(t, s.IsUserInvolved("u2", 1))
		assert.False(t, s.IsUserInvolved("u2", 2))
	})

	t.Run("assigned professor only", func(t *testing.T) {
		b := &mockBackend{courses: []models.Course{professorCourse(1, "u3")}}
		s := newTestStore(b)
		require.NoError(t, s.FetchCourses(ctx))
		assert.True(t, s.IsUserInvolved("u3", 1))
		assert.False(t, s.IsUserInvolved("u4", 1))
	})
}

func TestSendRequestDuplicatePending(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{
		courses:  []models.Course{{ID: 1, Name: "Algebra"}},
		requests: []models.Request{{ID: 9, UserID: "u1", CourseID: 1, Kind: models.KindEnrollStudent, Status: models.StatusPending}},
	}
	s := newTestStore(b)
	require.NoError(t, s.FetchRequests(ctx))

	err := s.SendRequest(ctx, "u1", 1, models.KindEnrollStudent)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateRequest))
	assert.Zero(t, b.insertedRequests, "duplicate must not create a second remote record")

	// Same pair in the professor variant shares the enroll category.
	err = s.SendRequest(ctx, "u1", 1, models.KindEnrollProfessor)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateRequest))

	// A different category is a different pending slot.
	require.NoError(t, s.SendRequest(ctx, "u1", 1, models.KindUnenrollStudent))
	assert.Equal(t, 1, b.insertedRequests)
}

func TestSendRequestRequiresIdentityAndKind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&mockBackend{})

	err := s.SendRequest(ctx, "", 1, models.KindEnrollStudent)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthenticated))

	err = s.SendRequest(ctx, "u1", 1, models.RequestKind("BOGUS"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestApproveRequestSuccess(t *testing.T) {
	ctx := context.Background()
	req := models.Request{ID: 7, UserID: "u1", CourseID: 2, Kind: models.KindEnrollStudent, Status: models.StatusPending}
	b := &mockBackend{
		courses:  []models.Course{{ID: 2, Name: "Calculo"}},
		requests: []models.Request{req},
	}
	s := newTestStore(b)
	require.NoError(t, s.FetchCourses(ctx))

	require.NoError(t, s.ApproveRequest(ctx, fakeActor{id: "admin", admin: true}, req))

	for _, pending := range s.PendingRequests() {
		assert.NotEqual(t, int64(7), pending.ID)
	}
	assert.True(t, s.Enrollments().Contains("u1", 2), "approval must add the membership")
}

func TestApproveRequestRemoteFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	req := models.Request{ID: 7, UserID: "u1", CourseID: 2, Kind: models.KindEnrollStudent, Status: models.StatusPending}
	b := &mockBackend{
		courses:    []models.Course{{ID: 2, Name: "Calculo"}},
		requests:   []models.Request{req},
		approveErr: appErrors.Clone(appErrors.ErrRemote, "approval transaction failed"),
	}
	s := newTestStore(b)
	require.NoError(t, s.FetchCourses(ctx))

	err := s.ApproveRequest(ctx, fakeActor{id: "admin", admin: true}, req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRemote))

	require.Len(t, s.PendingRequests(), 1, "request must stay pending on remote failure")
	assert.False(t, s.Enrollments().Contains("u1", 2), "no partial state on failure")
}

func TestApproveAndRejectRequireAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&mockBackend{})

	err := s.ApproveRequest(ctx, fakeActor{id: "u1"}, models.Request{ID: 1})
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	err = s.RejectRequest(ctx, nil, 1)
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))
}

func TestRejectThenApproveTerminalRequest(t *testing.T) {
	ctx := context.Background()
	req := models.Request{ID: 42, UserID: "u1", CourseID: 3, Kind: models.KindEnrollStudent, Status: models.StatusPending}
	b := &mockBackend{
		courses:  []models.Course{{ID: 3, Name: "Fisica"}},
		requests: []models.Request{req},
	}
	s := newTestStore(b)
	require.NoError(t, s.FetchCourses(ctx))
	admin := fakeActor{id: "admin", admin: true}

	require.NoError(t, s.RejectRequest(ctx, admin, 42))
	assert.Empty(t, s.PendingRequests())
	assert.Equal(t, models.StatusRejected, b.statusUpdates[42])

	// The backend keeps terminal states final; approving afterwards surfaces
	// the constraint violation instead of silently succeeding.
	err := s.ApproveRequest(ctx, admin, req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRemote))
	assert.False(t, s.Enrollments().Contains("u1", 3))
}

func TestCapacityNormalization(t *testing.T) {
	ctx := context.Background()
	admin := fakeActor{id: "admin", admin: true}
	b := &mockBackend{}
	s := newTestStore(b)

	cases := []struct {
		submitted int
		stored    int
	}{
		{0, 1},
		{-5, 1},
		{25, 25},
	}
	for _, tc := range cases {
		course, err := s.AddCourse(ctx, admin, models.CourseInput{Name: "Algebra", MaxCapacity: tc.submitted})
		require.NoError(t, err)
		assert.Equal(t, tc.stored, course.MaxCapacity)
	}

	_, err := s.UpdateCourse(ctx, admin, 1, models.CourseInput{Name: "Algebra"})
	require.NoError(t, err)
	last := b.capturedInputs[len(b.capturedInputs)-1]
	assert.Equal(t, 1, last.MaxCapacity, "missing capacity coerces to 1 on update too")
}

func TestCourseMutationsRequireAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(&mockBackend{})
	student := fakeActor{id: "u1"}

	_, err := s.AddCourse(ctx, student, models.CourseInput{Name: "Algebra"})
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	_, err = s.UpdateCourse(ctx, student, 1, models.CourseInput{Name: "Algebra"})
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	err = s.DeleteCourse(ctx, student, 1)
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))
}

func TestDeleteCoursePrunesBothCollections(t *testing.T) {
	ctx := context.Background()
	admin := fakeActor{id: "admin", admin: true}
	b := &mockBackend{
		courses:     []models.Course{{ID: 1, Name: "Algebra"}, {ID: 2, Name: "Calculo"}},
		enrollments: []models.Enrollment{{UserID: "u1", CourseID: 1}, {UserID: "u1", CourseID: 2}},
	}
	s := newTestStore(b)
	require.NoError(t, s.FetchCourses(ctx))
	_, err := s.FetchMyCourses(ctx, &models.Identity{ID: "u1"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCourse(ctx, admin, 1))

	for _, course := range s.Courses() {
		assert.NotEqual(t, int64(1), course.ID)
	}
	for _, course := range s.MyCourses("u1") {
		assert.NotEqual(t, int64(1), course.ID)
	}
}

func TestFetchEnrollmentsFullReplace(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{enrollments: []models.Enrollment{
		{UserID: "u1", CourseID: 1},
		{UserID: "u1", CourseID: 2},
		{UserID: "u2", CourseID: 1},
	}}
	s := newTestStore(b)
	require.NoError(t, s.FetchEnrollments(ctx))
	assert.Len(t, s.Enrollments(), 2)

	b.enrollments = []models.Enrollment{{UserID: "u1", CourseID: 1}}
	require.NoError(t, s.FetchEnrollments(ctx))

	m := s.Enrollments()
	assert.Len(t, m, 1)
	assert.False(t, m.Contains("u2", 1), "stale entries must not survive a refresh")
	assert.False(t, m.Contains("u1", 2))
}

func TestFetchCoursesToleratesDependentFailures(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{
		courses:     []models.Course{{ID: 1, Name: "Algebra"}},
		requestsErr: appErrors.Clone(appErrors.ErrRemote, "requests unavailable"),
	}
	s := newTestStore(b)

	require.NoError(t, s.FetchCourses(ctx))
	assert.Len(t, s.Courses(), 1, "a failed request fetch must not discard courses")
}

func TestFetchCoursesKeepsStaleCatalogOnFailure(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{courses: []models.Course{{ID: 1, Name: "Algebra"}}}
	s := newTestStore(b)
	require.NoError(t, s.FetchCourses(ctx))

	b.listErr = appErrors.Clone(appErrors.ErrRemote, "backend down")
	err := s.FetchCourses(ctx)
	require.Error(t, err)
	assert.Len(t, s.Courses(), 1, "stale catalog survives a failed refresh")
}

func TestFetchMyCourses(t *testing.T) {
	ctx := context.Background()

	t.Run("no identity issues no request", func(t *testing.T) {
		b := &mockBackend{}
		s := newTestStore(b)
		list, err := s.FetchMyCourses(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("union of enrolled and assigned, deduplicated", func(t *testing.T) {
		b := &mockBackend{
			courses: []models.Course{
				{ID: 1, Name: "Algebra"},
				professorCourse(2, "u1"),
			},
			enrollments:      []models.Enrollment{{UserID: "u1", CourseID: 1}, {UserID: "u1", CourseID: 2}},
			professorCourses: map[string][]int64{"u1": {2}},
		}
		s := newTestStore(b)
		list, err := s.FetchMyCourses(ctx, &models.Identity{ID: "u1"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, list, s.MyCourses("u1"))
	})
}
