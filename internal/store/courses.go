package store

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusudc/asesorias-api/internal/models"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
)

type courseBackend interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	CoursesByIDs(ctx context.Context, ids []int64) ([]models.Course, error)
	CourseIDsByProfessor(ctx context.Context, professorID string) ([]int64, error)
	InsertCourse(ctx context.Context, in models.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, in models.CourseInput) (*models.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	ListPendingRequests(ctx context.Context) ([]models.Request, error)
	InsertRequest(ctx context.Context, userID string, courseID int64, kind models.RequestKind) error
	UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error
	ApproveRequest(ctx context.Context, req models.Request) error
}

// Actor is the session view the store needs for authorization checks.
type Actor interface {
	Identity() *models.Identity
	IsAdmin() bool
}

// CourseStore owns the three collections: the course catalog, the
// user→course-set enrollment mapping, and the pending request set. All
// mutations re-derive local state from the backend-confirmed response rather
// than trusting locally-built objects, because denormalized display fields are
// joins the backend computes. One instance exists per process; the browser
// original was single-threaded, here an RWMutex guards concurrent handlers.
type CourseStore struct {
	backend  courseBackend
	catalog  *CatalogCache
	validate *validator.Validate
	logger   *zap.Logger

	mu          sync.RWMutex
	courses     []models.Course
	enrollments models.EnrollmentMap
	requests    []models.Request
	myCourses   map[string][]models.Course
}

// NewCourseStore constructs the store. catalog may be nil to disable the
// redis snapshot.
func NewCourseStore(b courseBackend, catalog *CatalogCache, validate *validator.Validate, logger *zap.Logger) *CourseStore {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseStore{
		backend:     b,
		catalog:     catalog,
		validate:    validate,
		logger:      logger,
		enrollments: models.EnrollmentMap{},
		myCourses:   map[string][]models.Course{},
	}
}

// Courses returns a snapshot of the catalog.
func (s *CourseStore) Courses() []models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Course(nil), s.courses...)
}

// PendingRequests returns a snapshot of the pending request set.
func (s *CourseStore) PendingRequests() []models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Request(nil), s.requests...)
}

// Enrollments returns a snapshot of the membership mapping.
func (s *CourseStore) Enrollments() models.EnrollmentMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enrollments.Clone()
}

// MyCourses returns the cached course set for a user.
func (s *CourseStore) MyCourses(userID string) []models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Course(nil), s.myCourses[userID]...)
}

// IsUserInvolved reports whether the user is enrolled in the course, has a
// pending request for it, or is its assigned professor. It is always derived
// from the three collections, never cached separately.
func (s *CourseStore) IsUserInvolved(userID string, courseID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.enrollments.Contains(userID, courseID) {
		return true
	}
	for _, req := range s.requests {
		if req.UserID == userID && req.CourseID == courseID && req.Status == models.StatusPending {
			return true
		}
	}
	for _, course := range s.courses {
		if course.ID == courseID && course.ProfessorID != nil && *course.ProfessorID == userID {
			return true
		}
	}
	return false
}

// FetchCourses refreshes the catalog, then enrollments and pending requests
// as a dependent sequence. Failures in the dependent legs are logged and do
// not discard the already-fetched catalog; a failed catalog fetch keeps the
// previous snapshot (falling back to the redis copy when the store is cold).
func (s *CourseStore) FetchCourses(ctx context.Context) error {
	courses, err := s.backend.ListCourses(ctx)
	if err != nil {
		s.logger.Warn("course fetch failed, serving stale catalog", zap.Error(err))
		s.restoreCatalogSnapshot(ctx)
		return err
	}

	s.mu.Lock()
	s.courses = courses
	s.mu.Unlock()
	s.catalog.Set(ctx, courses)

	if err := s.FetchEnrollments(ctx); err != nil {
		s.logger.Warn("enrollment refresh failed after course fetch", zap.Error(err))
	}
	if err := s.FetchRequests(ctx); err != nil {
		s.logger.Warn("request refresh failed after course fetch", zap.Error(err))
	}
	return nil
}

func (s *CourseStore) restoreCatalogSnapshot(ctx context.Context) {
	s.mu.RLock()
	empty := len(s.courses) == 0
	s.mu.RUnlock()
	if !empty {
		return
	}
	if cached, ok := s.catalog.Get(ctx); ok {
		s.mu.Lock()
		s.courses = cached
		s.mu.Unlock()
	}
}

// FetchEnrollments rebuilds the user→course-set mapping from scratch. The
// replacement is wholesale so stale entries cannot survive a refresh.
func (s *CourseStore) FetchEnrollments(ctx context.Context) error {
	rows, err := s.backend.ListEnrollments(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.enrollments = models.BuildEnrollmentMap(rows)
	s.mu.Unlock()
	return nil
}

// FetchRequests refreshes the pending request set.
func (s *CourseStore) FetchRequests(ctx context.Context) error {
	requests, err := s.backend.ListPendingRequests(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.requests = requests
	s.mu.Unlock()
	return nil
}

// FetchMyCourses computes the identity's course set as the union of enrolled
// courses and courses where the user is the assigned professor, then loads the
// full records for that id set. Without an identity it produces an empty
// result without issuing a request.
func (s *CourseStore) FetchMyCourses(ctx context.Context, identity *models.Identity) ([]models.Course, error) {
	if identity == nil || identity.ID == "" {
		return nil, nil
	}

	if err := s.FetchEnrollments(ctx); err != nil {
		s.logger.Warn("enrollment refresh failed before my-courses", zap.Error(err))
	}

	s.mu.RLock()
	enrolled := append([]int64(nil), s.enrollments[identity.ID]...)
	s.mu.RUnlock()

	assigned, err := s.backend.CourseIDsByProfessor(ctx, identity.ID)
	if err != nil {
		s.logger.Warn("professor course lookup failed", zap.String("user_id", identity.ID), zap.Error(err))
	}

	seen := make(map[int64]struct{}, len(enrolled)+len(assigned))
	ids := make([]int64, 0, len(enrolled)+len(assigned))
	for _, id := range append(enrolled, assigned...) {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		s.mu.Lock()
		s.myCourses[identity.ID] = nil
		s.mu.Unlock()
		return nil, nil
	}

	courses, err := s.backend.CoursesByIDs(ctx, ids)
	if err != nil {
		return s.MyCourses(identity.ID), err
	}

	s.mu.Lock()
	s.myCourses[identity.ID] = courses
	s.mu.Unlock()
	return append([]models.Course(nil), courses...), nil
}

// SendRequest submits a solicitud after checking the in-memory pending set for
// a duplicate with the same (user, course, kind-category). The check is best
// effort; the backend may enforce the same constraint authoritatively. On
// success the three collections are refreshed so derived display fields stay
// consistent.
func (s *CourseStore) SendRequest(ctx context.Context, userID string, courseID int64, kind models.RequestKind) error {
	if userID == "" {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "request requires an authenticated user")
	}
	if !kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown request kind")
	}

	if s.hasPending(userID, courseID, kind.Category()) {
		return appErrors.Clone(appErrors.ErrDuplicateRequest, "a pending request already exists for this course")
	}

	if err := s.backend.InsertRequest(ctx, userID, courseID, kind); err != nil {
		return err
	}

	if err := s.FetchRequests(ctx); err != nil {
		s.logger.Warn("request refresh failed after submit", zap.Error(err))
	}
	if err := s.FetchCourses(ctx); err != nil {
		s.logger.Warn("course refresh failed after submit", zap.Error(err))
	}
	return nil
}

func (s *CourseStore) hasPending(userID string, courseID int64, category models.RequestCategory) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if req.UserID == userID && req.CourseID == courseID &&
			req.Status == models.StatusPending && req.Kind.Category() == category {
			return true
		}
	}
	return false
}

// ApproveRequest delegates the combined "mark approved + create enrollment"
// transition to the backend's atomic procedure. On failure the request stays
// in the local pending set, mirroring the unchanged remote state.
func (s *CourseStore) ApproveRequest(ctx context.Context, actor Actor, req models.Request) error {
	if actor == nil || !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "only administrators can approve requests")
	}

	if err := s.backend.ApproveRequest(ctx, req); err != nil {
		return err
	}

	s.removePending(req.ID)

	if err := s.FetchEnrollments(ctx); err != nil {
		s.logger.Warn("enrollment refresh failed after approval", zap.Error(err))
	}
	if _, err := s.FetchMyCourses(ctx, &models.Identity{ID: req.UserID}); err != nil {
		s.logger.Warn("my-courses refresh failed after approval", zap.String("user_id", req.UserID), zap.Error(err))
	}
	return nil
}

// RejectRequest marks a pending solicitud rejected and drops it locally.
func (s *CourseStore) RejectRequest(ctx context.Context, actor Actor, requestID int64) error {
	if actor == nil || !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "only administrators can reject requests")
	}

	if err := s.backend.UpdateRequestStatus(ctx, requestID, models.StatusRejected); err != nil {
		return err
	}

	s.removePending(requestID)
	return nil
}

func (s *CourseStore) removePending(requestID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.requests[:0]
	for _, req := range s.requests {
		if req.ID != requestID {
			filtered = append(filtered, req)
		}
	}
	s.requests = filtered
}

// AddCourse creates a course. The cache takes the backend-confirmed record so
// the denormalized professor name stays authoritative.
func (s *CourseStore) AddCourse(ctx context.Context, actor Actor, in models.CourseInput) (*models.Course, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrPermissionDenied, "only administrators can create courses")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	in.MaxCapacity = in.SafeCapacity()

	course, err := s.backend.InsertCourse(ctx, in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.courses = append(s.courses, *course)
	s.mu.Unlock()
	s.catalog.Invalidate(ctx)
	return course, nil
}

// UpdateCourse edits a course, replacing the cached record (and any my-courses
// copies) with the backend-confirmed row.
func (s *CourseStore) UpdateCourse(ctx context.Context, actor Actor, id int64, in models.CourseInput) (*models.Course, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrPermissionDenied, "only administrators can edit courses")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	in.MaxCapacity = in.SafeCapacity()

	course, err := s.backend.UpdateCourse(ctx, id, in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i := range s.courses {
		if s.courses[i].ID == id {
			s.courses[i] = *course
		}
	}
	for user, list := range s.myCourses {
		for i := range list {
			if list[i].ID == id {
				list[i] = *course
				s.myCourses[user] = list
			}
		}
	}
	s.mu.Unlock()
	s.catalog.Invalidate(ctx)
	return course, nil
}

// DeleteCourse removes a course from the backend and both local collections.
func (s *CourseStore) DeleteCourse(ctx context.Context, actor Actor, id int64) error {
	if actor == nil || !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "only administrators can delete courses")
	}

	if err := s.backend.DeleteCourse(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	filtered := s.courses[:0]
	for _, course := range s.courses {
		if course.ID != id {
			filtered = append(filtered, course)
		}
	}
	s.courses = filtered
	for user, list := range s.myCourses {
		kept := list[:0]
		for _, course := range list {
			if course.ID != id {
				kept = append(kept, course)
			}
		}
		s.myCourses[user] = kept
	}
	s.mu.Unlock()
	s.catalog.Invalidate(ctx)
	return nil
}
