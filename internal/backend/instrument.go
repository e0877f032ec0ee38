package backend

import (
	"context"
	"time"

	"github.com/campusudc/asesorias-api/internal/models"
)

// CallObserver receives the outcome of every backend call.
type CallObserver interface {
	ObserveBackendCall(operation string, duration time.Duration, err error)
}

// InstrumentedData decorates a DataService with per-operation call metrics.
type InstrumentedData struct {
	next DataService
	obs  CallObserver
}

// NewInstrumentedData wraps a DataService. A nil observer returns the service
// unchanged.
func NewInstrumentedData(next DataService, obs CallObserver) DataService {
	if obs == nil {
		return next
	}
	return &InstrumentedData{next: next, obs: obs}
}

func (d *InstrumentedData) observe(operation string, start time.Time, err error) {
	d.obs.ObserveBackendCall(operation, time.Since(start), err)
}

func (d *InstrumentedData) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	start := time.Now()
	profile, err := d.next.ProfileByID(ctx, id)
	d.observe("profile_by_id", start, err)
	return profile, err
}

func (d *InstrumentedData) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	start := time.Now()
	profile, err := d.next.ProfileByEmail(ctx, email)
	d.observe("profile_by_email", start, err)
	return profile, err
}

func (d *InstrumentedData) CreateProfile(ctx context.Context, profile *models.Profile) error {
	start := time.Now()
	err := d.next.CreateProfile(ctx, profile)
	d.observe("create_profile", start, err)
	return err
}

func (d *InstrumentedData) ListCourses(ctx context.Context) ([]models.Course, error) {
	start := time.Now()
	courses, err := d.next.ListCourses(ctx)
	d.observe("list_courses", start, err)
	return courses, err
}

func (d *InstrumentedData) CoursesByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	start := time.Now()
	courses, err := d.next.CoursesByIDs(ctx, ids)
	d.observe("courses_by_ids", start, err)
	return courses, err
}

func (d *InstrumentedData) CourseIDsByProfessor(ctx context.Context, professorID string) ([]int64, error) {
	start := time.Now()
	ids, err := d.next.CourseIDsByProfessor(ctx, professorID)
	d.observe("course_ids_by_professor", start, err)
	return ids, err
}

func (d *InstrumentedData) InsertCourse(ctx context.Context, in models.CourseInput) (*models.Course, error) {
	start := time.Now()
	course, err := d.next.InsertCourse(ctx, in)
	d.observe("insert_course", start, err)
	return course, err
}

func (d *InstrumentedData) UpdateCourse(ctx context.Context, id int64, in models.CourseInput) (*models.Course, error) {
	start := time.Now()
	course, err := d.next.UpdateCourse(ctx, id, in)
	d.observe("update_course", start, err)
	return course, err
}

func (d *InstrumentedData) DeleteCourse(ctx context.Context, id int64) error {
	start := time.Now()
	err := d.next.DeleteCourse(ctx, id)
	d.observe("delete_course", start, err)
	return err
}

func (d *InstrumentedData) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	start := time.Now()
	rows, err := d.next.ListEnrollments(ctx)
	d.observe("list_enrollments", start, err)
	return rows, err
}

func (d *InstrumentedData) CourseRoster(ctx context.Context, courseID int64) ([]models.Profile, error) {
	start := time.Now()
	roster, err := d.next.CourseRoster(ctx, courseID)
	d.observe("course_roster", start, err)
	return roster, err
}

func (d *InstrumentedData) ListPendingRequests(ctx context.Context) ([]models.Request, error) {
	start := time.Now()
	requests, err := d.next.ListPendingRequests(ctx)
	d.observe("list_pending_requests", start, err)
	return requests, err
}

func (d *InstrumentedData) InsertRequest(ctx context.Context, userID string, courseID int64, kind models.RequestKind) error {
	start := time.Now()
	err := d.next.InsertRequest(ctx, userID, courseID, kind)
	d.observe("insert_request", start, err)
	return err
}

func (d *InstrumentedData) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	start := time.Now()
	err := d.next.UpdateRequestStatus(ctx, id, status)
	d.observe("update_request_status", start, err)
	return err
}

func (d *InstrumentedData) ApproveRequest(ctx context.Context, req models.Request) error {
	start := time.Now()
	err := d.next.ApproveRequest(ctx, req)
	d.observe("approve_request", start, err)
	return err
}
