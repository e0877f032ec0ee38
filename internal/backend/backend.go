// Package backend adapts the hosted backend-as-a-service: the tabular data
// surface (Postgres, reached through the service's pooled connection) and the
// authentication endpoints. All authoritative state lives on that side; this
// package only translates calls and error shapes.
package backend

import (
	"context"

	"github.com/campusudc/asesorias-api/internal/models"
)

// DataService is the tabular CRUD surface plus the one atomic approval procedure.
// Single-row lookups return pkg/errors ErrNotFound on absence, never a bare
// driver error.
type DataService interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error

	ListCourses(ctx context.Context) ([]models.Course, error)
	CoursesByIDs(ctx context.Context, ids []int64) ([]models.Course, error)
	CourseIDsByProfessor(ctx context.Context, professorID string) ([]int64, error)
	InsertCourse(ctx context.Context, in models.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, in models.CourseInput) (*models.Course, error)
	DeleteCourse(ctx context.Context, id int64) error

	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	CourseRoster(ctx context.Context, courseID int64) ([]models.Profile, error)

	ListPendingRequests(ctx context.Context) ([]models.Request, error)
	InsertRequest(ctx context.Context, userID string, courseID int64, kind models.RequestKind) error
	UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error
	ApproveRequest(ctx context.Context, req models.Request) error
}

// Session is the outcome of a successful sign-in against the auth service.
type Session struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int64           `json:"expires_in"`
	Identity     models.Identity `json:"identity"`
}

// AuthService is the hosted authentication surface.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// SessionFromToken resolves the identity bound to an access token, or
	// nil when the token is absent or no longer represents a session.
	SessionFromToken(accessToken string) (*models.Identity, error)
}
