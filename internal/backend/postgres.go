package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusudc/asesorias-api/internal/models"
	"github.com/campusudc/asesorias-api/pkg/config"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
)

// Connect opens the hosted data tier's Postgres surface.
func Connect(cfg config.BackendConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// DataClient implements DataService against the hosted Postgres surface.
// Row-level security lives on the hosted side; the client only translates
// calls and maps "no matching row" to NotFound where a single row is expected.
type DataClient struct {
	db *sqlx.DB
}

// NewDataClient constructs the data client.
func NewDataClient(db *sqlx.DB) *DataClient {
	return &DataClient{db: db}
}

const courseColumns = `a.id, a.nombre, a.descripcion, a.horario, a.cupo_maximo, a.id_profesor,
	COALESCE(u.nombre, 'Sin asignar') AS profesor_nombre`

const courseBase = `FROM asesorias a LEFT JOIN usuarios u ON u.id = a.id_profesor`

// ProfileByID fetches a usuarios row by identity id.
func (c *DataClient) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, nombre, correo, rol FROM usuarios WHERE id = $1 LIMIT 1`
	return c.profile(ctx, query, id)
}

// ProfileByEmail fetches a usuarios row by email.
func (c *DataClient) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	const query = `SELECT id, nombre, correo, rol FROM usuarios WHERE correo = $1 LIMIT 1`
	return c.profile(ctx, query, email)
}

func (c *DataClient) profile(ctx context.Context, query string, arg interface{}) (*models.Profile, error) {
	var row struct {
		ID       string `db:"id"`
		FullName string `db:"nombre"`
		Email    string `db:"correo"`
		Role     string `db:"rol"`
	}
	if err := c.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Remote(err, "fetch profile")
	}
	return &models.Profile{
		ID:       row.ID,
		FullName: row.FullName,
		Email:    row.Email,
		Role:     models.ParseRole(row.Role),
	}, nil
}

// CreateProfile inserts a usuarios row for a first-time login.
func (c *DataClient) CreateProfile(ctx context.Context, profile *models.Profile) error {
	const query = `INSERT INTO usuarios (id, nombre, correo, rol) VALUES ($1, $2, $3, $4)`
	if _, err := c.db.ExecContext(ctx, query, profile.ID, profile.FullName, profile.Email, string(profile.Role)); err != nil {
		return appErrors.Remote(err, "create profile")
	}
	return nil
}

// ListCourses returns all courses with professor display names resolved.
func (c *DataClient) ListCourses(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s %s ORDER BY a.id`, courseColumns, courseBase)
	var courses []models.Course
	if err := c.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, appErrors.Remote(err, "list courses")
	}
	return courses, nil
}

// CoursesByIDs returns the full records for the given course id set.
func (c *DataClient) CoursesByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE a.id = ANY($1) ORDER BY a.id`, courseColumns, courseBase)
	var courses []models.Course
	if err := c.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, appErrors.Remote(err, "fetch courses by id")
	}
	return courses, nil
}

// CourseIDsByProfessor returns ids of courses assigned to the professor.
func (c *DataClient) CourseIDsByProfessor(ctx context.Context, professorID string) ([]int64, error) {
	const query = `SELECT id FROM asesorias WHERE id_profesor = $1`
	var ids []int64
	if err := c.db.SelectContext(ctx, &ids, query, professorID); err != nil {
		return nil, appErrors.Remote(err, "fetch professor courses")
	}
	return ids, nil
}

func (c *DataClient) courseByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE a.id = $1 LIMIT 1`, courseColumns, courseBase)
	var course models.Course
	if err := c.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Remote(err, "fetch course")
	}
	return &course, nil
}

// InsertCourse creates a course and returns the backend-confirmed record with
// the professor name already joined.
func (c *DataClient) InsertCourse(ctx context.Context, in models.CourseInput) (*models.Course, error) {
	const query = `INSERT INTO asesorias (nombre, descripcion, horario, cupo_maximo, id_profesor)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int64
	if err := c.db.GetContext(ctx, &id, query, in.Name, in.Description, in.Schedule, in.SafeCapacity(), in.ProfessorID); err != nil {
		return nil, appErrors.Remote(err, "create course")
	}
	return c.courseByID(ctx, id)
}

// UpdateCourse edits a course and returns the backend-confirmed record.
func (c *DataClient) UpdateCourse(ctx context.Context, id int64, in models.CourseInput) (*models.Course, error) {
	const query = `UPDATE asesorias SET nombre = $2, descripcion = $3, horario = $4, cupo_maximo = $5, id_profesor = $6
        WHERE id = $1`
	res, err := c.db.ExecContext(ctx, query, id, in.Name, in.Description, in.Schedule, in.SafeCapacity(), in.ProfessorID)
	if err != nil {
		return nil, appErrors.Remote(err, "update course")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return c.courseByID(ctx, id)
}

// DeleteCourse removes a course.
func (c *DataClient) DeleteCourse(ctx context.Context, id int64) error {
	const query = `DELETE FROM asesorias WHERE id = $1`
	res, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return appErrors.Remote(err, "delete course")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}

// ListEnrollments returns every (user, course) membership row.
func (c *DataClient) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	const query = `SELECT userid, cursoid FROM inscripciones`
	var rows []models.Enrollment
	if err := c.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, appErrors.Remote(err, "list enrollments")
	}
	return rows, nil
}

// CourseRoster returns the profiles enrolled in a course.
func (c *DataClient) CourseRoster(ctx context.Context, courseID int64) ([]models.Profile, error) {
	const query = `SELECT u.id, u.nombre, u.correo, u.rol FROM inscripciones i
        JOIN usuarios u ON u.id = i.userid WHERE i.cursoid = $1 ORDER BY u.nombre`
	var rows []struct {
		ID       string `db:"id"`
		FullName string `db:"nombre"`
		Email    string `db:"correo"`
		Role     string `db:"rol"`
	}
	if err := c.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, appErrors.Remote(err, "fetch course roster")
	}
	roster := make([]models.Profile, 0, len(rows))
	for _, row := range rows {
		roster = append(roster, models.Profile{
			ID:       row.ID,
			FullName: row.FullName,
			Email:    row.Email,
			Role:     models.ParseRole(row.Role),
		})
	}
	return roster, nil
}

// ListPendingRequests returns pending solicitudes with display names resolved.
func (c *DataClient) ListPendingRequests(ctx context.Context) ([]models.Request, error) {
	const query = `SELECT s.id, s.user_id, s.curso_id, s.solicitud_tipo, s.estado_solicitud, s.created_at,
        COALESCE(a.nombre, 'Curso desconocido') AS curso_nombre,
        COALESCE(u.nombre, 'Usuario desconocido') AS usuario_nombre
        FROM solicitudes s
        LEFT JOIN asesorias a ON a.id = s.curso_id
        LEFT JOIN usuarios u ON u.id = s.user_id
        WHERE s.estado_solicitud = $1 ORDER BY s.created_at`
	var requests []models.Request
	if err := c.db.SelectContext(ctx, &requests, query, models.StatusPending); err != nil {
		return nil, appErrors.Remote(err, "list pending requests")
	}
	return requests, nil
}

// InsertRequest creates a pending solicitud.
func (c *DataClient) InsertRequest(ctx context.Context, userID string, courseID int64, kind models.RequestKind) error {
	const query = `INSERT INTO solicitudes (user_id, curso_id, solicitud_tipo, estado_solicitud) VALUES ($1, $2, $3, $4)`
	if _, err := c.db.ExecContext(ctx, query, userID, courseID, string(kind), models.StatusPending); err != nil {
		return appErrors.Remote(err, "create request")
	}
	return nil
}

// UpdateRequestStatus moves a pending solicitud to a terminal state. The WHERE
// clause keeps terminal states final: touching an already-resolved request is a
// backend constraint violation, not a silent success.
func (c *DataClient) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	const query = `UPDATE solicitudes SET estado_solicitud = $2 WHERE id = $1 AND estado_solicitud = $3`
	res, err := c.db.ExecContext(ctx, query, id, status, models.StatusPending)
	if err != nil {
		return appErrors.Remote(err, "update request status")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrRemote, "request is not pending")
	}
	return nil
}

// ApproveRequest delegates "mark approved + create enrollment" to the hosted
// handle_solicitud_approval procedure so the transition stays atomic server-side.
func (c *DataClient) ApproveRequest(ctx context.Context, req models.Request) error {
	const query = `SELECT handle_solicitud_approval($1, $2, $3, $4)`
	if _, err := c.db.ExecContext(ctx, query, req.ID, req.UserID, req.CourseID, string(req.Kind)); err != nil {
		return appErrors.Remote(err, "approve request")
	}
	return nil
}
