package models

// UnassignedProfessor is the display name used when a course has no professor.
const UnassignedProfessor = "Sin asignar"

// Course is a row of the asesorias table. ProfessorName is denormalized display
// data resolved by joining usuarios on every fetch; it is never authoritative.
type Course struct {
	ID            int64   `db:"id" json:"id"`
	Name          string  `db:"nombre" json:"nombre"`
	Description   string  `db:"descripcion" json:"descripcion"`
	Schedule      string  `db:"horario" json:"horario"`
	MaxCapacity   int     `db:"cupo_maximo" json:"cupo_maximo"`
	ProfessorID   *string `db:"id_profesor" json:"id_profesor,omitempty"`
	ProfessorName string  `db:"profesor_nombre" json:"profesor_nombre"`
}

// CourseInput carries the admin-submitted fields for creating or editing a course.
type CourseInput struct {
	Name        string  `json:"nombre" validate:"required"`
	Description string  `json:"descripcion"`
	Schedule    string  `json:"horario"`
	MaxCapacity int     `json:"cupo_maximo"`
	ProfessorID *string `json:"id_profesor"`
}

// SafeCapacity coerces a non-positive or missing capacity to the minimum of 1.
func (in CourseInput) SafeCapacity() int {
	if in.MaxCapacity > 0 {
		return in.MaxCapacity
	}
	return 1
}
