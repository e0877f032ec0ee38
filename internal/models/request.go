package models

import "time"

// RequestKind enumerates the solicitud types.
type RequestKind string

const (
	KindEnrollStudent     RequestKind = "ENROLL_STUDENT"
	KindEnrollProfessor   RequestKind = "ENROLL_PROFESSOR"
	KindUnenrollStudent   RequestKind = "UNENROLL_STUDENT"
	KindUnenrollProfessor RequestKind = "UNENROLL_PROFESSOR"
)

// Valid reports whether the kind is a known enumeration value.
func (k RequestKind) Valid() bool {
	switch k {
	case KindEnrollStudent, KindEnrollProfessor, KindUnenrollStudent, KindUnenrollProfessor:
		return true
	}
	return false
}

// RequestCategory groups kinds for the duplicate-pending invariant: at most one
// pending request per (user, course, category).
type RequestCategory string

const (
	CategoryEnroll   RequestCategory = "ENROLL"
	CategoryUnenroll RequestCategory = "UNENROLL"
)

// Category returns the kind's category.
func (k RequestKind) Category() RequestCategory {
	switch k {
	case KindUnenrollStudent, KindUnenrollProfessor:
		return CategoryUnenroll
	}
	return CategoryEnroll
}

// RequestStatus is the solicitud lifecycle: pending → approved | rejected.
// Terminal states are final.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

// Request is a row of the solicitudes table. CourseName and UserName are
// denormalized display fields the backend resolves per fetch.
type Request struct {
	ID         int64         `db:"id" json:"id"`
	UserID     string        `db:"user_id" json:"user_id"`
	CourseID   int64         `db:"curso_id" json:"curso_id"`
	Kind       RequestKind   `db:"solicitud_tipo" json:"solicitud_tipo"`
	Status     RequestStatus `db:"estado_solicitud" json:"estado_solicitud"`
	CourseName string        `db:"curso_nombre" json:"curso_nombre"`
	UserName   string        `db:"usuario_nombre" json:"usuario_nombre"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}
