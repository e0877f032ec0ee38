package models

import "strings"

// Role is the canonical role enumeration. Earlier revisions of the usuarios table
// carried two incompatible Spanish naming schemes; ParseRole folds both onto this one.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleProfessor Role = "PROFESSOR"
	RoleStudent   Role = "STUDENT"
	RoleGuest     Role = "GUEST"
)

// ParseRole maps a stored role value onto the canonical enumeration. Unknown or
// empty values degrade to the non-privileged guest role.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "administrador":
		return RoleAdmin
	case "profesor", "maestro", "professor":
		return RoleProfessor
	case "alumno", "student":
		return RoleStudent
	case "":
		return RoleGuest
	}
	switch Role(strings.ToUpper(raw)) {
	case RoleAdmin, RoleProfessor, RoleStudent:
		return Role(strings.ToUpper(raw))
	}
	return RoleGuest
}

// Identity is the authenticated principal as reported by the auth service.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is a row of the usuarios table.
type Profile struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"nombre" json:"nombre"`
	Email    string `db:"correo" json:"correo"`
	Role     Role   `db:"rol" json:"rol"`
}
