package models

// Enrollment is a row of the inscripciones table: a membership-only relation.
type Enrollment struct {
	UserID   string `db:"userid" json:"userid"`
	CourseID int64  `db:"cursoid" json:"cursoid"`
}

// EnrollmentMap maps a user id to the set of course ids the user is enrolled in.
type EnrollmentMap map[string][]int64

// BuildEnrollmentMap rebuilds the mapping from scratch. Callers replace their
// previous map wholesale so stale entries cannot survive a refresh.
func BuildEnrollmentMap(rows []Enrollment) EnrollmentMap {
	m := make(EnrollmentMap, len(rows))
	for _, row := range rows {
		if row.CourseID == 0 {
			continue
		}
		m[row.UserID] = append(m[row.UserID], row.CourseID)
	}
	return m
}

// Contains reports whether the user is enrolled in the course.
func (m EnrollmentMap) Contains(userID string, courseID int64) bool {
	for _, id := range m[userID] {
		if id == courseID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (m EnrollmentMap) Clone() EnrollmentMap {
	out := make(EnrollmentMap, len(m))
	for user, ids := range m {
		out[user] = append([]int64(nil), ids...)
	}
	return out
}
