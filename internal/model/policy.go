package model

import "time"

const (
	DefaultMaxAbsent    = 3
	DefaultLateToAbsent = 3
)

// AttendancePolicy holds per-course thresholds
type AttendancePolicy struct {
	CourseID     int64      `json:"course_id"`
	MaxAbsent    int        `json:"max_absent"`     // absences allowed before failing
	LateToAbsent int        `json:"late_to_absent"` // every N lates count as one absence
	UpdatedAt    *time.Time `json:"updated_at"`     // nil for defaults
}

// DefaultPolicy returns the policy applied when a course has none stored
func DefaultPolicy(courseID int64) *AttendancePolicy {
	return &AttendancePolicy{
		CourseID:     courseID,
		MaxAbsent:    DefaultMaxAbsent,
		LateToAbsent: DefaultLateToAbsent,
	}
}
