package model

import "time"

// AttendanceStatus is the recorded outcome for a student in a session
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
	AttendanceStatusPending AttendanceStatus = "PENDING"
)

func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent,
		AttendanceStatusExcused, AttendanceStatusPending:
		return true
	}
	return false
}

// IsResolved reports whether the status is a final outcome (anything but PENDING)
func (s AttendanceStatus) IsResolved() bool {
	return s.IsValid() && s != AttendanceStatusPending
}

// AttendanceRecord is unique per (session_id, student_id)
type AttendanceRecord struct {
	ID        int64            `json:"id"`
	SessionID int64            `json:"session_id"`
	StudentID int64            `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
	MarkedBy  int64            `json:"marked_by"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
