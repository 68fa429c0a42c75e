package model

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle state of a class session
type SessionState string

const (
	SessionStateScheduled SessionState = "SCHEDULED"
	SessionStateOpen      SessionState = "OPEN"
	SessionStateClosed    SessionState = "CLOSED" // terminal
)

// SessionEvent triggers a lifecycle transition
type SessionEvent string

const (
	SessionEventOpen  SessionEvent = "open"
	SessionEventClose SessionEvent = "close"
)

// AttendanceMethod defines how students check in
type AttendanceMethod string

const (
	AttendanceMethodDirect AttendanceMethod = "DIRECT"
	AttendanceMethodCode   AttendanceMethod = "CODE"
)

func (m AttendanceMethod) IsValid() bool {
	return m == AttendanceMethodDirect || m == AttendanceMethodCode
}

// ClassSession is one scheduled meeting of a course
type ClassSession struct {
	ID             int64            `json:"id"`
	CourseID       int64            `json:"course_id"`
	StartAt        time.Time        `json:"start_at"`
	EndAt          time.Time        `json:"end_at"`
	Room           string           `json:"room"`
	Method         AttendanceMethod `json:"attendance_method"`
	AttendanceCode *string          `json:"attendance_code"` // nil until first issued
	State          SessionState     `json:"state"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// IsOpen reports whether attendance may currently be recorded
func (s *ClassSession) IsOpen() bool {
	return s.State == SessionStateOpen
}

// IsClosed reports whether the session reached its terminal state
func (s *ClassSession) IsClosed() bool {
	return s.State == SessionStateClosed
}

// UsesCode reports whether self-check requires the attendance code
func (s *ClassSession) UsesCode() bool {
	return s.Method == AttendanceMethodCode
}

// Code returns the current attendance code or an empty string
func (s *ClassSession) Code() string {
	if s.AttendanceCode == nil {
		return ""
	}
	return *s.AttendanceCode
}

// Transition is the single transition function of the session lifecycle.
//
//	SCHEDULED --open--> OPEN --close--> CLOSED
func Transition(from SessionState, event SessionEvent) (SessionState, error) {
	switch {
	case from == SessionStateScheduled && event == SessionEventOpen:
		return SessionStateOpen, nil
	case from == SessionStateOpen && event == SessionEventClose:
		return SessionStateClosed, nil
	}
	return from, fmt.Errorf("%w: cannot %s a session in state %s", ErrInvalidTransition, event, from)
}
