package model

import "time"

// RequestStatus is the decision state of an excuse or appeal
type RequestStatus string

// Request status constants
const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED" // terminal
	RequestStatusRejected RequestStatus = "REJECTED" // terminal
)

// IsActive reports whether the request blocks a new submission for the same target
func (s RequestStatus) IsActive() bool {
	return s == RequestStatusPending || s == RequestStatusApproved
}

// Excuse reason codes
const (
	ReasonCodeSick     = "SICK"
	ReasonCodeFamily   = "FAMILY"
	ReasonCodeOfficial = "OFFICIAL"
	ReasonCodeOther    = "OTHER"
)

// ExcuseRequest is a student's claim justifying an absence from a session
type ExcuseRequest struct {
	ID           int64         `json:"id"`
	SessionID    int64         `json:"session_id"`
	StudentID    int64         `json:"student_id"`
	Reason       string        `json:"reason"`
	ReasonCode   string        `json:"reason_code"`
	FileURLs     []string      `json:"file_urls"`
	Status       RequestStatus `json:"status"`
	DecidedBy    *int64        `json:"decided_by"`
	DecisionNote string        `json:"decision_note"`
	CreatedAt    time.Time     `json:"created_at"`
	DecidedAt    *time.Time    `json:"decided_at"`
}

// IsPending checks if request is pending
func (r *ExcuseRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// AppealRecord contests an existing attendance record
type AppealRecord struct {
	ID              int64             `json:"id"`
	RecordID        int64             `json:"record_id"`
	StudentID       int64             `json:"student_id"`
	RequestedStatus AttendanceStatus  `json:"requested_status"`
	Reason          string            `json:"reason"`
	Status          RequestStatus     `json:"status"`
	CorrectedStatus *AttendanceStatus `json:"corrected_status"` // set on approval
	DecidedBy       *int64            `json:"decided_by"`
	DecisionNote    string            `json:"decision_note"`
	CreatedAt       time.Time         `json:"created_at"`
	DecidedAt       *time.Time        `json:"decided_at"`
}

// IsPending checks if appeal is pending
func (a *AppealRecord) IsPending() bool {
	return a.Status == RequestStatusPending
}

// Upload is a file attached to an excuse before it reaches storage
type Upload struct {
	Filename string
	Data     []byte
}

// FileMeta describes a validated upload handed to file storage
type FileMeta struct {
	Filename    string
	ContentType string
	Extension   string
	Size        int64
	OwnerID     int64
}
