package model

import "time"

// Audit actions
const (
	AuditSessionCreate   = "SESSION_CREATE"
	AuditSessionOpen     = "SESSION_OPEN"
	AuditSessionClose    = "SESSION_CLOSE"
	AuditSessionCode     = "SESSION_CODE_REGENERATE"
	AuditAttendanceMark  = "ATTENDANCE_MARK"
	AuditAttendanceEdit  = "ATTENDANCE_UPDATE"
	AuditAttendanceSweep = "ATTENDANCE_RECONCILE"
	AuditExcuseCreate    = "EXCUSE_CREATE"
	AuditExcuseDecide    = "EXCUSE_DECIDE"
	AuditAppealCreate    = "APPEAL_CREATE"
	AuditAppealDecide    = "APPEAL_DECIDE"
	AuditPolicyUpdate    = "POLICY_UPDATE"
)

// Audit target types
const (
	TargetSession    = "class_session"
	TargetAttendance = "attendance_record"
	TargetExcuse     = "excuse_request"
	TargetAppeal     = "appeal_record"
	TargetPolicy     = "attendance_policy"
)

// AuditEntry captures one state change
type AuditEntry struct {
	ID         int64          `json:"id"`
	ActorID    int64          `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   int64          `json:"target_id"`
	OldValue   map[string]any `json:"old_value"`
	NewValue   map[string]any `json:"new_value"`
	CreatedAt  time.Time      `json:"created_at"`
}
