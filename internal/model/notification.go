package model

import "time"

// Notification types
const (
	NotificationSessionOpened = "SESSION_OPENED"
	NotificationStatusChanged = "ATTENDANCE_UPDATED"
	NotificationExcuseCreated = "EXCUSE_SUBMITTED"
	NotificationExcuseDecided = "EXCUSE_DECIDED"
	NotificationAppealCreated = "APPEAL_SUBMITTED"
	NotificationAppealDecided = "APPEAL_DECIDED"
)

// NotificationMessage is the payload fanned out to recipients
type NotificationMessage struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Link    string `json:"link"`
}

// Notification is one outbox row addressed to one user
type Notification struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TelegramID  int64      `json:"telegram_id"` // filled when claimed for delivery
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Link        string     `json:"link"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}
