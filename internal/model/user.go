package model

import "time"

// Role определяет права пользователя в системе
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// IsValid checks that the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// Principal returns the authenticated identity of the user
func (u *User) Principal() *Principal {
	return &Principal{UserID: u.ID, Role: u.Role}
}

// DisplayName returns a human-readable name for messages
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		if u.LastName != "" {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "user"
}

// Principal is the opaque authenticated caller of every operation.
type Principal struct {
	UserID int64
	Role   Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func (p *Principal) IsInstructor() bool {
	return p != nil && p.Role == RoleInstructor
}

func (p *Principal) IsStudent() bool {
	return p != nil && p.Role == RoleStudent
}
