package model

import "time"

type Role string

const (
	RoleTutor Role = "tutor" // Родитель/опекун
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	Role           Role      `json:"role"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"` // для уведомлений
	CreatedAt      time.Time `json:"created_at"`
}
