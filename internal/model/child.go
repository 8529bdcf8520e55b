package model

import "time"

// Child ребёнок, закреплённый за родителем. Количество детей в брони
// определяет число занимаемых мест в каждом слоте daycare.
type Child struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate time.Time `json:"birth_date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
