package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает подтверждения администратором
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCanceled  BookingStatus = "canceled"  // Отменено (места возвращены)
	BookingStatusClosed    BookingStatus = "closed"    // Завершено по времени (места не возвращаются)
)

// Active возвращает true если бронирование удерживает места в слотах
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Terminal возвращает true для конечных статусов
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCanceled || s == BookingStatusClosed
}

// GuestContact контактные данные гостя для броней без аккаунта
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Booking struct {
	ID        int64         `json:"id"`
	Kind      ResourceKind  `json:"kind"`
	UserID    *int64        `json:"user_id"` // nil для гостевых броней
	Guest     GuestContact  `json:"guest,omitempty"`
	Reference string        `json:"reference,omitempty"` // код управления гостевой бронью
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Units     int           `json:"units"` // мест на каждый слот (дети для daycare, 1 иначе)
	Status    BookingStatus `json:"status"`
	Comment   string        `json:"comment,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Связи, заполняются при чтении
	SlotIDs  []int64 `json:"slot_ids,omitempty"`
	ChildIDs []int64 `json:"child_ids,omitempty"`
	Slots    []*Slot `json:"slots,omitempty"`
}

// IsGuest возвращает true для брони без аккаунта
func (b *Booking) IsGuest() bool {
	return b.UserID == nil
}

// OwnedByUser проверяет принадлежность брони пользователю
func (b *Booking) OwnedByUser(userID int64) bool {
	return b.UserID != nil && *b.UserID == userID
}
