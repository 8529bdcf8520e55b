package model

import "time"

type ResourceKind string

const (
	KindDaycare  ResourceKind = "daycare"  // Почасовое посещение группы
	KindBirthday ResourceKind = "birthday" // День рождения (разовый интервал)
	KindMeeting  ResourceKind = "meeting"  // Встреча/экскурсия (разовый интервал)
)

// Valid проверяет что вид ресурса известен системе
func (k ResourceKind) Valid() bool {
	switch k {
	case KindDaycare, KindBirthday, KindMeeting:
		return true
	}
	return false
}

// SingleInterval возвращает true для видов с одним интервалом (не почасовых)
func (k ResourceKind) SingleInterval() bool {
	return k == KindBirthday || k == KindMeeting
}

type SlotStatus string

const (
	SlotStatusOpen   SlotStatus = "open"
	SlotStatusClosed SlotStatus = "closed"
)

// Slot резервируемая единица времени с ограниченной вместимостью.
// Available изменяется только движком бронирований внутри транзакции,
// которая одновременно пишет связи бронирования со слотами.
type Slot struct {
	ID        int64        `json:"id"`
	Kind      ResourceKind `json:"kind"`
	Date      time.Time    `json:"date"` // календарная дата слота
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Hour      *int         `json:"hour,omitempty"` // только для daycare
	Capacity  int          `json:"capacity"`
	Available int          `json:"available"`
	Status    SlotStatus   `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Consumed возвращает количество занятых мест
func (s *Slot) Consumed() int {
	return s.Capacity - s.Available
}
