package service

import (
	"context"
	"time"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// Store порт движка бронирований к реляционному хранилищу.
// Вся взаимная блокировка конкурентных запросов делегируется
// транзакционной изоляции хранилища, внутрипроцессных локов нет.
type Store interface {
	// WithSerializable выполняет fn в serializable-транзакции с ретраями
	// конфликтов сериализации. Ошибки вызывающей стороны прерывают
	// транзакцию без ретраев.
	WithSerializable(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Read возвращает Tx поверх пула для внетранзакционных чтений.
	// Такие чтения консультативные: решения о допуске всегда
	// перепроверяются внутри транзакции записи.
	Read() Tx
}

// Tx операции хранилища, доступные внутри (и вне) транзакции
type Tx interface {
	// Слоты
	CreateSlot(ctx context.Context, slot *model.Slot) error
	SlotByID(ctx context.Context, id int64) (*model.Slot, error)
	SlotsByIDs(ctx context.Context, ids []int64) ([]*model.Slot, error)
	OpenDaycareSlots(ctx context.Context, from, to time.Time) ([]*model.Slot, error)
	SlotsInRange(ctx context.Context, kind model.ResourceKind, from, to time.Time) ([]*model.Slot, error)
	OverlappingSlots(ctx context.Context, kind model.ResourceKind, excludeID int64, date, start, end time.Time) ([]*model.Slot, error)
	UpdateSlot(ctx context.Context, slot *model.Slot) error
	SetSlotAvailable(ctx context.Context, id int64, available int) error
	DeleteSlots(ctx context.Context, ids []int64) error

	// Бронирования
	CreateBooking(ctx context.Context, b *model.Booking) error
	BookingByID(ctx context.Context, id int64) (*model.Booking, error)
	BookingByReference(ctx context.Context, reference string) (*model.Booking, error)
	UpdateBooking(ctx context.Context, b *model.Booking) error
	UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus) error
	DeleteBooking(ctx context.Context, id int64) error
	LinkSlots(ctx context.Context, bookingID int64, slotIDs []int64) error
	UnlinkSlots(ctx context.Context, bookingID int64) error
	LinkChildren(ctx context.Context, bookingID int64, childIDs []int64) error
	UnlinkChildren(ctx context.Context, bookingID int64) error
	HasActiveBookingOnSlots(ctx context.Context, userID *int64, guestEmail string, slotIDs []int64, excludeID int64) (bool, error)
	ActiveBookingCount(ctx context.Context, slotID int64) (int, error)
	BookingsByUser(ctx context.Context, userID int64) ([]*model.Booking, error)
	AllBookings(ctx context.Context) ([]*model.Booking, error)
	ElapsedBookings(ctx context.Context, now time.Time) ([]*model.Booking, error)

	// Дети
	ChildrenBelongToUser(ctx context.Context, userID int64, childIDs []int64) (bool, error)
}

// Caller идентичность вызывающей стороны, разрешённая снаружи
// (аутентификация не входит в обязанности движка).
type Caller struct {
	UserID    int64      // 0 для гостя
	Role      model.Role // tutor | admin | guest
	Reference string     // код управления гостевой бронью
}

// CanActOn проверяет право действовать над бронированием:
// своё бронирование, совпавший гостевой код или роль администратора.
func (c Caller) CanActOn(b *model.Booking) bool {
	if c.Role == model.RoleAdmin {
		return true
	}
	if c.UserID != 0 && b.OwnedByUser(c.UserID) {
		return true
	}
	if b.IsGuest() && b.Reference != "" && b.Reference == c.Reference {
		return true
	}
	return false
}
