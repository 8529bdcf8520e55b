package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/repository/base"
	"github.com/solnyshko/kidsbooking/internal/service"
	"github.com/solnyshko/kidsbooking/internal/storage"
)

// Store реализация порта service.Store поверх pgx: пул соединений плюс
// retryable-runner serializable-транзакций.
type Store struct {
	pool     *pgxpool.Pool
	runner   *storage.TxRunner
	slots    *SlotRepository
	bookings *BookingRepository
	users    *UserRepository
	children *ChildRepository
}

func NewStore(pool *pgxpool.Pool, runner *storage.TxRunner) *Store {
	return &Store{
		pool:     pool,
		runner:   runner,
		slots:    NewSlotRepository(),
		bookings: NewBookingRepository(),
		users:    NewUserRepository(),
		children: NewChildRepository(),
	}
}

// WithSerializable выполняет fn в serializable-транзакции с ретраями
func (s *Store) WithSerializable(ctx context.Context, fn func(ctx context.Context, tx service.Tx) error) error {
	return s.runner.RunSerializable(ctx, func(ctx context.Context, pgtx pgx.Tx) error {
		return fn(ctx, s.tx(pgtx))
	})
}

// Read возвращает операции поверх пула, вне транзакции
func (s *Store) Read() service.Tx {
	return s.tx(s.pool)
}

// Users доступ к репозиторию пользователей вне движка (уведомления)
func (s *Store) Users() *UserRepository {
	return s.users
}

// TelegramChatID реализует notify.ChatResolver поверх пула
func (s *Store) TelegramChatID(ctx context.Context, userID int64) (int64, error) {
	return s.users.TelegramChatID(ctx, s.pool, userID)
}

// Pool возвращает пул соединений
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) tx(q base.Querier) *storeTx {
	return &storeTx{q: q, s: s}
}

// storeTx привязывает репозитории к конкретному Querier (пул или pgx.Tx)
type storeTx struct {
	q base.Querier
	s *Store
}

func (t *storeTx) CreateSlot(ctx context.Context, slot *model.Slot) error {
	return t.s.slots.Create(ctx, t.q, slot)
}

func (t *storeTx) SlotByID(ctx context.Context, id int64) (*model.Slot, error) {
	return t.s.slots.GetByID(ctx, t.q, id)
}

func (t *storeTx) SlotsByIDs(ctx context.Context, ids []int64) ([]*model.Slot, error) {
	return t.s.slots.GetByIDs(ctx, t.q, ids)
}

func (t *storeTx) OpenDaycareSlots(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	return t.s.slots.GetOpenDaycare(ctx, t.q, from, to)
}

func (t *storeTx) SlotsInRange(ctx context.Context, kind model.ResourceKind, from, to time.Time) ([]*model.Slot, error) {
	return t.s.slots.GetInRange(ctx, t.q, kind, from, to)
}

func (t *storeTx) OverlappingSlots(ctx context.Context, kind model.ResourceKind, excludeID int64, date, start, end time.Time) ([]*model.Slot, error) {
	return t.s.slots.GetOverlapping(ctx, t.q, kind, excludeID, date, start, end)
}

func (t *storeTx) UpdateSlot(ctx context.Context, slot *model.Slot) error {
	return t.s.slots.Update(ctx, t.q, slot)
}

func (t *storeTx) SetSlotAvailable(ctx context.Context, id int64, available int) error {
	return t.s.slots.SetAvailable(ctx, t.q, id, available)
}

func (t *storeTx) DeleteSlots(ctx context.Context, ids []int64) error {
	return t.s.slots.Delete(ctx, t.q, ids)
}

func (t *storeTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.Create(ctx, t.q, b)
}

func (t *storeTx) BookingByID(ctx context.Context, id int64) (*model.Booking, error) {
	return t.s.bookings.GetByID(ctx, t.q, id)
}

func (t *storeTx) BookingByReference(ctx context.Context, reference string) (*model.Booking, error) {
	return t.s.bookings.GetByReference(ctx, t.q, reference)
}

func (t *storeTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.Update(ctx, t.q, b)
}

func (t *storeTx) UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	return t.s.bookings.UpdateStatus(ctx, t.q, id, status)
}

func (t *storeTx) DeleteBooking(ctx context.Context, id int64) error {
	return t.s.bookings.Delete(ctx, t.q, id)
}

func (t *storeTx) LinkSlots(ctx context.Context, bookingID int64, slotIDs []int64) error {
	return t.s.bookings.LinkSlots(ctx, t.q, bookingID, slotIDs)
}

func (t *storeTx) UnlinkSlots(ctx context.Context, bookingID int64) error {
	return t.s.bookings.UnlinkSlots(ctx, t.q, bookingID)
}

func (t *storeTx) LinkChildren(ctx context.Context, bookingID int64, childIDs []int64) error {
	return t.s.bookings.LinkChildren(ctx, t.q, bookingID, childIDs)
}

func (t *storeTx) UnlinkChildren(ctx context.Context, bookingID int64) error {
	return t.s.bookings.UnlinkChildren(ctx, t.q, bookingID)
}

func (t *storeTx) HasActiveBookingOnSlots(ctx context.Context, userID *int64, guestEmail string, slotIDs []int64, excludeID int64) (bool, error) {
	return t.s.bookings.HasActiveOnSlots(ctx, t.q, userID, guestEmail, slotIDs, excludeID)
}

func (t *storeTx) ActiveBookingCount(ctx context.Context, slotID int64) (int, error) {
	return t.s.bookings.ActiveCountBySlot(ctx, t.q, slotID)
}

func (t *storeTx) BookingsByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	return t.s.bookings.GetByUser(ctx, t.q, userID)
}

func (t *storeTx) AllBookings(ctx context.Context) ([]*model.Booking, error) {
	return t.s.bookings.GetAll(ctx, t.q)
}

func (t *storeTx) ElapsedBookings(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	return t.s.bookings.GetElapsed(ctx, t.q, now)
}

func (t *storeTx) ChildrenBelongToUser(ctx context.Context, userID int64, childIDs []int64) (bool, error) {
	return t.s.children.AllBelongToUser(ctx, t.q, userID, childIDs)
}
