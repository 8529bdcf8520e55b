package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/capacity"
	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/notify"
)

// BookingService движок бронирований: разрешает слоты под запрошенное
// окно, проверяет допуск и атомарно выполняет запись брони вместе с
// изменением остатков мест. Все операции записи идут через
// serializable-транзакцию хранилища.
type BookingService struct {
	store    Store
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewBookingService(store Store, notifier notify.Notifier, logger *zap.Logger) *BookingService {
	return &BookingService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock подменяет источник времени (для тестов)
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

type CreateDaycareInput struct {
	Caller   Caller
	Start    time.Time
	End      time.Time
	ChildIDs []int64
	Comment  string
}

type CreateIntervalInput struct {
	Caller  Caller
	Kind    model.ResourceKind
	SlotID  int64
	Guest   model.GuestContact
	Comment string
}

type ModifyInput struct {
	Caller    Caller
	BookingID int64
	Start     time.Time // новое окно; нулевое значение — оставить прежнее
	End       time.Time
	SlotID    int64   // новый слот для birthday/meeting; 0 — прежний
	ChildIDs  []int64 // новый состав детей; nil — прежний
	Comment   *string
}

// CreateDaycare бронирует почасовое посещение: окно [Start, End) должно
// быть полностью покрыто открытыми часовыми слотами, с каждого слота
// списывается по месту на каждого ребёнка.
func (s *BookingService) CreateDaycare(ctx context.Context, in CreateDaycareInput) (*model.Booking, error) {
	if in.Caller.UserID == 0 {
		return nil, model.ErrPermissionDenied
	}
	childIDs := uniqueChildIDs(in.ChildIDs)
	if len(childIDs) == 0 {
		return nil, model.ErrInvalidWindow
	}

	start, end := in.Start.UTC(), in.End.UTC()
	units := len(childIDs)

	// Консультативная проверка вне транзакции: отсекает заведомо
	// невозможные запросы до открытия serializable-транзакции.
	if _, err := s.daycarePlan(ctx, s.store.Read(), start, end, units); err != nil {
		return nil, err
	}

	userID := in.Caller.UserID
	var booking *model.Booking

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.ChildrenBelongToUser(ctx, userID, childIDs)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrPermissionDenied
		}

		// Перепроверка по свежим строкам: данные консультативной
		// проверки к этому моменту могли устареть.
		plan, err := s.daycarePlan(ctx, tx, start, end, units)
		if err != nil {
			return err
		}

		dup, err := tx.HasActiveBookingOnSlots(ctx, &userID, "", plan.SlotIDs(), 0)
		if err != nil {
			return err
		}
		if dup {
			return model.ErrDuplicateBooking
		}

		b := &model.Booking{
			Kind:      model.KindDaycare,
			UserID:    &userID,
			StartTime: start,
			EndTime:   end,
			Units:     units,
			Status:    model.BookingStatusConfirmed,
			Comment:   in.Comment,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.LinkSlots(ctx, b.ID, plan.SlotIDs()); err != nil {
			return err
		}
		if err := tx.LinkChildren(ctx, b.ID, childIDs); err != nil {
			return err
		}
		if err := s.acquire(ctx, tx, plan); err != nil {
			return err
		}

		b.SlotIDs = plan.SlotIDs()
		b.ChildIDs = childIDs
		b.Slots = plan.Slots
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Daycare booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", userID),
		zap.Int("units", units),
		zap.Int("slots", len(booking.SlotIDs)),
	)
	s.sendNotification(ctx, booking, notify.TemplateCreated)

	return booking, nil
}

// CreateInterval бронирует разовый слот (день рождения или встречу).
// Гостевые брони получают код управления и статус pending до
// подтверждения администратором.
func (s *BookingService) CreateInterval(ctx context.Context, in CreateIntervalInput) (*model.Booking, error) {
	if !in.Kind.SingleInterval() {
		return nil, model.ErrInvalidWindow
	}

	var userID *int64
	if in.Caller.UserID != 0 {
		id := in.Caller.UserID
		userID = &id
	} else if in.Guest.Email == "" {
		return nil, model.ErrPermissionDenied
	}

	// Консультативная проверка вне транзакции
	if _, err := s.intervalPlan(ctx, s.store.Read(), in.Kind, in.SlotID); err != nil {
		return nil, err
	}

	var booking *model.Booking

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		plan, err := s.intervalPlan(ctx, tx, in.Kind, in.SlotID)
		if err != nil {
			return err
		}

		dup, err := tx.HasActiveBookingOnSlots(ctx, userID, in.Guest.Email, plan.SlotIDs(), 0)
		if err != nil {
			return err
		}
		if dup {
			return model.ErrDuplicateBooking
		}

		slot := plan.Slots[0]
		b := &model.Booking{
			Kind:      in.Kind,
			UserID:    userID,
			Guest:     in.Guest,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Units:     1,
			Status:    model.BookingStatusConfirmed,
			Comment:   in.Comment,
		}
		if userID == nil {
			b.Reference = uuid.NewString()
			b.Status = model.BookingStatusPending
		}

		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.LinkSlots(ctx, b.ID, plan.SlotIDs()); err != nil {
			return err
		}
		if err := s.acquire(ctx, tx, plan); err != nil {
			return err
		}

		b.SlotIDs = plan.SlotIDs()
		b.Slots = plan.Slots
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Interval booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("kind", string(booking.Kind)),
		zap.Int64("slot_id", in.SlotID),
		zap.Bool("guest", booking.IsGuest()),
	)
	s.sendNotification(ctx, booking, notify.TemplateCreated)

	return booking, nil
}

// Modify изменяет бронирование: в одной транзакции возвращает места
// прежних слотов по текущему количеству, затем занимает новые.
// Порядок release-then-acquire фиксирован: неудавшийся acquire
// откатывает и release.
func (s *BookingService) Modify(ctx context.Context, in ModifyInput) (*model.Booking, error) {
	var booking *model.Booking

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.BookingByID(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return model.ErrBookingNotFound
		}
		if !in.Caller.CanActOn(b) {
			return model.ErrPermissionDenied
		}
		if b.Status.Terminal() {
			return model.ErrTerminalState
		}

		if err := s.release(ctx, tx, b); err != nil {
			return err
		}
		if err := tx.UnlinkSlots(ctx, b.ID); err != nil {
			return err
		}

		var plan *capacity.Plan
		switch b.Kind {
		case model.KindDaycare:
			childIDs := b.ChildIDs
			if in.ChildIDs != nil {
				childIDs = uniqueChildIDs(in.ChildIDs)
			}
			if len(childIDs) == 0 {
				return model.ErrInvalidWindow
			}
			if b.UserID != nil {
				ok, err := tx.ChildrenBelongToUser(ctx, *b.UserID, childIDs)
				if err != nil {
					return err
				}
				if !ok {
					return model.ErrPermissionDenied
				}
			}

			start, end := b.StartTime, b.EndTime
			if !in.Start.IsZero() {
				start = in.Start.UTC()
			}
			if !in.End.IsZero() {
				end = in.End.UTC()
			}

			plan, err = s.daycarePlan(ctx, tx, start, end, len(childIDs))
			if err != nil {
				return err
			}

			if in.ChildIDs != nil {
				if err := tx.UnlinkChildren(ctx, b.ID); err != nil {
					return err
				}
				if err := tx.LinkChildren(ctx, b.ID, childIDs); err != nil {
					return err
				}
			}
			b.ChildIDs = childIDs
			b.StartTime, b.EndTime = start, end

		default:
			slotID := in.SlotID
			if slotID == 0 && len(b.SlotIDs) > 0 {
				slotID = b.SlotIDs[0]
			}
			plan, err = s.intervalPlan(ctx, tx, b.Kind, slotID)
			if err != nil {
				return err
			}
			slot := plan.Slots[0]
			b.StartTime, b.EndTime = slot.StartTime, slot.EndTime
		}

		dup, err := tx.HasActiveBookingOnSlots(ctx, b.UserID, b.Guest.Email, plan.SlotIDs(), b.ID)
		if err != nil {
			return err
		}
		if dup {
			return model.ErrDuplicateBooking
		}

		if err := tx.LinkSlots(ctx, b.ID, plan.SlotIDs()); err != nil {
			return err
		}
		if err := s.acquire(ctx, tx, plan); err != nil {
			return err
		}

		b.Units = plan.Units
		if in.Comment != nil {
			b.Comment = *in.Comment
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}

		b.SlotIDs = plan.SlotIDs()
		b.Slots = plan.Slots
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking modified",
		zap.Int64("booking_id", booking.ID),
		zap.Int("units", booking.Units),
	)
	s.sendNotification(ctx, booking, notify.TemplateModified)

	return booking, nil
}

// Confirm подтверждает pending-бронь. Только для администратора.
func (s *BookingService) Confirm(ctx context.Context, caller Caller, bookingID int64) (*model.Booking, error) {
	if caller.Role != model.RoleAdmin {
		return nil, model.ErrPermissionDenied
	}

	var booking *model.Booking
	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return model.ErrBookingNotFound
		}
		if b.Status == model.BookingStatusConfirmed {
			booking = b
			return nil
		}
		if b.Status != model.BookingStatusPending {
			return model.ErrTerminalState
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingStatusConfirmed); err != nil {
			return err
		}
		b.Status = model.BookingStatusConfirmed
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendNotification(ctx, booking, notify.TemplateConfirmed)
	return booking, nil
}

// Cancel отменяет бронирование и возвращает места. Идемпотентно:
// повторная отмена ничего не меняет.
func (s *BookingService) Cancel(ctx context.Context, caller Caller, bookingID int64) error {
	var canceled *model.Booking

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		canceled = nil

		b, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return model.ErrBookingNotFound
		}
		if !caller.CanActOn(b) {
			return model.ErrPermissionDenied
		}
		if b.Status == model.BookingStatusCanceled {
			return nil
		}
		if b.Status == model.BookingStatusClosed {
			return model.ErrTerminalState
		}

		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingStatusCanceled); err != nil {
			return err
		}
		if err := s.release(ctx, tx, b); err != nil {
			return err
		}

		b.Status = model.BookingStatusCanceled
		canceled = b
		return nil
	})
	if err != nil {
		return err
	}

	if canceled != nil {
		s.logger.Info("Booking canceled", zap.Int64("booking_id", canceled.ID))
		s.sendNotification(ctx, canceled, notify.TemplateCanceled)
	}

	return nil
}

// Delete удаляет бронирование. Места возвращаются только если их ещё
// не вернула отмена; связи снимаются до удаления записи, чтобы не
// упасть на внешних ключах.
func (s *BookingService) Delete(ctx context.Context, caller Caller, bookingID int64) error {
	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return model.ErrBookingNotFound
		}
		if !caller.CanActOn(b) {
			return model.ErrPermissionDenied
		}

		if b.Status != model.BookingStatusCanceled {
			if err := s.release(ctx, tx, b); err != nil {
				return err
			}
		}

		if err := tx.UnlinkSlots(ctx, b.ID); err != nil {
			return err
		}
		if err := tx.UnlinkChildren(ctx, b.ID); err != nil {
			return err
		}
		return tx.DeleteBooking(ctx, b.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking deleted", zap.Int64("booking_id", bookingID))
	return nil
}

// CloseElapsed переводит брони с истёкшим окном в статус closed.
// Места не возвращаются: ресурс потреблён за прошедший период.
// Уведомления best-effort и не откатывают смену статуса.
func (s *BookingService) CloseElapsed(ctx context.Context) (closed, notified int, err error) {
	var elapsed []*model.Booking

	err = s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		elapsed = nil

		list, err := tx.ElapsedBookings(ctx, s.now().UTC())
		if err != nil {
			return err
		}
		for _, b := range list {
			if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingStatusClosed); err != nil {
				return err
			}
			b.Status = model.BookingStatusClosed
		}
		elapsed = list
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	for _, b := range elapsed {
		if err := s.notifier.Send(ctx, b, notify.TemplateClosed); err != nil {
			s.logger.Warn("Failed to send close notification",
				zap.Int64("booking_id", b.ID),
				zap.Error(err),
			)
			continue
		}
		notified++
	}

	if len(elapsed) > 0 {
		s.logger.Info("Closed elapsed bookings",
			zap.Int("closed", len(elapsed)),
			zap.Int("notified", notified),
		)
	}

	return len(elapsed), notified, nil
}

// Get возвращает бронирование с проверкой прав
func (s *BookingService) Get(ctx context.Context, caller Caller, bookingID int64) (*model.Booking, error) {
	b, err := s.store.Read().BookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, model.ErrBookingNotFound
	}
	if !caller.CanActOn(b) {
		return nil, model.ErrPermissionDenied
	}
	return b, nil
}

// GetByReference возвращает гостевое бронирование по коду управления
func (s *BookingService) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	b, err := s.store.Read().BookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, model.ErrBookingNotFound
	}
	return b, nil
}

// List возвращает брони вызывающей стороны; администратор видит все
func (s *BookingService) List(ctx context.Context, caller Caller) ([]*model.Booking, error) {
	if caller.Role == model.RoleAdmin {
		return s.store.Read().AllBookings(ctx)
	}
	if caller.UserID == 0 {
		return nil, model.ErrPermissionDenied
	}
	return s.store.Read().BookingsByUser(ctx, caller.UserID)
}

// daycarePlan разрешает открытые часовые слоты под окно и строит план
// списания. Вызывается и консультативно, и внутри транзакции записи.
func (s *BookingService) daycarePlan(ctx context.Context, tx Tx, start, end time.Time, units int) (*capacity.Plan, error) {
	keys, err := capacity.HourKeys(start, end)
	if err != nil {
		return nil, err
	}

	from := keys[0].Start()
	to := from.Add(time.Duration(len(keys)) * time.Hour)

	slots, err := tx.OpenDaycareSlots(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return capacity.BuildPlan(slots, len(keys), units)
}

// intervalPlan разрешает одиночный слот по идентификатору
func (s *BookingService) intervalPlan(ctx context.Context, tx Tx, kind model.ResourceKind, slotID int64) (*capacity.Plan, error) {
	slot, err := tx.SlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil || slot.Kind != kind {
		return nil, model.ErrSlotNotFound
	}

	return capacity.BuildPlan([]*model.Slot{slot}, 1, 1)
}

// acquire списывает места плана с каждого слота. Проверка инварианта
// после списания защитная: план уже гарантировал достаточность.
func (s *BookingService) acquire(ctx context.Context, tx Tx, plan *capacity.Plan) error {
	for _, slot := range plan.Slots {
		newAvailable := slot.Available - plan.Units
		if err := capacity.CheckAdjust(slot, newAvailable); err != nil {
			s.logger.Error("Capacity invariant violated on acquire",
				zap.Int64("slot_id", slot.ID),
				zap.Int("available", slot.Available),
				zap.Int("units", plan.Units),
				zap.Error(err),
			)
			return err
		}
		if err := tx.SetSlotAvailable(ctx, slot.ID, newAvailable); err != nil {
			return err
		}
		slot.Available = newAvailable
	}
	return nil
}

// release возвращает места брони её слотам. Остаток зажимается сверху
// вместимостью: срабатывание зажима означает прежнюю рассинхронизацию
// учёта и фиксируется в логе.
func (s *BookingService) release(ctx context.Context, tx Tx, b *model.Booking) error {
	if len(b.SlotIDs) == 0 {
		return nil
	}

	slots, err := tx.SlotsByIDs(ctx, b.SlotIDs)
	if err != nil {
		return err
	}

	for _, slot := range slots {
		newAvailable := slot.Available + b.Units
		if newAvailable > slot.Capacity {
			s.logger.Warn("Capacity release clamped",
				zap.Int64("slot_id", slot.ID),
				zap.Int64("booking_id", b.ID),
				zap.Int("available", slot.Available),
				zap.Int("units", b.Units),
				zap.Int("capacity", slot.Capacity),
			)
			newAvailable = slot.Capacity
		}
		if err := tx.SetSlotAvailable(ctx, slot.ID, newAvailable); err != nil {
			return err
		}
		slot.Available = newAvailable
	}
	return nil
}

// uniqueChildIDs убирает повторы, сохраняя порядок: количество мест
// брони равно числу различных детей.
func uniqueChildIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *BookingService) sendNotification(ctx context.Context, b *model.Booking, key notify.TemplateKey) {
	if err := s.notifier.Send(ctx, b, key); err != nil {
		s.logger.Warn("Failed to send booking notification",
			zap.Int64("booking_id", b.ID),
			zap.String("template", string(key)),
			zap.Error(err),
		)
	}
}
