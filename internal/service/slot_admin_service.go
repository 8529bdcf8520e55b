package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// SlotAdminService административные операции над слотами: создание
// (поштучно и пакетно), обновление и удаление. Все пути создания и
// обновления сначала проходят через ConflictValidator; удаление слота
// с активными бронями запрещено.
type SlotAdminService struct {
	store     Store
	validator *ConflictValidator
	logger    *zap.Logger
}

func NewSlotAdminService(store Store, validator *ConflictValidator, logger *zap.Logger) *SlotAdminService {
	return &SlotAdminService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

type CreateSlotInput struct {
	Kind     model.ResourceKind
	Start    time.Time
	End      time.Time
	Capacity int
}

// BatchInput параметры пакетной генерации часовых слотов daycare:
// рабочие дни Пн-Чт на Days дней вперёд, часы [StartHour, EndHour).
type BatchInput struct {
	From      time.Time
	Days      int
	StartHour int
	EndHour   int
	Capacity  int
}

type UpdateSlotInput struct {
	Capacity *int
	Status   *model.SlotStatus
	Start    *time.Time
	End      *time.Time
}

// CreateSlot создаёт слот после проверки на пересечения.
// Часовые слоты daycare обязаны быть выровнены по границе часа.
func (s *SlotAdminService) CreateSlot(ctx context.Context, in CreateSlotInput) (*model.Slot, error) {
	if !in.Kind.Valid() || in.Capacity < 1 {
		return nil, model.ErrInvalidWindow
	}

	start, end := in.Start.UTC(), in.End.UTC()
	if in.Kind == model.KindDaycare {
		if !start.Truncate(time.Hour).Equal(start) || !end.Equal(start.Add(time.Hour)) {
			return nil, model.ErrInvalidWindow
		}
	}

	slot := buildSlot(in.Kind, start, end, in.Capacity)

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		if err := s.validator.CheckNoConflict(ctx, tx, in.Kind, 0, slot.Date, start, end); err != nil {
			return err
		}
		return tx.CreateSlot(ctx, slot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.String("kind", string(slot.Kind)),
		zap.Time("start", slot.StartTime),
		zap.Int("capacity", slot.Capacity),
	)

	return slot, nil
}

// CreateSlotBatch генерирует часовые слоты daycare на рабочие дни
// Пн-Чт. Уже существующие часы пропускаются, а не считаются ошибкой.
func (s *SlotAdminService) CreateSlotBatch(ctx context.Context, in BatchInput) (int, error) {
	if in.Days < 1 || in.StartHour < 0 || in.EndHour <= in.StartHour || in.EndHour > 24 || in.Capacity < 1 {
		return 0, model.ErrInvalidWindow
	}

	created := 0
	day := in.From.UTC().Truncate(24 * time.Hour)

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		created = 0
		for d := 0; d < in.Days; d++ {
			date := day.AddDate(0, 0, d)
			switch date.Weekday() {
			case time.Monday, time.Tuesday, time.Wednesday, time.Thursday:
			default:
				continue
			}

			for hour := in.StartHour; hour < in.EndHour; hour++ {
				start := date.Add(time.Duration(hour) * time.Hour)
				end := start.Add(time.Hour)

				if err := s.validator.CheckNoConflict(ctx, tx, model.KindDaycare, 0, date, start, end); err != nil {
					if model.IsCallerError(err) {
						continue // слот на этот час уже есть
					}
					return err
				}

				slot := buildSlot(model.KindDaycare, start, end, in.Capacity)
				if err := tx.CreateSlot(ctx, slot); err != nil {
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Slot batch generated",
		zap.Int("created", created),
		zap.Int("days", in.Days),
	)

	return created, nil
}

// UpdateSlot обновляет вместимость, статус и границы слота.
// Снижение вместимости ниже занятых мест отклоняется, остаток
// сдвигается на дельту вместимости.
func (s *SlotAdminService) UpdateSlot(ctx context.Context, id int64, in UpdateSlotInput) (*model.Slot, error) {
	var updated *model.Slot

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		slot, err := tx.SlotByID(ctx, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return model.ErrSlotNotFound
		}

		if in.Start != nil || in.End != nil {
			start, end := slot.StartTime, slot.EndTime
			if in.Start != nil {
				start = in.Start.UTC()
			}
			if in.End != nil {
				end = in.End.UTC()
			}
			if slot.Kind == model.KindDaycare {
				if !start.Truncate(time.Hour).Equal(start) || !end.Equal(start.Add(time.Hour)) {
					return model.ErrInvalidWindow
				}
			}
			date := start.Truncate(24 * time.Hour)
			if err := s.validator.CheckNoConflict(ctx, tx, slot.Kind, slot.ID, date, start, end); err != nil {
				return err
			}
			slot.StartTime, slot.EndTime, slot.Date = start, end, date
			if slot.Kind == model.KindDaycare {
				hour := start.Hour()
				slot.Hour = &hour
			}
		}

		if in.Capacity != nil {
			consumed := slot.Consumed()
			if *in.Capacity < consumed {
				return model.ErrSlotHasBookings
			}
			slot.Available = *in.Capacity - consumed
			slot.Capacity = *in.Capacity
		}

		if in.Status != nil {
			slot.Status = *in.Status
		}

		if err := tx.UpdateSlot(ctx, slot); err != nil {
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot updated",
		zap.Int64("slot_id", updated.ID),
		zap.Int("capacity", updated.Capacity),
		zap.Int("available", updated.Available),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// DeleteSlot удаляет слот без активных бронирований
func (s *SlotAdminService) DeleteSlot(ctx context.Context, id int64) error {
	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		slot, err := tx.SlotByID(ctx, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return model.ErrSlotNotFound
		}

		active, err := tx.ActiveBookingCount(ctx, slot.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return model.ErrSlotHasBookings
		}

		return tx.DeleteSlots(ctx, []int64{slot.ID})
	})
	if err != nil {
		return err
	}

	s.logger.Info("Slot deleted", zap.Int64("slot_id", id))
	return nil
}

// DeleteSlotsInRange удаляет слоты вида kind, начинающиеся в [from, to).
// Отклоняется целиком, если хотя бы один слот диапазона держит
// активные брони.
func (s *SlotAdminService) DeleteSlotsInRange(ctx context.Context, kind model.ResourceKind, from, to time.Time) (int, error) {
	deleted := 0

	err := s.store.WithSerializable(ctx, func(ctx context.Context, tx Tx) error {
		slots, err := tx.SlotsInRange(ctx, kind, from.UTC(), to.UTC())
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(slots))
		for _, slot := range slots {
			active, err := tx.ActiveBookingCount(ctx, slot.ID)
			if err != nil {
				return err
			}
			if active > 0 {
				return model.ErrSlotHasBookings
			}
			ids = append(ids, slot.ID)
		}

		if len(ids) == 0 {
			deleted = 0
			return nil
		}
		if err := tx.DeleteSlots(ctx, ids); err != nil {
			return err
		}
		deleted = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Slots deleted in range",
		zap.String("kind", string(kind)),
		zap.Int("deleted", deleted),
	)

	return deleted, nil
}

// ListSlots возвращает слоты вида kind в диапазоне (для расписания)
func (s *SlotAdminService) ListSlots(ctx context.Context, kind model.ResourceKind, from, to time.Time) ([]*model.Slot, error) {
	return s.store.Read().SlotsInRange(ctx, kind, from.UTC(), to.UTC())
}

func buildSlot(kind model.ResourceKind, start, end time.Time, capacity int) *model.Slot {
	slot := &model.Slot{
		Kind:      kind,
		Date:      start.Truncate(24 * time.Hour),
		StartTime: start,
		EndTime:   end,
		Capacity:  capacity,
		Available: capacity,
		Status:    model.SlotStatusOpen,
	}
	if kind == model.KindDaycare {
		hour := start.Hour()
		slot.Hour = &hour
	}
	return slot
}
