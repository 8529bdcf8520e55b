package service

import (
	"context"
	"fmt"
	"time"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// ConflictValidator не пускает пересекающиеся и дублирующие определения
// слотов. Работает только на административных операциях со слотами,
// транзакции бронирования его не вызывают.
type ConflictValidator struct{}

func NewConflictValidator() *ConflictValidator {
	return &ConflictValidator{}
}

// CheckNoConflict отклоняет окно с end <= start, точный дубликат
// (совпавшие дата и границы) и пересечение с существующим слотом того
// же вида: existing.start <= end && existing.end >= start. Слоты
// впритык (end одного == start другого) пересечением не считаются.
// excludeID исключает сам слот при обновлении.
func (v *ConflictValidator) CheckNoConflict(ctx context.Context, tx Tx, kind model.ResourceKind, excludeID int64, date, start, end time.Time) error {
	if !end.After(start) {
		return model.ErrInvalidWindow
	}

	existing, err := tx.OverlappingSlots(ctx, kind, excludeID, date, start, end)
	if err != nil {
		return err
	}

	for _, s := range existing {
		// Граница в точке касания допустима
		if s.EndTime.Equal(start) || s.StartTime.Equal(end) {
			continue
		}
		if s.StartTime.Equal(start) && s.EndTime.Equal(end) {
			return fmt.Errorf("%w: duplicate of slot %d", model.ErrSlotConflict, s.ID)
		}
		return fmt.Errorf("%w: overlaps slot %d (%s - %s)",
			model.ErrSlotConflict,
			s.ID,
			s.StartTime.Format(time.RFC3339),
			s.EndTime.Format(time.RFC3339),
		)
	}

	return nil
}
