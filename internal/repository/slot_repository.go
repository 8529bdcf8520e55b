package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/repository/base"
)

type SlotRepository struct{}

func NewSlotRepository() *SlotRepository {
	return &SlotRepository{}
}

const slotColumns = `id, kind, slot_date, start_time, end_time, hour, capacity, available, status, created_at`

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.Kind,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Hour,
		&slot.Capacity,
		&slot.Available,
		&slot.Status,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, q base.Querier, slot *model.Slot) error {
	query := `
		INSERT INTO slots (kind, slot_date, start_time, end_time, hour, capacity, available, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := q.QueryRow(
		ctx, query,
		slot.Kind,
		slot.Date,
		slot.StartTime,
		slot.EndTime,
		slot.Hour,
		slot.Capacity,
		slot.Available,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, q base.Querier, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByIDs получает слоты по списку ID в порядке начала
func (r *SlotRepository) GetByIDs(ctx context.Context, q base.Querier, ids []int64) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = ANY($1) ORDER BY start_time`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get slots by ids: %w", err)
	}

	return collectSlots(rows)
}

// GetOpenDaycare получает открытые почасовые слоты, начинающиеся в [from, to)
func (r *SlotRepository) GetOpenDaycare(ctx context.Context, q base.Querier, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE kind = $1
		  AND status = 'open'
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := q.Query(ctx, query, model.KindDaycare, from, to)
	if err != nil {
		return nil, fmt.Errorf("get open daycare slots: %w", err)
	}

	return collectSlots(rows)
}

// GetInRange получает слоты вида kind, начинающиеся в [from, to)
func (r *SlotRepository) GetInRange(ctx context.Context, q base.Querier, kind model.ResourceKind, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE kind = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := q.Query(ctx, query, kind, from, to)
	if err != nil {
		return nil, fmt.Errorf("get slots in range: %w", err)
	}

	return collectSlots(rows)
}

// GetOverlapping получает слоты того же вида и даты, пересекающиеся с [start, end]
func (r *SlotRepository) GetOverlapping(ctx context.Context, q base.Querier, kind model.ResourceKind, excludeID int64, date, start, end time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE kind = $1
		  AND slot_date = $2
		  AND id <> $3
		  AND start_time <= $4
		  AND end_time >= $5
		ORDER BY start_time
	`

	rows, err := q.Query(ctx, query, kind, date, excludeID, end, start)
	if err != nil {
		return nil, fmt.Errorf("get overlapping slots: %w", err)
	}

	return collectSlots(rows)
}

// Update обновляет вместимость, остаток и статус слота
func (r *SlotRepository) Update(ctx context.Context, q base.Querier, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET start_time = $1, end_time = $2, slot_date = $3, hour = $4,
		    capacity = $5, available = $6, status = $7
		WHERE id = $8
	`

	tag, err := q.Exec(ctx, query,
		slot.StartTime,
		slot.EndTime,
		slot.Date,
		slot.Hour,
		slot.Capacity,
		slot.Available,
		slot.Status,
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrSlotNotFound
	}

	return nil
}

// SetAvailable выставляет остаток мест слота
func (r *SlotRepository) SetAvailable(ctx context.Context, q base.Querier, id int64, available int) error {
	query := `UPDATE slots SET available = $1 WHERE id = $2`

	tag, err := q.Exec(ctx, query, available, id)
	if err != nil {
		return fmt.Errorf("set slot available: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrSlotNotFound
	}

	return nil
}

// Delete удаляет слоты по списку ID
func (r *SlotRepository) Delete(ctx context.Context, q base.Querier, ids []int64) error {
	query := `DELETE FROM slots WHERE id = ANY($1)`

	if _, err := q.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}

	return nil
}
