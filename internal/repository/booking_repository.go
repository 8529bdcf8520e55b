package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/repository/base"
)

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

const bookingColumns = `id, kind, user_id, guest_name, guest_email, guest_phone, reference,
	start_time, end_time, units, status, comment, created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.Kind,
		&b.UserID,
		&b.Guest.Name,
		&b.Guest.Email,
		&b.Guest.Phone,
		&b.Reference,
		&b.StartTime,
		&b.EndTime,
		&b.Units,
		&b.Status,
		&b.Comment,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, q base.Querier, b *model.Booking) error {
	query := `
		INSERT INTO bookings (kind, user_id, guest_name, guest_email, guest_phone, reference,
			start_time, end_time, units, status, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		b.Kind,
		b.UserID,
		b.Guest.Name,
		b.Guest.Email,
		b.Guest.Phone,
		b.Reference,
		b.StartTime,
		b.EndTime,
		b.Units,
		b.Status,
		b.Comment,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID вместе со связями
func (r *BookingRepository) GetByID(ctx context.Context, q base.Querier, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	if err := r.loadLinks(ctx, q, b); err != nil {
		return nil, err
	}

	return b, nil
}

// GetByReference получает гостевое бронирование по коду управления
func (r *BookingRepository) GetByReference(ctx context.Context, q base.Querier, reference string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = $1`

	b, err := scanBooking(q.QueryRow(ctx, query, reference))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by reference: %w", err)
	}

	if err := r.loadLinks(ctx, q, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (r *BookingRepository) loadLinks(ctx context.Context, q base.Querier, b *model.Booking) error {
	slotIDs, err := r.SlotIDs(ctx, q, b.ID)
	if err != nil {
		return err
	}
	b.SlotIDs = slotIDs

	childIDs, err := r.ChildIDs(ctx, q, b.ID)
	if err != nil {
		return err
	}
	b.ChildIDs = childIDs

	return nil
}

// Update обновляет окно, количество мест, статус и комментарий бронирования
func (r *BookingRepository) Update(ctx context.Context, q base.Querier, b *model.Booking) error {
	query := `
		UPDATE bookings
		SET start_time = $1, end_time = $2, units = $3, status = $4, comment = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query, b.StartTime, b.EndTime, b.Units, b.Status, b.Comment, b.ID).
		Scan(&b.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return model.ErrBookingNotFound
		}
		return fmt.Errorf("update booking: %w", err)
	}

	return nil
}

// UpdateStatus обновляет статус бронирования
func (r *BookingRepository) UpdateStatus(ctx context.Context, q base.Querier, id int64, status model.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2`

	tag, err := q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrBookingNotFound
	}

	return nil
}

// Delete удаляет запись бронирования
func (r *BookingRepository) Delete(ctx context.Context, q base.Querier, id int64) error {
	query := `DELETE FROM bookings WHERE id = $1`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrBookingNotFound
	}

	return nil
}

// LinkSlots связывает бронирование со слотами
func (r *BookingRepository) LinkSlots(ctx context.Context, q base.Querier, bookingID int64, slotIDs []int64) error {
	query := `
		INSERT INTO booking_slots (booking_id, slot_id)
		SELECT $1, unnest($2::bigint[])
	`

	if _, err := q.Exec(ctx, query, bookingID, slotIDs); err != nil {
		return fmt.Errorf("link booking slots: %w", err)
	}

	return nil
}

// UnlinkSlots удаляет все связи бронирования со слотами
func (r *BookingRepository) UnlinkSlots(ctx context.Context, q base.Querier, bookingID int64) error {
	query := `DELETE FROM booking_slots WHERE booking_id = $1`

	if _, err := q.Exec(ctx, query, bookingID); err != nil {
		return fmt.Errorf("unlink booking slots: %w", err)
	}

	return nil
}

// LinkChildren связывает бронирование с детьми
func (r *BookingRepository) LinkChildren(ctx context.Context, q base.Querier, bookingID int64, childIDs []int64) error {
	query := `
		INSERT INTO booking_children (booking_id, child_id)
		SELECT $1, unnest($2::bigint[])
	`

	if _, err := q.Exec(ctx, query, bookingID, childIDs); err != nil {
		return fmt.Errorf("link booking children: %w", err)
	}

	return nil
}

// UnlinkChildren удаляет связи бронирования с детьми
func (r *BookingRepository) UnlinkChildren(ctx context.Context, q base.Querier, bookingID int64) error {
	query := `DELETE FROM booking_children WHERE booking_id = $1`

	if _, err := q.Exec(ctx, query, bookingID); err != nil {
		return fmt.Errorf("unlink booking children: %w", err)
	}

	return nil
}

// SlotIDs возвращает идентификаторы слотов бронирования
func (r *BookingRepository) SlotIDs(ctx context.Context, q base.Querier, bookingID int64) ([]int64, error) {
	query := `
		SELECT bs.slot_id
		FROM booking_slots bs
		JOIN slots s ON s.id = bs.slot_id
		WHERE bs.booking_id = $1
		ORDER BY s.start_time
	`

	rows, err := q.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking slot ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan slot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChildIDs возвращает идентификаторы детей бронирования
func (r *BookingRepository) ChildIDs(ctx context.Context, q base.Querier, bookingID int64) ([]int64, error) {
	query := `SELECT child_id FROM booking_children WHERE booking_id = $1 ORDER BY child_id`

	rows, err := q.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking child ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasActiveOnSlots проверяет наличие активной брони того же владельца
// на любом из слотов. excludeID исключает саму бронь при изменении.
func (r *BookingRepository) HasActiveOnSlots(ctx context.Context, q base.Querier, userID *int64, guestEmail string, slotIDs []int64, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM bookings b
			JOIN booking_slots bs ON bs.booking_id = b.id
			WHERE b.status IN ('pending', 'confirmed')
			  AND b.id <> $1
			  AND bs.slot_id = ANY($2)
			  AND (
			        (b.user_id IS NOT NULL AND b.user_id = $3)
			     OR (b.user_id IS NULL AND $4 <> '' AND b.guest_email = $4)
			  )
		)
	`

	var exists bool
	err := q.QueryRow(ctx, query, excludeID, slotIDs, userID, guestEmail).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active booking on slots: %w", err)
	}

	return exists, nil
}

// ActiveCountBySlot возвращает число активных броней на слоте
func (r *BookingRepository) ActiveCountBySlot(ctx context.Context, q base.Querier, slotID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings b
		JOIN booking_slots bs ON bs.booking_id = b.id
		WHERE bs.slot_id = $1
		  AND b.status IN ('pending', 'confirmed')
	`

	var count int
	if err := q.QueryRow(ctx, query, slotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active bookings by slot: %w", err)
	}

	return count, nil
}

// GetByUser получает все бронирования пользователя
func (r *BookingRepository) GetByUser(ctx context.Context, q base.Querier, userID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY start_time DESC`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by user: %w", err)
	}

	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}

	for _, b := range bookings {
		if err := r.loadLinks(ctx, q, b); err != nil {
			return nil, err
		}
	}

	return bookings, nil
}

// GetAll получает все бронирования (для администратора)
func (r *BookingRepository) GetAll(ctx context.Context, q base.Querier) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY start_time DESC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all bookings: %w", err)
	}

	return collectBookings(rows)
}

// GetElapsed получает активные бронирования с истёкшим окном
func (r *BookingRepository) GetElapsed(ctx context.Context, q base.Querier, now time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE end_time < $1
		  AND status IN ('pending', 'confirmed')
		ORDER BY end_time
	`

	rows, err := q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("get elapsed bookings: %w", err)
	}

	return collectBookings(rows)
}
