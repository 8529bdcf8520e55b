package model

import (
	"errors"
	"fmt"
)

// Ошибки вызывающей стороны: возвращаются сразу, без ретраев.
var (
	ErrInvalidWindow        = errors.New("invalid time window")
	ErrIncompleteCoverage   = errors.New("requested window is not fully covered by open slots")
	ErrInsufficientCapacity = errors.New("not enough free capacity")
	ErrDuplicateBooking     = errors.New("active booking on the same slots already exists")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrTerminalState        = errors.New("booking is in a terminal state")
	ErrSlotHasBookings      = errors.New("slot has active bookings")
	ErrSlotConflict         = errors.New("slot conflicts with an existing slot")
	ErrPermissionDenied     = errors.New("no permission to act on this booking")
)

// ErrTxConflict возвращается когда serializable-транзакция исчерпала ретраи.
// Для вызывающей стороны это сигнал "повторите запрос".
var ErrTxConflict = errors.New("operation failed due to concurrent updates, please retry")

// IsCallerError отличает ошибки вызывающей стороны от внутренних
func IsCallerError(err error) bool {
	for _, target := range []error{
		ErrInvalidWindow,
		ErrIncompleteCoverage,
		ErrInsufficientCapacity,
		ErrDuplicateBooking,
		ErrSlotNotFound,
		ErrBookingNotFound,
		ErrTerminalState,
		ErrSlotHasBookings,
		ErrSlotConflict,
		ErrPermissionDenied,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// InvariantError фиксирует нарушение инварианта вместимости
// (available < 0 или available > capacity). Транзакция с такой ошибкой
// откатывается и не ретраится: повтор не исправит логический дефект.
type InvariantError struct {
	SlotID    int64
	Available int
	Capacity  int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("capacity invariant violated: slot %d available %d capacity %d",
		e.SlotID, e.Available, e.Capacity)
}
