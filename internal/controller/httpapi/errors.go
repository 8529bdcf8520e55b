package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// writeError переводит типизированные ошибки сервисного слоя в HTTP-статусы.
// Недостаток мест и конфликты определений слотов отдаются как 409, чтобы
// клиент мог предложить другое время.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, model.ErrSlotNotFound) || errors.Is(err, model.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request timed out"})
	case errors.Is(err, model.ErrInsufficientCapacity),
		errors.Is(err, model.ErrIncompleteCoverage),
		errors.Is(err, model.ErrDuplicateBooking),
		errors.Is(err, model.ErrSlotConflict),
		errors.Is(err, model.ErrSlotHasBookings),
		errors.Is(err, model.ErrTerminalState),
		errors.Is(err, model.ErrTxConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled error", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
