package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/service"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	bookingService *service.BookingService
	logger         *zap.Logger
	stopChan       chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(bookingService *service.BookingService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		bookingService: bookingService,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runClosingSweepTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runClosingSweepTask периодически закрывает истёкшие бронирования
func (s *Scheduler) runClosingSweepTask(ctx context.Context) {
	// Первый запуск сразу при старте: подбирает брони, истёкшие
	// за время простоя сервиса
	s.closeElapsed(ctx)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.closeElapsed(ctx)
		case <-s.stopChan:
			s.logger.Info("Closing sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Closing sweep task cancelled")
			return
		}
	}
}

// closeElapsed один проход: помечает истёкшие брони закрытыми
func (s *Scheduler) closeElapsed(ctx context.Context) {
	closed, notified, err := s.bookingService.CloseElapsed(ctx)
	if err != nil {
		s.logger.Error("Closing sweep failed", zap.Error(err))
		return
	}
	if closed > 0 {
		s.logger.Info("Closing sweep completed",
			zap.Int("closed", closed),
			zap.Int("notified", notified),
		)
	}
}
