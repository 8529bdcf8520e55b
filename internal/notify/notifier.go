// Package notify отправляет уведомления о событиях бронирования.
// Доставка best-effort: ошибки логируются движком и никогда не влияют
// на исход самой операции бронирования.
package notify

import (
	"context"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// TemplateKey ключ шаблона уведомления
type TemplateKey string

const (
	TemplateCreated   TemplateKey = "created"
	TemplateConfirmed TemplateKey = "confirmed"
	TemplateModified  TemplateKey = "modified"
	TemplateCanceled  TemplateKey = "canceled"
	TemplateClosed    TemplateKey = "closed"
)

type Notifier interface {
	Send(ctx context.Context, booking *model.Booking, key TemplateKey) error
}

// Nop заглушка когда канал уведомлений не настроен
type Nop struct{}

func (Nop) Send(ctx context.Context, booking *model.Booking, key TemplateKey) error {
	return nil
}
