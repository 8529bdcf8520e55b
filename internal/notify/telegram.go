package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// ChatResolver возвращает привязанный telegram-чат пользователя, 0 если нет
type ChatResolver interface {
	TelegramChatID(ctx context.Context, userID int64) (int64, error)
}

// TelegramNotifier шлёт уведомления в чат администраторов центра и,
// если у владельца брони привязан чат, ему лично.
type TelegramNotifier struct {
	bot         *bot.Bot
	adminChatID int64
	chats       ChatResolver
	logger      *zap.Logger
}

func NewTelegramNotifier(token string, adminChatID int64, chats ChatResolver, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:         b,
		adminChatID: adminChatID,
		chats:       chats,
		logger:      logger,
	}, nil
}

// Send отправляет уведомление по ключу шаблона
func (n *TelegramNotifier) Send(ctx context.Context, booking *model.Booking, key TemplateKey) error {
	text := renderMessage(booking, key)

	var errs []error
	if n.adminChatID != 0 {
		if err := n.sendTo(ctx, n.adminChatID, text); err != nil {
			errs = append(errs, fmt.Errorf("admin chat: %w", err))
		}
	}

	if booking.UserID != nil && n.chats != nil {
		chatID, err := n.chats.TelegramChatID(ctx, *booking.UserID)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve user chat: %w", err))
		} else if chatID != 0 {
			if err := n.sendTo(ctx, chatID, text); err != nil {
				errs = append(errs, fmt.Errorf("user chat: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

func (n *TelegramNotifier) sendTo(ctx context.Context, chatID int64, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func renderMessage(b *model.Booking, key TemplateKey) string {
	var header string
	switch key {
	case TemplateCreated:
		header = "Новая бронь"
	case TemplateConfirmed:
		header = "Бронь подтверждена"
	case TemplateModified:
		header = "Бронь изменена"
	case TemplateCanceled:
		header = "Бронь отменена"
	case TemplateClosed:
		header = "Бронь завершена"
	default:
		header = "Бронь"
	}

	who := b.Guest.Name
	if b.UserID != nil {
		who = fmt.Sprintf("пользователь #%d", *b.UserID)
	}

	return fmt.Sprintf("%s #%d (%s)\n%s\n%s — %s, мест: %d",
		header,
		b.ID,
		kindLabel(b.Kind),
		who,
		b.StartTime.Format("02.01.2006 15:04"),
		b.EndTime.Format("15:04"),
		b.Units,
	)
}

func kindLabel(k model.ResourceKind) string {
	switch k {
	case model.KindDaycare:
		return "почасовое посещение"
	case model.KindBirthday:
		return "день рождения"
	case model.KindMeeting:
		return "встреча"
	}
	return string(k)
}
