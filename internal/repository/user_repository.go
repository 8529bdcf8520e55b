package repository

import (
	"context"
	"fmt"

	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/repository/base"
)

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

const userColumns = `id, email, first_name, last_name, phone, role, telegram_chat_id, created_at`

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, q base.Querier, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u model.User
	err := q.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.Role,
		&u.TelegramChatID,
		&u.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &u, nil
}

// TelegramChatID возвращает привязанный telegram-чат пользователя, 0 если нет
func (r *UserRepository) TelegramChatID(ctx context.Context, q base.Querier, userID int64) (int64, error) {
	user, err := r.GetByID(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	if user == nil || user.TelegramChatID == nil {
		return 0, nil
	}
	return *user.TelegramChatID, nil
}
