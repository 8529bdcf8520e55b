package repository

import (
	"context"
	"fmt"

	"github.com/solnyshko/kidsbooking/internal/repository/base"
)

type ChildRepository struct{}

func NewChildRepository() *ChildRepository {
	return &ChildRepository{}
}

// AllBelongToUser проверяет что все дети из списка закреплены за пользователем
func (r *ChildRepository) AllBelongToUser(ctx context.Context, q base.Querier, userID int64, childIDs []int64) (bool, error) {
	if len(childIDs) == 0 {
		return false, nil
	}

	query := `
		SELECT COUNT(DISTINCT id)
		FROM children
		WHERE user_id = $1 AND id = ANY($2)
	`

	var count int
	if err := q.QueryRow(ctx, query, userID, childIDs).Scan(&count); err != nil {
		return false, fmt.Errorf("check children ownership: %w", err)
	}

	return count == len(childIDs), nil
}
