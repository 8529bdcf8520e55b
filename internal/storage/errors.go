// Package storage отвечает за выполнение serializable-транзакций поверх
// Postgres и за классификацию ошибок хранилища. Классификация реализована
// один раз здесь, чтобы остальной код не знал кодов SQLSTATE.
package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Коды SQLSTATE, означающие конфликт сериализации
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsSerializationConflict проверяет, что ошибка — конфликт конкурентных
// транзакций, устраняемый повтором.
func IsSerializationConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// IsTransient проверяет, что ошибка связана с соединением и запрос
// безопасно повторить. Таймауты контекста сюда не входят: они
// возвращаются вызывающей стороне как есть.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return pgconn.SafeToRetry(err)
}
