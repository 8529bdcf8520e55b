package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/model"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 100 * time.Millisecond
	defaultTxTimeout   = 10 * time.Second
)

// Beginner открывает транзакции. Реализуется pgxpool.Pool.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxRunner выполняет единицу работы в транзакции уровня SERIALIZABLE.
// Конфликт сериализации ретраится с экспоненциальной задержкой
// baseDelay * 2^attempt до maxAttempts, любая другая ошибка уходит
// вызывающей стороне без изменений.
type TxRunner struct {
	db          Beginner
	logger      *zap.Logger
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
}

// NewTxRunner создаёт runner с дефолтными параметрами ретраев
func NewTxRunner(db Beginner, logger *zap.Logger) *TxRunner {
	return &TxRunner{
		db:          db,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		timeout:     defaultTxTimeout,
	}
}

// WithRetryPolicy переопределяет параметры ретраев (для тестов и тюнинга)
func (r *TxRunner) WithRetryPolicy(maxAttempts int, baseDelay, timeout time.Duration) *TxRunner {
	if maxAttempts >= 1 {
		r.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		r.baseDelay = baseDelay
	}
	if timeout > 0 {
		r.timeout = timeout
	}
	return r
}

// RunSerializable выполняет fn в serializable-транзакции с ретраями
func (r *TxRunner) RunSerializable(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	start := time.Now()
	attempts := 0

	backoff := retry.WithMaxRetries(uint64(r.maxAttempts-1), retry.NewExponential(r.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := r.runOnce(ctx, fn)
		if err != nil && (IsSerializationConflict(err) || IsTransient(err)) {
			return retry.RetryableError(err)
		}
		return err
	})

	// Диагностика попыток не влияет на исход транзакции
	if err == nil {
		r.logger.Debug("serializable transaction committed",
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	}

	if IsSerializationConflict(err) || IsTransient(err) {
		r.logger.Warn("serializable transaction gave up after retries",
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s", model.ErrTxConflict, err)
	}

	return err
}

func (r *TxRunner) runOnce(parent context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
