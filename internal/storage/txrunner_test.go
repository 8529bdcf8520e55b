package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// stubTx подменяет pgx.Tx: переопределены только Commit и Rollback,
// остальные методы runner не трогает.
type stubTx struct {
	pgx.Tx
	commitErr  error
	committed  int
	rolledBack int
}

func (t *stubTx) Commit(ctx context.Context) error {
	t.committed++
	return t.commitErr
}

func (t *stubTx) Rollback(ctx context.Context) error {
	t.rolledBack++
	return nil
}

type stubDB struct {
	begins int
	txFor  func(attempt int) *stubTx
}

func (d *stubDB) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	d.begins++
	return d.txFor(d.begins), nil
}

func conflictErr() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func newTestRunner(db Beginner) *TxRunner {
	return NewTxRunner(db, zap.NewNop()).WithRetryPolicy(3, time.Millisecond, time.Second)
}

func TestRunSerializable_RetriesConflictThenSucceeds(t *testing.T) {
	db := &stubDB{txFor: func(attempt int) *stubTx {
		if attempt < 3 {
			return &stubTx{commitErr: conflictErr()}
		}
		return &stubTx{}
	}}

	calls := 0
	err := newTestRunner(db).RunSerializable(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, db.begins)
	require.Equal(t, 3, calls)
}

func TestRunSerializable_ExhaustedConflictSurfacesAsTxConflict(t *testing.T) {
	db := &stubDB{txFor: func(int) *stubTx {
		return &stubTx{commitErr: conflictErr()}
	}}

	err := newTestRunner(db).RunSerializable(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		return nil
	})

	require.ErrorIs(t, err, model.ErrTxConflict)
	require.Equal(t, 3, db.begins)
}

func TestRunSerializable_CallerErrorNotRetried(t *testing.T) {
	db := &stubDB{txFor: func(int) *stubTx { return &stubTx{} }}

	calls := 0
	err := newTestRunner(db).RunSerializable(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		calls++
		return model.ErrInsufficientCapacity
	})

	require.ErrorIs(t, err, model.ErrInsufficientCapacity)
	require.NotErrorIs(t, err, model.ErrTxConflict)
	require.Equal(t, 1, calls)
}

func TestRunSerializable_InvariantErrorNotRetried(t *testing.T) {
	db := &stubDB{txFor: func(int) *stubTx { return &stubTx{} }}

	calls := 0
	err := newTestRunner(db).RunSerializable(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		calls++
		return &model.InvariantError{SlotID: 1, Available: -1, Capacity: 5}
	})

	var inv *model.InvariantError
	require.ErrorAs(t, err, &inv)
	require.Equal(t, 1, calls)
}

func TestRunSerializable_RollbackAfterFailedUnitOfWork(t *testing.T) {
	tx := &stubTx{}
	db := &stubDB{txFor: func(int) *stubTx { return tx }}

	err := newTestRunner(db).RunSerializable(context.Background(), func(ctx context.Context, _ pgx.Tx) error {
		return errors.New("boom")
	})

	require.Error(t, err)
	require.Equal(t, 0, tx.committed)
	require.Equal(t, 1, tx.rolledBack)
}

func TestIsSerializationConflict(t *testing.T) {
	require.True(t, IsSerializationConflict(conflictErr()))
	require.True(t, IsSerializationConflict(&pgconn.PgError{Code: "40P01"}))
	require.False(t, IsSerializationConflict(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsSerializationConflict(errors.New("plain")))
}
