package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx embeds pgx.Tx so only the methods the helpers call need bodies.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx   *fakeTx
	opts []pgx.TxOptions
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = append(b.opts, opts)
	return b.tx, nil
}

func TestTxFromContext_Nil(t *testing.T) {
	tx := TxFromContext(context.Background())
	if tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	tx := TxFromContext(ctx)
	if tx != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestInTx_NoBeginner(t *testing.T) {
	called := false
	err := InTx(context.Background(), nil, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error when no beginner is available")
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}

func TestReadSnapshot_NoBeginner(t *testing.T) {
	err := ReadSnapshot(context.Background(), nil, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error when no beginner is available")
	}
}

func TestIsPgError(t *testing.T) {
	unique := &pgconn.PgError{Code: UniqueViolation}
	wrapped := fmt.Errorf("insert patient: %w", unique)

	if !IsPgError(wrapped, UniqueViolation) {
		t.Error("expected wrapped unique violation to match")
	}
	if IsPgError(wrapped, ForeignKeyViolation) {
		t.Error("unique violation must not match foreign key code")
	}
	if IsPgError(errors.New("plain"), UniqueViolation) {
		t.Error("plain error must not match")
	}
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}

	err := InTx(context.Background(), b, func(ctx context.Context) error {
		if TxFromContext(ctx) != b.tx {
			t.Error("expected fn to see the transaction on its context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.tx.committed || b.tx.rolledBack {
		t.Errorf("expected commit only, got committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
	}
	if len(b.opts) != 1 || b.opts[0].IsoLevel != pgx.ReadCommitted {
		t.Errorf("unexpected tx options: %+v", b.opts)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	want := errors.New("insert failed")

	err := InTx(context.Background(), b, func(ctx context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if b.tx.committed || !b.tx.rolledBack {
		t.Errorf("expected rollback only, got committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
	}
}

func TestInTx_CommitError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}

	err := InTx(context.Background(), b, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected commit error to surface")
	}
}

func TestInTx_ReusesOuterTx(t *testing.T) {
	outer := &fakeTx{}
	b := &fakeBeginner{tx: &fakeTx{}}
	ctx := ContextWithTx(context.Background(), outer)

	err := InTx(ctx, b, func(ctx context.Context) error {
		if TxFromContext(ctx) != outer {
			t.Error("expected the outer transaction to be reused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.opts) != 0 {
		t.Error("no new transaction should be started")
	}
	if outer.committed {
		t.Error("the outer transaction belongs to its owner and must not be committed here")
	}
}

func TestReadSnapshot_Options(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}

	if err := NewTransactor(b).ReadSnapshot(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.opts) != 1 {
		t.Fatalf("expected one transaction, got %d", len(b.opts))
	}
	if b.opts[0].IsoLevel != pgx.RepeatableRead || b.opts[0].AccessMode != pgx.ReadOnly {
		t.Errorf("expected repeatable read, read only; got %+v", b.opts[0])
	}
}

func TestPick(t *testing.T) {
	tx := &fakeTx{}
	if got := Pick(ContextWithTx(context.Background(), tx), nil); got != tx {
		t.Error("expected the context transaction")
	}
	if got := Pick(context.Background(), nil); got != nil {
		t.Error("expected the fallback")
	}
}
