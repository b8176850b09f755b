package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/minlab/hospital/internal/platform/db"
)

type sequenceStorePG struct {
	pool db.TxBeginner
}

// NewSequenceStore returns a SequenceStore backed by the patient_sequence
// table. A hold is a transaction holding the hospital's row lock.
func NewSequenceStore(pool db.TxBeginner) SequenceStore {
	return &sequenceStorePG{pool: pool}
}

func (s *sequenceStorePG) Acquire(ctx context.Context, hospitalID int64) (SequenceHold, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	// Hospitals created before the counter table existed get their row
	// seeded from the highest sequence already issued.
	if _, err := tx.Exec(ctx, `
		INSERT INTO patient_sequence (hospital_id, last_seq)
		SELECT $1, COALESCE(MAX(seq), 0) FROM patient WHERE hospital_id = $1
		ON CONFLICT (hospital_id) DO NOTHING`, hospitalID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck
		return nil, fmt.Errorf("ensure sequence row: %w", err)
	}

	var last int64
	if err := tx.QueryRow(ctx,
		`SELECT last_seq FROM patient_sequence WHERE hospital_id = $1 FOR UPDATE`, hospitalID,
	).Scan(&last); err != nil {
		tx.Rollback(ctx) //nolint:errcheck
		return nil, fmt.Errorf("lock sequence row: %w", err)
	}

	return &sequenceHoldPG{
		tx:         tx,
		ctx:        db.ContextWithTx(ctx, tx),
		hospitalID: hospitalID,
		last:       last,
	}, nil
}

type sequenceHoldPG struct {
	tx         pgx.Tx
	ctx        context.Context
	hospitalID int64
	last       int64
}

func (h *sequenceHoldPG) Current() int64 { return h.last }

func (h *sequenceHoldPG) Context() context.Context { return h.ctx }

func (h *sequenceHoldPG) Commit(ctx context.Context, seq int64) error {
	if _, err := h.tx.Exec(ctx,
		`UPDATE patient_sequence SET last_seq = $2 WHERE hospital_id = $1`, h.hospitalID, seq,
	); err != nil {
		return fmt.Errorf("advance sequence: %w", err)
	}
	if err := h.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Release rolls back on a context detached from cancellation so an abandoned
// request still returns a clean connection to the pool.
func (h *sequenceHoldPG) Release(ctx context.Context) error {
	err := h.tx.Rollback(context.WithoutCancel(ctx))
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
