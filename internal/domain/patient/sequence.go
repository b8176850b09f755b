package patient

import (
	"context"
	"fmt"

	"github.com/minlab/hospital/internal/platform/apperrors"
)

// SequenceHold is an exclusive claim on one hospital's sequence counter.
// While it is held no other Acquire for the same hospital returns.
type SequenceHold interface {
	// Current is the last committed sequence number, 0 for a fresh hospital.
	Current() int64
	// Context carries the hold's transaction. Writes made with it commit or
	// roll back together with the counter.
	Context() context.Context
	// Commit stores seq as the new high-water mark and ends the hold.
	Commit(ctx context.Context, seq int64) error
	// Release abandons the hold without advancing the counter. It is a no-op
	// after Commit.
	Release(ctx context.Context) error
}

// SequenceStore hands out per-hospital holds. Holds on different hospitals
// never block each other.
type SequenceStore interface {
	Acquire(ctx context.Context, hospitalID int64) (SequenceHold, error)
}

// HospitalLookup reports whether a hospital exists.
type HospitalLookup interface {
	Exists(ctx context.Context, hospitalID int64) (bool, error)
}

// Allocator issues gap-free, strictly increasing sequence numbers per hospital.
type Allocator struct {
	hospitals HospitalLookup
	store     SequenceStore
}

// NewAllocator returns an Allocator that checks hospitals before taking a
// hold from store.
func NewAllocator(hospitals HospitalLookup, store SequenceStore) *Allocator {
	return &Allocator{hospitals: hospitals, store: store}
}

// Allocate reserves the next sequence number of hospitalID and calls persist
// with it while the hold is taken. The number is consumed only if persist and
// the counter update both commit; on any error, including cancellation of
// ctx, nothing is consumed and the next caller receives the same number.
// An unknown hospital yields NotFound before any hold is taken.
func (a *Allocator) Allocate(ctx context.Context, hospitalID int64, persist func(ctx context.Context, seq int64) error) (int64, error) {
	if err := requireHospital(ctx, a.hospitals, hospitalID); err != nil {
		return 0, err
	}

	hold, err := a.store.Acquire(ctx, hospitalID)
	if err != nil {
		return 0, fmt.Errorf("acquire sequence for hospital %d: %w", hospitalID, err)
	}
	defer hold.Release(ctx) //nolint:errcheck // no-op after commit

	next := hold.Current() + 1
	if err := persist(hold.Context(), next); err != nil {
		return 0, err
	}
	if err := hold.Commit(ctx, next); err != nil {
		return 0, fmt.Errorf("commit sequence %d for hospital %d: %w", next, hospitalID, err)
	}
	return next, nil
}

func requireHospital(ctx context.Context, hospitals HospitalLookup, hospitalID int64) error {
	ok, err := hospitals.Exists(ctx, hospitalID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound.WithMessage("hospital %d not found", hospitalID)
	}
	return nil
}
