package patient

import (
	"context"
)

type Repository interface {
	// Create inserts p. It runs on the transaction carried by ctx, which
	// during registration is the sequence hold's transaction.
	Create(ctx context.Context, p *Patient) error
	// GetActive returns an active patient of the hospital; deleted patients
	// and patients of other hospitals are NotFound.
	GetActive(ctx context.Context, hospitalID, id int64) (*Patient, error)
	// Update rewrites the demographic fields of an active patient. The
	// sequence and registration number never change.
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, hospitalID, id int64) error
	// Search returns one page of active patients matching f together with
	// the total number of matches. Both come from the same snapshot.
	Search(ctx context.Context, hospitalID int64, f SearchFilter, limit, offset int) ([]*SearchResult, int64, error)
}
