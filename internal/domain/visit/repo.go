package visit

import (
	"context"
)

type Repository interface {
	// Create inserts v only if its patient is an active patient of
	// v.HospitalID; otherwise it returns NotFound and inserts nothing.
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, hospitalID, id int64) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, hospitalID, id int64) (*Visit, error)
	// ListByPatient and ListByHospital page through visits newest first.
	ListByPatient(ctx context.Context, hospitalID, patientID int64, limit, offset int) ([]*Visit, int64, error)
	ListByHospital(ctx context.Context, hospitalID int64, limit, offset int) ([]*Visit, int64, error)
}
