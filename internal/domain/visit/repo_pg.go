package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minlab/hospital/internal/platform/apperrors"
	"github.com/minlab/hospital/internal/platform/db"
	"github.com/minlab/hospital/internal/platform/search"
)

type visitRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &visitRepoPG{pool: pool}
}

func (r *visitRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const visitCols = `id, hospital_id, patient_id, visited_at, status, visit_type, category, created_at, updated_at`

// Create guards the insert with the patient's state in the same statement,
// so a patient soft-deleted concurrently never gains a visit.
func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit (hospital_id, patient_id, visited_at, status, visit_type, category)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (
			SELECT 1 FROM patient WHERE id = $2 AND hospital_id = $1 AND status = 'active'
		)
		RETURNING id, created_at, updated_at`,
		v.HospitalID, v.PatientID, v.VisitedAt, string(v.Status), v.VisitType, v.Category,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound.WithMessage("patient %d not found", v.PatientID)
	}
	if err != nil {
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

func (r *visitRepoPG) GetByID(ctx context.Context, hospitalID, id int64) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visit WHERE id = $1 AND hospital_id = $2`, id, hospitalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound.WithMessage("visit %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get visit %d: %w", id, err)
	}
	return v, nil
}

func (r *visitRepoPG) Update(ctx context.Context, v *Visit) error {
	updated, err := scanVisit(r.conn(ctx).QueryRow(ctx, `
		UPDATE visit SET visited_at = $3, status = $4, visit_type = $5, category = $6, updated_at = NOW()
		WHERE id = $1 AND hospital_id = $2
		RETURNING `+visitCols,
		v.ID, v.HospitalID, v.VisitedAt, string(v.Status), v.VisitType, v.Category))
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound.WithMessage("visit %d not found", v.ID)
	}
	if err != nil {
		return fmt.Errorf("update visit %d: %w", v.ID, err)
	}
	*v = *updated
	return nil
}

func (r *visitRepoPG) Delete(ctx context.Context, hospitalID, id int64) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx,
		`DELETE FROM visit WHERE id = $1 AND hospital_id = $2 RETURNING `+visitCols, id, hospitalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound.WithMessage("visit %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("delete visit %d: %w", id, err)
	}
	return v, nil
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, hospitalID, patientID int64, limit, offset int) ([]*Visit, int64, error) {
	q := search.New("visit", visitCols)
	q.AddEquals("hospital_id", hospitalID)
	q.AddEquals("patient_id", patientID)
	q.OrderBy("visited_at DESC, id DESC")
	return r.list(ctx, q, limit, offset)
}

func (r *visitRepoPG) ListByHospital(ctx context.Context, hospitalID int64, limit, offset int) ([]*Visit, int64, error) {
	q := search.New("visit", visitCols)
	q.AddEquals("hospital_id", hospitalID)
	q.OrderBy("visited_at DESC, id DESC")
	return r.list(ctx, q, limit, offset)
}

func (r *visitRepoPG) list(ctx context.Context, q *search.Query, limit, offset int) ([]*Visit, int64, error) {
	var items []*Visit
	var total int64
	err := db.ReadSnapshot(ctx, r.pool, func(ctx context.Context) error {
		if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
			return fmt.Errorf("count visits: %w", err)
		}

		rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
		if err != nil {
			return fmt.Errorf("list visits: %w", err)
		}
		defer rows.Close()

		items = []*Visit{}
		for rows.Next() {
			v, err := scanVisit(rows)
			if err != nil {
				return fmt.Errorf("scan visit: %w", err)
			}
			items = append(items, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	var status string
	err := row.Scan(&v.ID, &v.HospitalID, &v.PatientID, &v.VisitedAt, &status,
		&v.VisitType, &v.Category, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Status = Status(status)
	return &v, nil
}
