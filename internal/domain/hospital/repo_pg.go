package hospital

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minlab/hospital/internal/platform/apperrors"
	"github.com/minlab/hospital/internal/platform/db"
)

type hospitalRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &hospitalRepoPG{pool: pool}
}

func (r *hospitalRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const hospitalCols = `id, name, license_number, director_name, created_at, updated_at`

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hospital (name, license_number, director_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		h.Name, h.LicenseNumber, h.DirectorName,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return translate(err, "create hospital")
	}

	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_sequence (hospital_id, last_seq) VALUES ($1, 0)
		ON CONFLICT (hospital_id) DO NOTHING`, h.ID); err != nil {
		return fmt.Errorf("seed patient sequence for hospital %d: %w", h.ID, err)
	}
	return nil
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id int64) (*Hospital, error) {
	h, err := scanHospital(r.conn(ctx).QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospital WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound.WithMessage("hospital %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get hospital %d: %w", id, err)
	}
	return h, nil
}

func (r *hospitalRepoPG) Update(ctx context.Context, h *Hospital) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE hospital SET name = $2, license_number = $3, director_name = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		h.ID, h.Name, h.LicenseNumber, h.DirectorName,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound.WithMessage("hospital %d not found", h.ID)
	}
	if err != nil {
		return translate(err, "update hospital")
	}
	return nil
}

func (r *hospitalRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM hospital WHERE id = $1`, id)
	if err != nil {
		if db.IsPgError(err, db.ForeignKeyViolation) {
			return apperrors.Conflict.WithMessage("hospital %d still has patients or visits", id)
		}
		return fmt.Errorf("delete hospital %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound.WithMessage("hospital %d not found", id)
	}
	return nil
}

func (r *hospitalRepoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int64, error) {
	var total int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospital`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count hospitals: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+hospitalCols+` FROM hospital ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list hospitals: %w", err)
	}
	defer rows.Close()

	items := []*Hospital{}
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan hospital: %w", err)
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *hospitalRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM hospital WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check hospital %d: %w", id, err)
	}
	return exists, nil
}

func (r *hospitalRepoPG) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospital`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count hospitals: %w", err)
	}
	return n, nil
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	if err := row.Scan(&h.ID, &h.Name, &h.LicenseNumber, &h.DirectorName, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func translate(err error, op string) error {
	if db.IsPgError(err, db.UniqueViolation) {
		return apperrors.Conflict.WithMessage("license number already registered")
	}
	return fmt.Errorf("%s: %w", op, err)
}
