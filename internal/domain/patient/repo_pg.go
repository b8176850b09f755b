package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minlab/hospital/internal/platform/apperrors"
	"github.com/minlab/hospital/internal/platform/db"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Pick(ctx, r.pool)
}

const patientCols = `id, hospital_id, seq, registration_number, name, gender,
	birth_date, phone, address, status, created_at, updated_at, deleted_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (hospital_id, seq, registration_number, name, gender, birth_date, phone, address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		p.HospitalID, p.Seq, p.RegistrationNumber, p.Name, p.Gender, p.BirthDate.timePtr(), p.Phone, p.Address, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsPgError(err, db.UniqueViolation) {
			return apperrors.Conflict.WithMessage("registration number %s already issued", p.RegistrationNumber)
		}
		if db.IsPgError(err, db.ForeignKeyViolation) {
			return apperrors.NotFound.WithMessage("hospital %d not found", p.HospitalID)
		}
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) GetActive(ctx context.Context, hospitalID, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND hospital_id = $2 AND status = $3`,
		id, hospitalID, string(StatusActive)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound.WithMessage("patient %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %d: %w", id, err)
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	updated, err := scanPatient(r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET name = $4, gender = $5, birth_date = $6, phone = $7, address = $8, updated_at = NOW()
		WHERE id = $1 AND hospital_id = $2 AND status = $3
		RETURNING `+patientCols,
		p.ID, p.HospitalID, string(StatusActive), p.Name, p.Gender, p.BirthDate.timePtr(), p.Phone, p.Address))
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound.WithMessage("patient %d not found", p.ID)
	}
	if err != nil {
		return fmt.Errorf("update patient %d: %w", p.ID, err)
	}
	*p = *updated
	return nil
}

func (r *patientRepoPG) SoftDelete(ctx context.Context, hospitalID, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET status = $3, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND hospital_id = $2 AND status = $4`,
		id, hospitalID, string(StatusDeleted), string(StatusActive))
	if err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound.WithMessage("patient %d not found", id)
	}
	return nil
}

func (r *patientRepoPG) Search(ctx context.Context, hospitalID int64, f SearchFilter, limit, offset int) ([]*SearchResult, int64, error) {
	q, err := newSearchQuery(hospitalID, f)
	if err != nil {
		return nil, 0, err
	}

	var items []*SearchResult
	var total int64
	err = db.ReadSnapshot(ctx, r.pool, func(ctx context.Context) error {
		if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
			return fmt.Errorf("count patients: %w", err)
		}

		rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
		if err != nil {
			return fmt.Errorf("search patients: %w", err)
		}
		defer rows.Close()

		items = []*SearchResult{}
		for rows.Next() {
			res, err := scanSearchResult(rows)
			if err != nil {
				return fmt.Errorf("scan patient: %w", err)
			}
			items = append(items, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var birth *time.Time
	var status string
	err := row.Scan(
		&p.ID, &p.HospitalID, &p.Seq, &p.RegistrationNumber, &p.Name, &p.Gender,
		&birth, &p.Phone, &p.Address, &status, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.BirthDate = dateFromTime(birth)
	p.Status = Status(status)
	return &p, nil
}

func scanSearchResult(rows pgx.Rows) (*SearchResult, error) {
	var res SearchResult
	var birth *time.Time
	var status string
	err := rows.Scan(
		&res.ID, &res.HospitalID, &res.Seq, &res.RegistrationNumber, &res.Name, &res.Gender,
		&birth, &res.Phone, &res.Address, &status, &res.CreatedAt, &res.UpdatedAt, &res.DeletedAt,
		&res.RecentVisitAt,
	)
	if err != nil {
		return nil, err
	}
	res.BirthDate = dateFromTime(birth)
	res.Status = Status(status)
	return &res, nil
}
