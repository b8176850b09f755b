package patient

import (
	"github.com/minlab/hospital/internal/platform/search"
)

// BuildPredicate adds the search filter to q as a conjunction: the patient
// belongs to hospitalID, is active, and matches every non-blank criterion.
// Name is a case-insensitive substring match, the registration number must
// match exactly and the birth date is compared on its text form.
func BuildPredicate(q *search.Query, hospitalID int64, f SearchFilter) error {
	f, err := f.Normalize()
	if err != nil {
		return err
	}

	q.AddEquals("p.hospital_id", hospitalID)
	q.AddEquals("p.status", string(StatusActive))

	if f.Name != "" {
		q.AddContains("p.name", f.Name)
	}
	if f.RegistrationNumber != "" {
		q.AddEquals("p.registration_number", f.RegistrationNumber)
	}
	if f.BirthDate != "" {
		q.AddTextEquals("p.birth_date", f.BirthDate)
	}
	return nil
}

// WithRecentVisit joins each patient row to its visits and selects the
// latest visit timestamp, NULL when there is none. Rows are grouped per
// patient so the join never multiplies results.
func WithRecentVisit(q *search.Query) {
	q.AddColumn("MAX(v.visited_at) AS recent_visit_at")
	q.LeftJoin("visit v ON v.patient_id = p.id")
	q.GroupBy("p.id")
}

const searchCols = `p.id, p.hospital_id, p.seq, p.registration_number, p.name, p.gender,
	p.birth_date, p.phone, p.address, p.status, p.created_at, p.updated_at, p.deleted_at`

// newSearchQuery composes the predicate and the visit aggregation, ordered
// by patient id so paging is deterministic.
func newSearchQuery(hospitalID int64, f SearchFilter) (*search.Query, error) {
	q := search.New("patient p", searchCols)
	if err := BuildPredicate(q, hospitalID, f); err != nil {
		return nil, err
	}
	WithRecentVisit(q)
	q.OrderBy("p.id")
	return q, nil
}
