package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/minlab/hospital/internal/platform/apperrors"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

const dateLayout = "2006-01-02"

// Date is a calendar date that renders as "2006-01-02" in JSON.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date must be formatted as YYYY-MM-DD: %w", err)
	}
	*d = parsed
	return nil
}

func dateFromTime(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{t.UTC()}
}

func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

type Patient struct {
	ID                 int64      `json:"id"`
	HospitalID         int64      `json:"hospital_id"`
	Seq                int64      `json:"seq"`
	RegistrationNumber string     `json:"registration_number"`
	Name               string     `json:"name"`
	Gender             string     `json:"gender"`
	BirthDate          *Date      `json:"birth_date,omitempty"`
	Phone              string     `json:"phone"`
	Address            string     `json:"address"`
	Status             Status     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// FormatRegistrationNumber renders the hospital-scoped registration number:
// the hospital id zero-padded to three digits, a hyphen, then seq.
// Ids wider than three digits are printed at their natural width.
func FormatRegistrationNumber(hospitalID, seq int64) string {
	return fmt.Sprintf("%03d-%d", hospitalID, seq)
}

// Validate trims the demographic fields and checks them. now is the reference
// for the past-birth-date rule.
func (p *Patient) Validate(now time.Time) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)

	switch {
	case p.Name == "":
		return apperrors.InvalidArgument.WithMessage("name is required")
	case len(p.Name) > 50:
		return apperrors.InvalidArgument.WithMessage("name must be at most 50 bytes")
	case p.Gender != "M" && p.Gender != "F":
		return apperrors.InvalidArgument.WithMessage("gender must be M or F")
	case p.Phone == "":
		return apperrors.InvalidArgument.WithMessage("phone is required")
	case len(p.Phone) > 20:
		return apperrors.InvalidArgument.WithMessage("phone must be at most 20 bytes")
	case len(p.Address) > 100:
		return apperrors.InvalidArgument.WithMessage("address must be at most 100 bytes")
	}

	if p.BirthDate != nil {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if !p.BirthDate.Before(today) {
			return apperrors.InvalidArgument.WithMessage("birth_date must be in the past")
		}
	}
	return nil
}

// SearchFilter holds the optional search criteria. Blank fields are ignored.
type SearchFilter struct {
	Name               string `json:"name,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	BirthDate          string `json:"birth_date,omitempty"`
}

// Normalize trims every field and checks that BirthDate, when present, is a
// YYYY-MM-DD date.
func (f SearchFilter) Normalize() (SearchFilter, error) {
	out := SearchFilter{
		Name:               strings.TrimSpace(f.Name),
		RegistrationNumber: strings.TrimSpace(f.RegistrationNumber),
		BirthDate:          strings.TrimSpace(f.BirthDate),
	}
	if out.BirthDate != "" {
		if _, err := ParseDate(out.BirthDate); err != nil {
			return SearchFilter{}, apperrors.InvalidArgument.WithMessage("birth_date must be formatted as YYYY-MM-DD")
		}
	}
	return out, nil
}

// SearchResult is a patient enriched with the timestamp of its most recent
// visit. RecentVisitAt is nil for patients without visits.
type SearchResult struct {
	Patient
	RecentVisitAt *time.Time `json:"recent_visit_at,omitempty"`
}
