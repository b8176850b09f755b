package hospital

import (
	"strings"
	"time"

	"github.com/minlab/hospital/internal/platform/apperrors"
)

// Hospital is a tenant. Every patient and visit belongs to exactly one.
type Hospital struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	LicenseNumber string    `db:"license_number" json:"license_number"`
	DirectorName  string    `db:"director_name" json:"director_name"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (h *Hospital) normalize() {
	h.Name = strings.TrimSpace(h.Name)
	h.LicenseNumber = strings.TrimSpace(h.LicenseNumber)
	h.DirectorName = strings.TrimSpace(h.DirectorName)
}

// Validate trims the text fields and checks the required ones.
func (h *Hospital) Validate() error {
	h.normalize()
	switch {
	case h.Name == "":
		return apperrors.InvalidArgument.WithMessage("name is required")
	case h.LicenseNumber == "":
		return apperrors.InvalidArgument.WithMessage("license_number is required")
	case h.DirectorName == "":
		return apperrors.InvalidArgument.WithMessage("director_name is required")
	case len(h.Name) > 100:
		return apperrors.InvalidArgument.WithMessage("name must be at most 100 bytes")
	case len(h.LicenseNumber) > 20:
		return apperrors.InvalidArgument.WithMessage("license_number must be at most 20 bytes")
	}
	return nil
}

// Demo returns the hospitals inserted by the seed command.
func Demo() []*Hospital {
	return []*Hospital{
		{Name: "민랩종합병원", LicenseNumber: "1100001234", DirectorName: "김병원장"},
		{Name: "민랩의원", LicenseNumber: "2200005678", DirectorName: "박원장"},
	}
}
