package visit

import (
	"strings"
	"time"

	"github.com/minlab/hospital/internal/platform/apperrors"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Visit is one registration of a patient at the hospital's front desk.
type Visit struct {
	ID         int64     `json:"id"`
	HospitalID int64     `json:"hospital_id"`
	PatientID  int64     `json:"patient_id"`
	VisitedAt  time.Time `json:"visited_at"`
	Status     Status    `json:"status"`
	VisitType  string    `json:"visit_type"`
	Category   string    `json:"category"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const maxLabelLen = 20

func (v *Visit) Validate() error {
	v.Status = Status(strings.ToLower(strings.TrimSpace(string(v.Status))))
	v.VisitType = strings.TrimSpace(v.VisitType)
	v.Category = strings.TrimSpace(v.Category)

	switch {
	case v.VisitedAt.IsZero():
		return apperrors.InvalidArgument.WithMessage("visited_at is required")
	case !v.Status.Valid():
		return apperrors.InvalidArgument.WithMessage("status must be one of in_progress, completed, cancelled")
	case v.VisitType == "":
		return apperrors.InvalidArgument.WithMessage("visit_type is required")
	case len(v.VisitType) > maxLabelLen:
		return apperrors.InvalidArgument.WithMessage("visit_type must be at most %d bytes", maxLabelLen)
	case v.Category == "":
		return apperrors.InvalidArgument.WithMessage("category is required")
	case len(v.Category) > maxLabelLen:
		return apperrors.InvalidArgument.WithMessage("category must be at most %d bytes", maxLabelLen)
	}
	return nil
}
