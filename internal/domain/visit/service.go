package visit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/minlab/hospital/internal/domain/patient"
	"github.com/minlab/hospital/internal/platform/events"
	"github.com/minlab/hospital/pkg/pagination"
)

// PatientDirectory is the slice of the patient service visits depend on.
// Visits feed the recent-visit column of patient search, so every visit
// write invalidates the hospital's cached search pages.
type PatientDirectory interface {
	Get(ctx context.Context, hospitalID, id int64) (*patient.Patient, error)
	InvalidateSearch(ctx context.Context, hospitalID int64)
}

// Service records and lists the visits of a hospital's patients.
type Service struct {
	repo     Repository
	patients PatientDirectory
	events   events.Publisher
	logger   zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		repo:     repo,
		patients: patients,
		events:   pub,
		logger:   logger.With().Str("component", "visit").Logger(),
	}
}

// Record registers a visit for an active patient of the hospital. A patient
// that is deleted or belongs to another hospital is NotFound.
func (s *Service) Record(ctx context.Context, hospitalID, patientID int64, in *Visit) (*Visit, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, hospitalID, patientID); err != nil {
		return nil, err
	}

	v := *in
	v.ID = 0
	v.HospitalID = hospitalID
	v.PatientID = patientID
	if err := s.repo.Create(ctx, &v); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("hospital_id", hospitalID).
		Int64("patient_id", patientID).
		Int64("visit_id", v.ID).
		Time("visited_at", v.VisitedAt).
		Msg("visit recorded")
	s.afterWrite(ctx, &v, events.VisitRecorded)
	return &v, nil
}

func (s *Service) Get(ctx context.Context, hospitalID, id int64) (*Visit, error) {
	return s.repo.GetByID(ctx, hospitalID, id)
}

// Update rewrites the timestamp, status, type and category of a visit. The
// patient and hospital of a visit never change.
func (s *Service) Update(ctx context.Context, hospitalID, id int64, in *Visit) (*Visit, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	v := &Visit{
		ID:         id,
		HospitalID: hospitalID,
		VisitedAt:  in.VisitedAt,
		Status:     in.Status,
		VisitType:  in.VisitType,
		Category:   in.Category,
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, v, events.VisitUpdated)
	return v, nil
}

func (s *Service) Delete(ctx context.Context, hospitalID, id int64) error {
	v, err := s.repo.Delete(ctx, hospitalID, id)
	if err != nil {
		return err
	}
	s.logger.Info().Int64("hospital_id", hospitalID).Int64("visit_id", id).Msg("visit deleted")
	s.afterWrite(ctx, v, events.VisitDeleted)
	return nil
}

// ListByPatient pages through the visits of an active patient, newest first.
func (s *Service) ListByPatient(ctx context.Context, hospitalID, patientID int64, p pagination.Params) ([]*Visit, int64, error) {
	if _, err := s.patients.Get(ctx, hospitalID, patientID); err != nil {
		return nil, 0, err
	}
	p = pagination.New(p.Page, p.Size)
	return s.repo.ListByPatient(ctx, hospitalID, patientID, p.Limit(), p.Offset())
}

func (s *Service) ListByHospital(ctx context.Context, hospitalID int64, p pagination.Params) ([]*Visit, int64, error) {
	p = pagination.New(p.Page, p.Size)
	return s.repo.ListByHospital(ctx, hospitalID, p.Limit(), p.Offset())
}

func (s *Service) afterWrite(ctx context.Context, v *Visit, eventType string) {
	ctx = context.WithoutCancel(ctx)
	s.patients.InvalidateSearch(ctx, v.HospitalID)
	payload := map[string]interface{}{
		"visit_id":   v.ID,
		"patient_id": v.PatientID,
		"visited_at": v.VisitedAt,
	}
	if err := s.events.Publish(ctx, events.New(eventType, v.HospitalID, payload)); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Int64("hospital_id", v.HospitalID).Msg("event publish failed")
	}
}
