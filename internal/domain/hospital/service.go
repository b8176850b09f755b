package hospital

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/minlab/hospital/internal/platform/db"
	"github.com/minlab/hospital/pkg/pagination"
)

type Service struct {
	repo   Repository
	tx     db.Transactor
	logger zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, logger: logger.With().Str("component", "hospital").Logger()}
}

func (s *Service) Create(ctx context.Context, h *Hospital) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, h)
	}); err != nil {
		return err
	}
	s.logger.Info().Int64("hospital_id", h.ID).Msg("hospital created")
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, h *Hospital) error {
	if err := h.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, h)
}

// Delete removes a hospital that owns no patients or visits.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("hospital_id", id).Msg("hospital deleted")
	return nil
}

func (s *Service) List(ctx context.Context, p pagination.Params) ([]*Hospital, int64, error) {
	return s.repo.List(ctx, p.Limit(), p.Offset())
}

// Exists reports whether a hospital with the given id exists.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Seed inserts the demo hospitals when no hospital exists yet and returns how
// many were inserted.
func (s *Service) Seed(ctx context.Context) (int, error) {
	inserted := 0
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		n, err := s.repo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, h := range Demo() {
			if err := s.repo.Create(ctx, h); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.logger.Info().Int("count", inserted).Msg("demo hospitals seeded")
	}
	return inserted, nil
}
