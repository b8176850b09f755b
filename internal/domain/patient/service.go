package patient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/minlab/hospital/internal/platform/cache"
	"github.com/minlab/hospital/internal/platform/events"
	"github.com/minlab/hospital/pkg/pagination"
)

// SearchPage is one page of search results plus the total match count.
type SearchPage struct {
	Items      []*SearchResult   `json:"items"`
	TotalCount int64             `json:"total_count"`
	Params     pagination.Params `json:"params"`
}

// Service registers, maintains and searches the patients of each hospital.
type Service struct {
	repo      Repository
	allocator *Allocator
	hospitals HospitalLookup
	cache     cache.SearchCache
	events    events.Publisher
	logger    zerolog.Logger
	now       func() time.Time

	// hospitals whose last cache invalidation failed; their cached pages are
	// bypassed until an invalidation succeeds.
	staleMu sync.Mutex
	stale   map[int64]bool
}

// NewService wires the patient service. The allocator's hospital lookup also
// guards search. A nil cache or publisher disables caching or events.
func NewService(repo Repository, allocator *Allocator, c cache.SearchCache, pub events.Publisher, logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	var hospitals HospitalLookup
	if allocator != nil {
		hospitals = allocator.hospitals
	}
	return &Service{
		repo:      repo,
		allocator: allocator,
		hospitals: hospitals,
		cache:     c,
		events:    pub,
		logger:    logger.With().Str("component", "patient").Logger(),
		now:       time.Now,
		stale:     make(map[int64]bool),
	}
}

// Register allocates the hospital's next sequence number, derives the
// registration number from it and stores the patient, all in one transaction.
func (s *Service) Register(ctx context.Context, hospitalID int64, in *Patient) (*Patient, error) {
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}

	p := *in
	p.ID = 0
	p.HospitalID = hospitalID
	p.Status = StatusActive
	p.DeletedAt = nil

	seq, err := s.allocator.Allocate(ctx, hospitalID, func(ctx context.Context, seq int64) error {
		p.Seq = seq
		p.RegistrationNumber = FormatRegistrationNumber(hospitalID, seq)
		return s.repo.Create(ctx, &p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("hospital_id", hospitalID).
		Int64("patient_id", p.ID).
		Int64("seq", seq).
		Str("registration_number", p.RegistrationNumber).
		Msg("patient registered")

	s.afterWrite(ctx, hospitalID, events.PatientRegistered, map[string]interface{}{
		"patient_id":          p.ID,
		"seq":                 p.Seq,
		"registration_number": p.RegistrationNumber,
	})
	return &p, nil
}

func (s *Service) Get(ctx context.Context, hospitalID, id int64) (*Patient, error) {
	return s.repo.GetActive(ctx, hospitalID, id)
}

// Update rewrites the demographics of an active patient.
func (s *Service) Update(ctx context.Context, hospitalID, id int64, in *Patient) (*Patient, error) {
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}
	p := &Patient{
		ID:         id,
		HospitalID: hospitalID,
		Name:       in.Name,
		Gender:     in.Gender,
		BirthDate:  in.BirthDate,
		Phone:      in.Phone,
		Address:    in.Address,
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, hospitalID, events.PatientUpdated, map[string]interface{}{"patient_id": id})
	return p, nil
}

// Delete soft-deletes a patient. The sequence number stays consumed.
func (s *Service) Delete(ctx context.Context, hospitalID, id int64) error {
	if err := s.repo.SoftDelete(ctx, hospitalID, id); err != nil {
		return err
	}
	s.logger.Info().Int64("hospital_id", hospitalID).Int64("patient_id", id).Msg("patient deleted")
	s.afterWrite(ctx, hospitalID, events.PatientDeleted, map[string]interface{}{"patient_id": id})
	return nil
}

// Search returns one page of the hospital's active patients matching f. An
// unknown hospital is NotFound. Pages are served from the search cache when
// present; cache failures are logged and treated as misses.
func (s *Service) Search(ctx context.Context, hospitalID int64, f SearchFilter, p pagination.Params) (*SearchPage, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	if err := requireHospital(ctx, s.hospitals, hospitalID); err != nil {
		return nil, err
	}
	p = pagination.New(p.Page, p.Size)

	scope := cache.HospitalScope(hospitalID)
	key := searchCacheKey(f, p)

	cacheable := s.cacheUsable(ctx, hospitalID)
	var version int64
	if cacheable {
		var data []byte
		data, version, err = s.cache.Get(ctx, scope, key)
		switch {
		case err == nil:
			var page SearchPage
			if jsonErr := json.Unmarshal(data, &page); jsonErr == nil {
				return &page, nil
			}
			s.logger.Warn().Str("key", key).Msg("discarding undecodable search cache entry")
		case errors.Is(err, cache.ErrMiss):
		default:
			cacheable = false
			s.logger.Warn().Err(err).Int64("hospital_id", hospitalID).Msg("search cache unavailable")
		}
	}

	items, total, err := s.repo.Search(ctx, hospitalID, f, p.Limit(), p.Offset())
	if err != nil {
		return nil, err
	}
	page := &SearchPage{Items: items, TotalCount: total, Params: p}

	if cacheable {
		if encoded, err := json.Marshal(page); err == nil {
			if err := s.cache.Set(ctx, scope, version, key, encoded); err != nil {
				s.logger.Warn().Err(err).Int64("hospital_id", hospitalID).Msg("search cache write failed")
			}
		}
	}
	return page, nil
}

// InvalidateSearch drops every cached search page of the hospital. It runs
// after a committed write, so it ignores cancellation of ctx. When it fails
// the hospital's cached pages are bypassed until a later invalidation works.
func (s *Service) InvalidateSearch(ctx context.Context, hospitalID int64) {
	if err := s.invalidate(ctx, hospitalID); err != nil {
		s.logger.Warn().Err(err).Int64("hospital_id", hospitalID).Msg("search cache invalidation failed")
	}
}

func (s *Service) invalidate(ctx context.Context, hospitalID int64) error {
	err := s.cache.Invalidate(context.WithoutCancel(ctx), cache.HospitalScope(hospitalID))

	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	if err != nil {
		s.stale[hospitalID] = true
	} else {
		delete(s.stale, hospitalID)
	}
	return err
}

// cacheUsable reports whether the hospital's cached pages may be read and
// written. A hospital left stale by a failed invalidation is retried first.
func (s *Service) cacheUsable(ctx context.Context, hospitalID int64) bool {
	s.staleMu.Lock()
	stale := s.stale[hospitalID]
	s.staleMu.Unlock()
	if !stale {
		return true
	}
	return s.invalidate(ctx, hospitalID) == nil
}

func (s *Service) afterWrite(ctx context.Context, hospitalID int64, eventType string, payload map[string]interface{}) {
	ctx = context.WithoutCancel(ctx)
	s.InvalidateSearch(ctx, hospitalID)
	if err := s.events.Publish(ctx, events.New(eventType, hospitalID, payload)); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Int64("hospital_id", hospitalID).Msg("event publish failed")
	}
}

func searchCacheKey(f SearchFilter, p pagination.Params) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%d", f.Name, f.RegistrationNumber, f.BirthDate, p.Page, p.Size)))
	return hex.EncodeToString(sum[:])
}
