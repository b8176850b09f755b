package hospital

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/minlab/hospital/internal/platform/apperrors"
	"github.com/minlab/hospital/pkg/pagination"
)

// -- Mock Hospital Repository --

type mockHospitalRepo struct {
	mu        sync.Mutex
	hospitals map[int64]*Hospital
	nextID    int64
	// owners marks hospitals that still own patients; deleting them conflicts.
	owners map[int64]bool
}

func newMockHospitalRepo() *mockHospitalRepo {
	return &mockHospitalRepo{hospitals: make(map[int64]*Hospital), owners: make(map[int64]bool)}
}

func (m *mockHospitalRepo) Create(_ context.Context, h *Hospital) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.hospitals {
		if existing.LicenseNumber == h.LicenseNumber {
			return apperrors.Conflict.WithMessage("license number already registered")
		}
	}
	m.nextID++
	h.ID = m.nextID
	h.CreatedAt = time.Now()
	h.UpdatedAt = h.CreatedAt
	cp := *h
	m.hospitals[h.ID] = &cp
	return nil
}

func (m *mockHospitalRepo) GetByID(_ context.Context, id int64) (*Hospital, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hospitals[id]
	if !ok {
		return nil, apperrors.NotFound.WithMessage("hospital %d not found", id)
	}
	cp := *h
	return &cp, nil
}

func (m *mockHospitalRepo) Update(_ context.Context, h *Hospital) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.hospitals[h.ID]
	if !ok {
		return apperrors.NotFound.WithMessage("hospital %d not found", h.ID)
	}
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now()
	cp := *h
	m.hospitals[h.ID] = &cp
	return nil
}

func (m *mockHospitalRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hospitals[id]; !ok {
		return apperrors.NotFound.WithMessage("hospital %d not found", id)
	}
	if m.owners[id] {
		return apperrors.Conflict.WithMessage("hospital %d still has patients or visits", id)
	}
	delete(m.hospitals, id)
	return nil
}

func (m *mockHospitalRepo) List(_ context.Context, limit, offset int) ([]*Hospital, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Hospital
	for _, h := range m.hospitals {
		all = append(all, h)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []*Hospital{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockHospitalRepo) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hospitals[id]
	return ok, nil
}

func (m *mockHospitalRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.hospitals)), nil
}

// passthroughTx runs fn directly.
type passthroughTx struct{ calls int }

func (p *passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

func (p *passthroughTx) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockHospitalRepo) {
	repo := newMockHospitalRepo()
	return NewService(repo, &passthroughTx{}, zerolog.Nop()), repo
}

func validHospital() *Hospital {
	return &Hospital{Name: "민랩종합병원", LicenseNumber: "1100001234", DirectorName: "김병원장"}
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService()

	h := validHospital()
	if err := svc.Create(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID == 0 {
		t.Error("expected id to be assigned")
	}
}

func TestService_Create_RunsInTransaction(t *testing.T) {
	repo := newMockHospitalRepo()
	tx := &passthroughTx{}
	svc := NewService(repo, tx, zerolog.Nop())

	if err := svc.Create(context.Background(), validHospital()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.calls != 1 {
		t.Errorf("expected create to run in one transaction, got %d", tx.calls)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		h    Hospital
	}{
		{"missing name", Hospital{LicenseNumber: "1", DirectorName: "d"}},
		{"blank name", Hospital{Name: "   ", LicenseNumber: "1", DirectorName: "d"}},
		{"missing license", Hospital{Name: "n", DirectorName: "d"}},
		{"missing director", Hospital{Name: "n", LicenseNumber: "1"}},
		{"license too long", Hospital{Name: "n", LicenseNumber: "123456789012345678901", DirectorName: "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.h
			err := svc.Create(context.Background(), &h)
			if !errors.Is(err, apperrors.InvalidArgument) {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestService_Create_TrimsFields(t *testing.T) {
	svc, _ := newTestService()

	h := &Hospital{Name: "  민랩의원 ", LicenseNumber: " 2200005678", DirectorName: "박원장  "}
	if err := svc.Create(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Name != "민랩의원" || h.LicenseNumber != "2200005678" || h.DirectorName != "박원장" {
		t.Errorf("expected trimmed fields, got %+v", h)
	}
}

func TestService_Create_DuplicateLicense(t *testing.T) {
	svc, _ := newTestService()

	svc.Create(context.Background(), validHospital())
	err := svc.Create(context.Background(), validHospital())
	if !errors.Is(err, apperrors.Conflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestService_GetUpdate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	h := validHospital()
	svc.Create(ctx, h)

	h.DirectorName = "이원장"
	if err := svc.Update(ctx, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Get(ctx, h.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DirectorName != "이원장" {
		t.Errorf("expected updated director, got %s", got.DirectorName)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), 404)
	if !errors.Is(err, apperrors.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	free := validHospital()
	svc.Create(ctx, free)
	owner := &Hospital{Name: "민랩의원", LicenseNumber: "2200005678", DirectorName: "박원장"}
	svc.Create(ctx, owner)
	repo.owners[owner.ID] = true

	if err := svc.Delete(ctx, free.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := svc.Exists(ctx, free.ID); ok {
		t.Error("expected hospital to be gone")
	}
	if err := svc.Delete(ctx, owner.ID); !errors.Is(err, apperrors.Conflict) {
		t.Errorf("expected Conflict for a hospital with patients, got %v", err)
	}
	if err := svc.Delete(ctx, 999); !errors.Is(err, apperrors.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.Seed(ctx)

	items, total, err := svc.List(ctx, pagination.New(1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 1 {
		t.Errorf("expected 1 of 2, got %d of %d", len(items), total)
	}
}

func TestService_Seed(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	n, err := svc.Seed(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 seeded hospitals, got %d", n)
	}

	n, err = svc.Seed(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected seeding to be skipped, got %d", n)
	}
	if c, _ := repo.Count(ctx); c != 2 {
		t.Errorf("expected 2 hospitals, got %d", c)
	}
}
