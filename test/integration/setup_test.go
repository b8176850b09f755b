//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/minlab/hospital/internal/domain/hospital"
	"github.com/minlab/hospital/internal/domain/patient"
	"github.com/minlab/hospital/internal/domain/visit"
	"github.com/minlab/hospital/internal/platform/db"
)

// globalPool is the shared migrated database, initialized once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, cleanup, err := setupDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// setupDatabase starts Postgres, connects with the application pool settings
// and applies every migration.
func setupDatabase(ctx context.Context) (*pgxpool.Pool, func(), error) {
	connStr, stop, err := startPostgres(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}

	pool, err := db.NewPool(ctx, connStr, 60, 2)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}

	if _, err := db.NewMigrator(pool, os.DirFS(findMigrationsDir())).Up(ctx); err != nil {
		pool.Close()
		stop()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, func() {
		pool.Close()
		stop()
	}, nil
}

// findMigrationsDir locates the migrations directory relative to this test file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// resetDatabase empties every table so each test starts from fresh sequences.
func resetDatabase(t *testing.T) {
	t.Helper()
	_, err := globalPool.Exec(context.Background(),
		`TRUNCATE visit, patient, patient_sequence, hospital RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("reset database: %v", err)
	}
}

type registry struct {
	hospitals *hospital.Service
	patients  *patient.Service
	visits    *visit.Service
}

func newRegistry(t *testing.T) *registry {
	t.Helper()
	resetDatabase(t)

	logger := zerolog.Nop()
	hospitals := hospital.NewService(hospital.NewRepo(globalPool), db.NewTransactor(globalPool), logger)
	allocator := patient.NewAllocator(hospitals, patient.NewSequenceStore(globalPool))
	patients := patient.NewService(patient.NewRepo(globalPool), allocator, nil, nil, logger)
	return &registry{
		hospitals: hospitals,
		patients:  patients,
		visits:    visit.NewService(visit.NewRepo(globalPool), patients, nil, logger),
	}
}

func (r *registry) createHospital(t *testing.T, license string) *hospital.Hospital {
	t.Helper()
	h := &hospital.Hospital{Name: "Hospital " + license, LicenseNumber: license, DirectorName: "Director"}
	if err := r.hospitals.Create(context.Background(), h); err != nil {
		t.Fatalf("create hospital: %v", err)
	}
	return h
}

func (r *registry) register(t *testing.T, hospitalID int64, name string) *patient.Patient {
	t.Helper()
	p, err := r.patients.Register(context.Background(), hospitalID, &patient.Patient{Name: name, Gender: "F", Phone: "010-0000-0000"})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return p
}
