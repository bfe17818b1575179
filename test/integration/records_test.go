//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcare/healthcare-api/internal/domain/doctor"
	"github.com/healthcare/healthcare-api/internal/domain/mapping"
	"github.com/healthcare/healthcare-api/internal/domain/patient"
	"github.com/healthcare/healthcare-api/internal/domain/user"
	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/db"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

type services struct {
	patients *patient.Service
	doctors  *doctor.Service
	mappings *mapping.Service
}

func newServices(pool *pgxpool.Pool) services {
	tx := db.NewTransactor(pool)
	patientRepo, doctorRepo := patient.NewRepo(pool), doctor.NewRepo(pool)
	return services{
		patients: patient.NewService(patientRepo, tx),
		doctors:  doctor.NewService(doctorRepo, tx),
		mappings: mapping.NewService(mapping.NewRepo(pool), patientRepo, doctorRepo, tx),
	}
}

func createUser(t *testing.T, pool *pgxpool.Pool, username string) *user.User {
	t.Helper()
	u := &user.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		Role:     user.RoleDoctor,
		IsActive: true,
	}
	require.NoError(t, user.NewRepo(pool).Create(context.Background(), u))
	return u
}

func patientRequest(email string) patient.Request {
	group := "AB-"
	return patient.Request{
		Name:             "Jane Doe",
		Email:            email,
		Phone:            "5550100",
		DateOfBirth:      "1990-04-12",
		Address:          "1 Main St",
		Gender:           "female",
		BloodGroup:       &group,
		EmergencyContact: "5550199",
	}
}

func doctorRequest(license string) doctor.Request {
	years, fee := 15, 320.25
	return doctor.Request{
		Name:            "Gregory House",
		Email:           "house@ppth.example",
		Phone:           "5550111",
		Specialization:  "Diagnostics",
		LicenseNumber:   license,
		ExperienceYears: &years,
		Address:         "Princeton",
		ConsultationFee: &fee,
		Availability:    "Mon-Fri 9AM-5PM",
	}
}

func TestUserRepo(t *testing.T) {
	pool := newSchemaPool(t)
	ctx := context.Background()
	repo := user.NewRepo(pool)
	u := createUser(t, pool, "alice")

	got, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.DateJoined.IsZero())

	taken, err := repo.EmailExists(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	dup := &user.User{Username: "alice2", Email: "ALICE@example.com", Password: "x", Role: user.RolePatient, IsActive: true}
	err = repo.Create(ctx, dup)
	assert.True(t, db.IsUniqueViolation(err, "users_email_key"), "got %v", err)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestPatientLifecycle(t *testing.T) {
	pool := newSchemaPool(t)
	ctx := context.Background()
	svc := newServices(pool)
	owner := createUser(t, pool, "owner")
	other := createUser(t, pool, "other")

	first, err := svc.patients.Create(ctx, owner.ID, patientRequest("jane@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "1990-04-12", first.DateOfBirth)
	second, err := svc.patients.Create(ctx, owner.ID, patientRequest("jane2@example.com"))
	require.NoError(t, err)
	_, err = svc.patients.Create(ctx, other.ID, patientRequest("theirs@example.com"))
	require.NoError(t, err)

	_, err = svc.patients.Create(ctx, other.ID, patientRequest("jane@example.com"))
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	list, total, err := svc.patients.List(ctx, owner.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	page, total, err := svc.patients.List(ctx, owner.ID, pagination.Params{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	_, err = svc.patients.Get(ctx, other.ID, first.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))

	req := first.Request()
	req.Name = "Jane Smith"
	req.BloodGroup = nil
	updated, err := svc.patients.Update(ctx, owner.ID, first.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Nil(t, updated.BloodGroup)
	assert.True(t, updated.UpdatedAt.After(first.CreatedAt) || updated.UpdatedAt.Equal(first.CreatedAt))

	require.NoError(t, svc.patients.Delete(ctx, owner.ID, first.ID))
	_, err = svc.patients.Get(ctx, owner.ID, first.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestDoctorLicenseUniqueness(t *testing.T) {
	pool := newSchemaPool(t)
	ctx := context.Background()
	svc := newServices(pool)

	d, err := svc.doctors.Create(ctx, doctorRequest("NJ-1"))
	require.NoError(t, err)
	assert.Equal(t, 320.25, d.ConsultationFee)

	_, err = svc.doctors.Create(ctx, doctorRequest("NJ-1"))
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	_, err = svc.doctors.Update(ctx, d.ID, d.Request())
	assert.NoError(t, err, "a doctor keeps its own license on update")
}

func TestMappingConcurrentCreate(t *testing.T) {
	pool := newSchemaPool(t)
	ctx := context.Background()
	svc := newServices(pool)
	owner := createUser(t, pool, "owner")

	p, err := svc.patients.Create(ctx, owner.ID, patientRequest("jane@example.com"))
	require.NoError(t, err)
	d, err := svc.doctors.Create(ctx, doctorRequest("NJ-1"))
	require.NoError(t, err)
	req := mapping.CreateRequest{Patient: p.ID.String(), Doctor: d.ID.String()}

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
		start    = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.mappings.Create(ctx, owner.ID, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apierror.IsKind(err, apierror.KindValidation):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, rejected)

	var active int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_doctor_mappings WHERE patient_id = $1 AND doctor_id = $2 AND is_active`,
		p.ID, d.ID).Scan(&active))
	assert.Equal(t, 1, active)
}

func TestMappingSoftDeleteAndCascade(t *testing.T) {
	pool := newSchemaPool(t)
	ctx := context.Background()
	svc := newServices(pool)
	owner := createUser(t, pool, "owner")

	p, err := svc.patients.Create(ctx, owner.ID, patientRequest("jane@example.com"))
	require.NoError(t, err)
	d, err := svc.doctors.Create(ctx, doctorRequest("NJ-1"))
	require.NoError(t, err)
	req := mapping.CreateRequest{Patient: p.ID.String(), Doctor: d.ID.String()}

	m, err := svc.mappings.Create(ctx, owner.ID, req)
	require.NoError(t, err)
	require.NoError(t, svc.mappings.Destroy(ctx, owner.ID, m.ID))
	require.NoError(t, svc.mappings.Destroy(ctx, owner.ID, m.ID))

	got, err := svc.mappings.Get(ctx, owner.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Jane Doe", got.PatientDetails.Name)
	assert.Equal(t, "NJ-1", got.DoctorDetails.LicenseNumber)

	again, err := svc.mappings.Create(ctx, owner.ID, req)
	require.NoError(t, err, "an inactive pair does not block reassignment")

	byPatient, total, err := svc.mappings.ListByPatient(ctx, owner.ID, p.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byPatient, 1)
	assert.Equal(t, again.ID, byPatient[0].ID)

	require.NoError(t, svc.doctors.Delete(ctx, d.ID))
	list, total, err := svc.mappings.List(ctx, owner.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, list)
}
