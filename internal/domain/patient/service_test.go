package patient

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

// -- Mock Repository --

type mockRepo struct {
	mu        sync.Mutex
	patients  map[uuid.UUID]*Patient
	clock     time.Time
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.clock = m.clock.Add(time.Minute)
	p.ID = uuid.New()
	p.CreatedAt = m.clock
	p.UpdatedAt = m.clock
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	m.clock = m.clock.Add(time.Minute)
	p.UpdatedAt = m.clock
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) ListByOwner(_ context.Context, owner uuid.UUID, pg pagination.Params) ([]*Patient, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*Patient{}
	for _, p := range m.patients {
		if p.CreatedBy == owner {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return pagination.Window(result, pg), len(result), nil
}

func (m *mockRepo) EmailExists(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.Email == email && p.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

type fakeTransactor struct{}

func (fakeTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Helpers --

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, fakeTransactor{}), repo
}

func strPtr(s string) *string { return &s }

func validRequest(email string) Request {
	return Request{
		Name:             "Jane Doe",
		Email:            email,
		Phone:            "5550100",
		DateOfBirth:      "1990-04-12",
		Address:          "1 Main St",
		Gender:           "female",
		BloodGroup:       strPtr("O+"),
		EmergencyContact: "5550199",
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	apiErr, ok := apierror.As(err)
	require.True(t, ok, "expected *apierror.Error, got %T: %v", err, err)
	assert.Equal(t, apierror.KindNotFound, apiErr.Kind)
	assert.Equal(t, "Not found.", apiErr.Detail)
}

// -- Tests --

func TestCreate_SetsOwner(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()

	p, err := svc.Create(context.Background(), owner, validRequest("jane@example.com"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, owner, p.CreatedBy)
	assert.Equal(t, "Jane Doe", p.Name)
	require.NotNil(t, p.BloodGroup)
	assert.Equal(t, "O+", *p.BloodGroup)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), uuid.New(), validRequest("jane@example.com"))
	require.NoError(t, err)

	// Uniqueness is global, not per owner.
	_, err = svc.Create(context.Background(), uuid.New(), validRequest("jane@example.com"))
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{msgEmailTaken}, apiErr.Fields["email"])
}

func TestCreate_LostRaceMapsToFieldError(t *testing.T) {
	svc, repo := newTestService()
	repo.createErr = &pgconn.PgError{Code: "23505", ConstraintName: constraintEmail}

	_, err := svc.Create(context.Background(), uuid.New(), validRequest("jane@example.com"))
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestList_OnlyOwnRowsNewestFirst(t *testing.T) {
	svc, _ := newTestService()
	alice, bob := uuid.New(), uuid.New()
	ctx := context.Background()

	first, err := svc.Create(ctx, alice, validRequest("a1@example.com"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, alice, validRequest("a2@example.com"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, validRequest("b1@example.com"))
	require.NoError(t, err)

	got, total, err := svc.List(ctx, alice, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	page, total, err := svc.List(ctx, alice, pagination.Params{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestOwnerScoping_ForeignLooksAbsent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()

	p, err := svc.Create(ctx, owner, validRequest("jane@example.com"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, p.ID)
	assertNotFound(t, err)
	_, err = svc.Get(ctx, stranger, uuid.New())
	assertNotFound(t, err)

	_, err = svc.Update(ctx, stranger, p.ID, validRequest("x@example.com"))
	assertNotFound(t, err)

	err = svc.Delete(ctx, stranger, p.ID)
	assertNotFound(t, err)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err, "foreign delete must not remove the row")
	assert.Equal(t, "jane@example.com", stored.Email)
}

func TestUpdate_ReplacesFieldsAndKeepsOwnEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	p, err := svc.Create(ctx, owner, validRequest("jane@example.com"))
	require.NoError(t, err)

	req := validRequest("jane@example.com")
	req.Name = "Jane Smith"
	req.BloodGroup = nil
	updated, err := svc.Update(ctx, owner, p.ID, req)
	require.NoError(t, err, "a row's own email must not count as a duplicate")

	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Nil(t, updated.BloodGroup)
	assert.Equal(t, owner, updated.CreatedBy)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))
}

func TestUpdate_EmailTakenByOther(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.Create(ctx, owner, validRequest("one@example.com"))
	require.NoError(t, err)
	p, err := svc.Create(ctx, owner, validRequest("two@example.com"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner, p.ID, validRequest("one@example.com"))
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestDelete_RemovesRow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	p, err := svc.Create(ctx, owner, validRequest("jane@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, p.ID))
	_, err = svc.Get(ctx, owner, p.ID)
	assertNotFound(t, err)
}

func TestRequest_Normalize(t *testing.T) {
	r := validRequest(" jane@example.com ")
	r.BloodGroup = strPtr("")
	r.MedicalHistory = strPtr("  ")
	r.Normalize()

	assert.Equal(t, "jane@example.com", r.Email)
	assert.Nil(t, r.BloodGroup)
	assert.Nil(t, r.MedicalHistory)
}
