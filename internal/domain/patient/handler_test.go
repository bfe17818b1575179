package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/auth"
	"github.com/healthcare/healthcare-api/internal/platform/validation"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

type testServer struct {
	e      *echo.Echo
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		SigningKey: []byte("patient-handler-test-signing-key-000"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	svc, _ := newTestService()
	e := echo.New()
	e.Validator = validation.New()
	e.HTTPErrorHandler = apierror.HTTPErrorHandler(zerolog.Nop())
	api := e.Group("/api", auth.JWTMiddleware(auth.JWTConfig{Verifier: tokens}))
	NewHandler(svc).RegisterRoutes(api)
	return &testServer{e: e, tokens: tokens}
}

func (s *testServer) token(t *testing.T, user uuid.UUID) string {
	t.Helper()
	tok, err := s.tokens.IssueAccess(auth.Identity{UserID: user.String(), Role: "doctor"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, user uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != uuid.Nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.token(t, user))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

const createBody = `{"name":"Jane Doe","email":"jane@example.com","phone":"5550100","date_of_birth":"1990-04-12",
	"address":"1 Main St","gender":"female","blood_group":"O+","emergency_contact":"5550199"}`

func (s *testServer) create(t *testing.T, user uuid.UUID, body string) Patient {
	t.Helper()
	rec := s.do(t, user, http.MethodPost, "/api/patients/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var p Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

func TestHandler_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, uuid.Nil, http.MethodGet, "/api/patients/", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandler_CreateAndGet(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()

	p := s.create(t, owner, createBody)
	if p.CreatedBy != owner {
		t.Errorf("created_by = %s, want %s", p.CreatedBy, owner)
	}
	if p.DateOfBirth != "1990-04-12" || p.Gender != "female" {
		t.Errorf("unexpected patient: %+v", p)
	}

	rec := s.do(t, owner, http.MethodGet, "/api/patients/"+p.ID.String()+"/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
}

func TestHandler_Create_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"","email":"bad","phone":"5550100","date_of_birth":"12/04/1990",
		"address":"x","gender":"unknown","blood_group":"C+","emergency_contact":"1"}`

	rec := s.do(t, uuid.New(), http.MethodPost, "/api/patients/", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var fields map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, f := range []string{"name", "email", "date_of_birth", "gender", "blood_group"} {
		if len(fields[f]) == 0 {
			t.Errorf("expected error for %s, got %v", f, fields)
		}
	}
}

func TestHandler_ForeignAndMalformedIDsAre404(t *testing.T) {
	s := newTestServer(t)
	owner, stranger := uuid.New(), uuid.New()
	p := s.create(t, owner, createBody)
	path := "/api/patients/" + p.ID.String() + "/"

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec := s.do(t, stranger, method, path, createBody)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s by stranger: expected 404, got %d", method, rec.Code)
		}
	}

	rec := s.do(t, owner, http.MethodGet, "/api/patients/not-a-uuid/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("malformed id: expected 404, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["detail"] != "Not found." {
		t.Errorf("detail = %q", body["detail"])
	}
}

func TestHandler_PutRequiresAllFields(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	p := s.create(t, owner, createBody)

	rec := s.do(t, owner, http.MethodPut, "/api/patients/"+p.ID.String()+"/", `{"name":"Only Name"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_PatchOverlaysStoredRow(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	p := s.create(t, owner, createBody)

	rec := s.do(t, owner, http.MethodPatch, "/api/patients/"+p.ID.String()+"/", `{"name":"Jane Smith","blood_group":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Patient
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Name != "Jane Smith" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Email != "jane@example.com" || got.Phone != "5550100" {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if got.BloodGroup != nil {
		t.Errorf("expected blood_group cleared, got %v", *got.BloodGroup)
	}

	rec = s.do(t, owner, http.MethodPatch, "/api/patients/"+p.ID.String()+"/", `{"gender":"robot"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid patch: expected 400, got %d", rec.Code)
	}
}

func TestHandler_ListScopedWithTotal(t *testing.T) {
	s := newTestServer(t)
	owner, other := uuid.New(), uuid.New()
	s.create(t, owner, createBody)
	s.create(t, owner, strings.Replace(createBody, "jane@example.com", "jane2@example.com", 1))
	s.create(t, other, strings.Replace(createBody, "jane@example.com", "other@example.com", 1))

	rec := s.do(t, owner, http.MethodGet, "/api/patients/?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 item, got %d", len(list))
	}
	if got := rec.Header().Get(pagination.TotalCountHeader); got != "2" {
		t.Errorf("X-Total-Count = %q, want 2", got)
	}
	if list[0].Email != "jane2@example.com" {
		t.Errorf("expected newest first, got %s", list[0].Email)
	}
}

func TestHandler_Delete(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	p := s.create(t, owner, createBody)
	path := "/api/patients/" + p.ID.String() + "/"

	if rec := s.do(t, owner, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, owner, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}
