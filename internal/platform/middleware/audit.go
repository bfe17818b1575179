package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthcare/healthcare-api/internal/platform/auth"
)

// auditedResources are the /api/<resource>/ prefixes whose access is logged.
var auditedResources = map[string]bool{
	"patients": true,
	"doctors":  true,
	"mappings": true,
}

// AuditEntry captures who touched which record, how, and with what outcome.
type AuditEntry struct {
	UserID     string
	UserRole   string
	Resource   string
	ResourceID string
	PatientID  string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// Audit logs one "record_access" line for every request against a patient,
// doctor or mapping route. It must run inside the bearer middleware so the
// caller identity is on the request context.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := buildEntry(c, err)
			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("user_role", entry.UserRole).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Str("user_agent", entry.UserAgent).
				Int("status", entry.StatusCode).
				Time("at", entry.Timestamp).
				Msg("record_access")

			return err
		}
	}
}

func buildEntry(c echo.Context, err error) AuditEntry {
	req := c.Request()
	ctx := req.Context()

	entry := AuditEntry{
		Timestamp:  time.Now().UTC(),
		Path:       req.URL.Path,
		Method:     req.Method,
		IPAddress:  c.RealIP(),
		UserAgent:  req.UserAgent(),
		StatusCode: responseStatus(c, err),
		UserID:     auth.UserIDFromContext(ctx),
		UserRole:   auth.RoleFromContext(ctx),
		Action:     httpMethodToAction(req.Method),
	}
	if rid, ok := c.Get("request_id").(string); ok {
		entry.RequestID = rid
	}

	segments := apiSegments(req.URL.Path)
	entry.Resource = segments[0]
	if len(segments) > 1 && isUUIDLike(segments[1]) {
		entry.ResourceID = segments[1]
	}
	entry.PatientID = extractPatientID(segments)
	return entry
}

// isAuditablePath reports whether path addresses one of the record resources.
func isAuditablePath(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return false
	}
	return auditedResources[apiSegments(path)[0]]
}

// apiSegments splits "/api/a/b/" into ["a", "b"]. The result always has at
// least one element.
func apiSegments(path string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/api/"), "/")
	return strings.Split(trimmed, "/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractPatientID finds the patient a request is about:
//   - /api/patients/<id>/          -> id
//   - /api/mappings/patient/<id>/  -> id
func extractPatientID(segments []string) string {
	switch {
	case len(segments) >= 2 && segments[0] == "patients" && isUUIDLike(segments[1]):
		return segments[1]
	case len(segments) >= 3 && segments[0] == "mappings" && segments[1] == "patient" && isUUIDLike(segments[2]):
		return segments[2]
	}
	return ""
}

func isUUIDLike(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
