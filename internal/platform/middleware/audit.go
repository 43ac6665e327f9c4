package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mamisoa/oph4py-sub000/internal/platform/auth"
)

// AccessEntry captures who touched which worklist resource, when, from where,
// and the action type. It complements the persistent transaction ledger with a
// request-level access trail.
type AccessEntry struct {
	UserID        string
	UserRoles     []string
	Resource      string
	TransactionID string
	Action        string // read, create, update, delete
	IPAddress     string
	UserAgent     string
	Path          string
	Method        string
	Timestamp     time.Time
	RequestID     string
	StatusCode    int
}

// AccessRecorder is the interface the access-log middleware uses to persist
// entries. Decoupling it from a concrete sink lets tests provide a mock.
type AccessRecorder interface {
	RecordAccess(entry AccessEntry) error
}

// AccessRecorderFunc is a function adapter for AccessRecorder.
type AccessRecorderFunc func(entry AccessEntry) error

func (f AccessRecorderFunc) RecordAccess(entry AccessEntry) error {
	return f(entry)
}

// Audit returns Echo middleware that logs every /api/v1/* request with the
// authenticated user, the worklist resource touched and the transaction id
// when one appears in the path or query string.
//
// If no AccessRecorder is provided it falls back to structured zerolog output.
func Audit(logger zerolog.Logger, recorders ...AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			// Execute the handler first so we capture the response status.
			err := next(c)

			entry := AccessEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			ctx := req.Context()
			entry.UserID = auth.UserIDFromContext(ctx)
			entry.UserRoles = auth.RolesFromContext(ctx)

			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			entry.Action = httpMethodToAction(req.Method)
			entry.Resource = extractResource(path)
			entry.TransactionID = extractTransactionID(c)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record access entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("transaction_id", entry.TransactionID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("api_access")

			return err
		}
	}
}

// httpMethodToAction maps HTTP methods to audit action codes.
func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
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

// extractResource parses the top-level resource from an /api/v1/ path.
//
//	/api/v1/worklist/batch -> worklist
//	/api/v1/audit          -> audit
func extractResource(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

// extractTransactionID finds a transaction id in the request, checking the
// /api/v1/worklist/transaction/<id> path segment and the transaction_id query
// parameter.
func extractTransactionID(c echo.Context) string {
	path := c.Request().URL.Path

	if strings.HasPrefix(path, "/api/v1/worklist/transaction/") {
		segments := strings.Split(strings.TrimPrefix(path, "/api/v1/worklist/transaction/"), "/")
		if len(segments) > 0 && segments[0] != "" {
			return segments[0]
		}
	}

	if txID := c.QueryParam("transaction_id"); txID != "" {
		return txID
	}

	return ""
}
