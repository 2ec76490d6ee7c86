package utils

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"
)

// RequireViewer admits admins and viewers. Authenticated records without a
// role get 403, since guest ids double as invitation tokens.
func RequireViewer(e *core.RequestEvent) error {
	if e.Auth == nil {
		RequestLogger(e, "auth").Warn().
			Str("path", e.Request.URL.Path).
			Str("ip", e.RealIP()).
			Msg("unauthorized request")
		return ErrorResponse(e, http.StatusUnauthorized, "Unauthorized")
	}
	if !IsViewer(e.Auth) {
		RequestLogger(e, "auth").Warn().
			Str("path", e.Request.URL.Path).
			Str("user", e.Auth.Id).
			Msg("forbidden request")
		return ForbiddenResponse(e, "Forbidden")
	}
	return e.Next()
}

// RequireAdmin rejects requests from anyone but superusers and admin users.
func RequireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil {
		RequestLogger(e, "auth").Warn().
			Str("path", e.Request.URL.Path).
			Str("ip", e.RealIP()).
			Msg("unauthorized request")
		return ErrorResponse(e, http.StatusUnauthorized, "Unauthorized")
	}
	if !IsAdmin(e.Auth) {
		RequestLogger(e, "auth").Warn().
			Str("path", e.Request.URL.Path).
			Str("user", e.Auth.Id).
			Msg("forbidden request")
		return ForbiddenResponse(e, "Forbidden")
	}
	return e.Next()
}

// IsAdmin reports whether record is a superuser or has the admin role.
func IsAdmin(record *core.Record) bool {
	if record == nil {
		return false
	}
	if record.Collection().Name == core.CollectionNameSuperusers {
		return true
	}
	return record.GetString(FieldRole) == "admin"
}

// IsViewer reports whether record may read dashboard data.
func IsViewer(record *core.Record) bool {
	if IsAdmin(record) {
		return true
	}
	return record != nil && record.GetString(FieldRole) == "viewer"
}
