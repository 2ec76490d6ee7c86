package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/security"
	"github.com/pocketbase/pocketbase/tools/types"
)

// --- HTTP Response Helpers ---

// ErrorResponse returns a JSON error response with the given status code and message
func ErrorResponse(re *core.RequestEvent, status int, message string) error {
	return re.JSON(status, map[string]string{"error": message})
}

// NotFoundResponse returns a 404 JSON error response
func NotFoundResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusNotFound, message)
}

// BadRequestResponse returns a 400 JSON error response
func BadRequestResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusBadRequest, message)
}

// ConflictResponse returns a 409 JSON error response
func ConflictResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusConflict, message)
}

// InternalErrorResponse returns a 500 JSON error response
func InternalErrorResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusInternalServerError, message)
}

// ForbiddenResponse returns a 403 JSON error response
func ForbiddenResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusForbidden, message)
}

// ValidationErrorResponse returns a 400 with per-field messages when err
// came from ozzo-validation.
func ValidationErrorResponse(re *core.RequestEvent, err error) error {
	return re.JSON(http.StatusBadRequest, ValidationErrorBody(err))
}

// ValidationErrorBody shapes a validation error into the JSON error body.
func ValidationErrorBody(err error) map[string]any {
	body := map[string]any{"error": "Validation failed"}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		body["fields"] = fields
		return body
	}
	body["error"] = err.Error()
	return body
}

// SuccessResponse returns a 200 JSON success response with a message
func SuccessResponse(re *core.RequestEvent, message string) error {
	return re.JSON(http.StatusOK, map[string]string{"message": message})
}

// DataResponse returns a 200 JSON response with arbitrary data
func DataResponse(re *core.RequestEvent, data any) error {
	return re.JSON(http.StatusOK, data)
}

// --- Request Helpers ---

// DecodeJSON reads the request body into dst, rejecting unknown fields.
func DecodeJSON(re *core.RequestEvent, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(re.Response, re.Request.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// QueryInt parses an integer query parameter, returning def when absent
// or outside [lo, hi].
func QueryInt(re *core.RequestEvent, name string, def, lo, hi int) int {
	v, err := strconv.Atoi(re.Request.URL.Query().Get(name))
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}

// --- Pointer Helpers ---

// Pointer returns a pointer to the given string value
// Use types.Pointer for PocketBase rule fields
func Pointer(s string) *string {
	return types.Pointer(s)
}

// --- String Helpers ---

// Slugify lowercases s and joins runs of ASCII letters and digits with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GuestSlug returns "<slugified name>-<4 random chars>".
func GuestSlug(name string) string {
	base := Slugify(name)
	if base == "" {
		base = "guest"
	}
	return base + "-" + security.RandomStringWithAlphabet(4, slugAlphabet)
}
