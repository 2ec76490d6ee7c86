package utils

import (
	"github.com/pocketbase/pocketbase/core"
)

// AuditEntry represents an audit log entry
type AuditEntry struct {
	UserID       string
	UserEmail    string
	Action       string // create, update, delete, login, access_granted, access_denied, rsvp_submitted, invite_sent
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Changes      map[string]any
	Metadata     map[string]any
	Status       string // success, failure, error
	ErrorMessage string
}

// AuditActions are the values accepted by the audit_logs action field.
var AuditActions = []string{
	"create", "update", "delete",
	"login", "access_granted", "access_denied",
	"rsvp_submitted", "invite_sent", "backup",
}

// LogAudit writes the entry in the background so requests are not blocked.
func LogAudit(app core.App, entry AuditEntry) {
	go func() {
		if err := SaveAudit(app, entry); err != nil {
			Logger("audit").Error().Err(err).
				Str("action", entry.Action).
				Str("resource", entry.ResourceType).
				Msg("failed to save audit log")
		}
	}()
}

// SaveAudit writes the entry synchronously.
func SaveAudit(app core.App, entry AuditEntry) error {
	collection, err := app.FindCollectionByNameOrId(CollectionAuditLogs)
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("user_id", entry.UserID)
	record.Set("user_email", entry.UserEmail)
	record.Set("action", entry.Action)
	record.Set("resource_type", entry.ResourceType)
	record.Set("resource_id", entry.ResourceID)
	record.Set("ip_address", entry.IPAddress)
	record.Set("user_agent", entry.UserAgent)
	record.Set("changes", entry.Changes)
	record.Set("metadata", entry.Metadata)
	record.Set("status", entry.Status)
	record.Set("error_message", entry.ErrorMessage)

	return app.Save(record)
}

// LogFromRequest creates an audit entry from a request event
func LogFromRequest(app core.App, re *core.RequestEvent, action, resourceType, resourceID, status string, metadata map[string]any, errorMessage string) {
	entry := AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    re.RealIP(),
		UserAgent:    re.Request.UserAgent(),
		Metadata:     metadata,
		Status:       status,
		ErrorMessage: errorMessage,
	}

	if re.Auth != nil {
		entry.UserID = re.Auth.Id
		entry.UserEmail = re.Auth.GetString("email")
	}

	LogAudit(app, entry)
}

// LogRecordChange logs a record change from PocketBase hooks. fields is the
// record's FieldsData; PII fields are left out of the stored snapshot.
func LogRecordChange(app core.App, action, resourceType, resourceID string, fields map[string]any) {
	LogAudit(app, recordChangeEntry(action, resourceType, resourceID, fields))
}

func recordChangeEntry(action, resourceType, resourceID string, fields map[string]any) AuditEntry {
	entry := AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       "success",
	}
	if fields == nil {
		return entry
	}
	snapshot := make(map[string]any, len(fields))
	for k, v := range fields {
		if auditRedacted[k] {
			continue
		}
		snapshot[k] = v
	}
	entry.Changes = map[string]any{"data": snapshot}
	return entry
}

// auditRedacted lists record fields never copied into audit_logs.
var auditRedacted = map[string]bool{
	FieldPhone:      true,
	FieldPhoneIndex: true,
	"email":         true,
	"password":      true,
	"tokenKey":      true,
}
