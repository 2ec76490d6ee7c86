package utils

// Collection names
const (
	CollectionUsers             = "users"
	CollectionGuests            = "guests"
	CollectionMessages          = "rsvp_responses"
	CollectionGuestCategories   = "guest_categories"
	CollectionReceptionSessions = "reception_sessions"
	CollectionAppSettings       = "app_settings"
	CollectionAuditLogs         = "audit_logs"
)

// Field names
const (
	FieldRole       = "role"
	FieldName       = "name"
	FieldNameKey    = "name_key"
	FieldPhone      = "phone"
	FieldPhoneIndex = "phone_index"
	FieldSlug       = "slug"
	FieldCategory   = "category"
	FieldRSVPStatus = "rsvp_status"
	FieldParentID   = "parent_id"
)

// App settings keys
const (
	SettingWATemplate = "wa_template"
	SettingWedding    = "wedding"
)

// User roles
var UserRoles = []string{"admin", "viewer"}

// AuditedCollections get create/update/delete audit hooks.
var AuditedCollections = []string{
	CollectionGuests,
	CollectionMessages,
	CollectionGuestCategories,
	CollectionReceptionSessions,
	CollectionAppSettings,
}

// Input limits
const (
	MaxNameLength    = 100
	MaxMessageLength = 2000
	MaxGuestCount    = 20
	MaxBatchSize     = 500
)
