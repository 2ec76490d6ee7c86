package migrations

import (
	"log"

	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	adminRule  = "@request.auth.role = 'admin'"
	viewerRule = "@request.auth.role = 'admin' || @request.auth.role = 'viewer'"
)

func init() {
	m.Register(func(app core.App) error {
		// Extend the default users collection
		if err := createUsersCollection(app); err != nil {
			return err
		}

		// Guests first (rsvp_responses references it)
		if err := createGuestsCollection(app); err != nil {
			return err
		}

		if err := createGuestCategoriesCollection(app); err != nil {
			return err
		}

		if err := createReceptionSessionsCollection(app); err != nil {
			return err
		}

		if err := createMessagesCollection(app); err != nil {
			return err
		}

		if err := createAppSettingsCollection(app); err != nil {
			return err
		}

		log.Println("[Migration] Created wedding invitation collections")
		return nil
	}, nil)
}

func createUsersCollection(app core.App) error {
	collection, err := app.FindCollectionByNameOrId(utils.CollectionUsers)
	if err != nil {
		// Users collection should exist by default, just extend it
		return nil
	}

	if !fieldExists(collection, utils.FieldRole) {
		collection.Fields.Add(&core.SelectField{
			Id:        "users_role",
			Name:      utils.FieldRole,
			Required:  false,
			MaxSelect: 1,
			Values:    utils.UserRoles,
		})
	}

	if !fieldExists(collection, "name") {
		collection.Fields.Add(&core.TextField{
			Id:       "users_name",
			Name:     "name",
			Required: false,
			Max:      200,
		})
	}

	// Accounts are created by a superuser; open sign-up would expose guest ids
	collection.CreateRule = nil

	return app.Save(collection)
}

func createGuestsCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionGuests)
	if existing != nil {
		return nil // Already exists
	}

	collection := core.NewBaseCollection(utils.CollectionGuests)

	collection.Fields.Add(&core.TextField{
		Id:       "guest_name",
		Name:     utils.FieldName,
		Required: true,
		Max:      utils.MaxNameLength,
	})

	// Folded name, maintained by hooks, used for case-insensitive lookup
	collection.Fields.Add(&core.TextField{
		Id:     "guest_name_key",
		Name:   utils.FieldNameKey,
		Max:    400,
		Hidden: true,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "guest_slug",
		Name: utils.FieldSlug,
		Max:  150,
	})

	// Encrypted when ENCRYPTION_KEY is set
	collection.Fields.Add(&core.TextField{
		Id:   "guest_phone",
		Name: utils.FieldPhone,
		Max:  500,
	})

	collection.Fields.Add(&core.TextField{
		Id:     "guest_phone_index",
		Name:   utils.FieldPhoneIndex,
		Max:    100,
		Hidden: true,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "guest_category",
		Name: utils.FieldCategory,
		Max:  100,
	})

	statuses := make([]string, 0, len(models.RSVPStatuses))
	for _, s := range models.RSVPStatuses {
		statuses = append(statuses, string(s))
	}
	collection.Fields.Add(&core.SelectField{
		Id:        "guest_rsvp_status",
		Name:      utils.FieldRSVPStatus,
		MaxSelect: 1,
		Values:    statuses,
	})

	collection.Fields.Add(&core.AutodateField{
		Id:       "guest_created",
		Name:     "created",
		OnCreate: true,
	})
	collection.Fields.Add(&core.AutodateField{
		Id:       "guest_updated",
		Name:     "updated",
		OnCreate: true,
		OnUpdate: true,
	})

	collection.Indexes = []string{
		"CREATE INDEX idx_guests_name_key ON guests (name_key)",
		"CREATE UNIQUE INDEX idx_guests_slug ON guests (slug) WHERE slug != ''",
		"CREATE UNIQUE INDEX idx_guests_phone_index ON guests (phone_index) WHERE phone_index != ''",
		"CREATE INDEX idx_guests_category ON guests (category)",
		"CREATE INDEX idx_guests_created ON guests (created)",
	}

	// Guests are only reachable through the custom routes
	collection.ListRule = types.Pointer(adminRule)
	collection.ViewRule = types.Pointer(adminRule)
	collection.CreateRule = types.Pointer(adminRule)
	collection.UpdateRule = types.Pointer(adminRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

func createGuestCategoriesCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionGuestCategories)
	if existing != nil {
		return nil
	}

	collection := core.NewBaseCollection(utils.CollectionGuestCategories)
	collection.Fields.Add(
		&core.TextField{
			Id:       "cat_name",
			Name:     "name",
			Required: true,
			Max:      100,
		},
		&core.AutodateField{
			Id:       "cat_created",
			Name:     "created",
			OnCreate: true,
		},
	)
	collection.Indexes = []string{
		"CREATE UNIQUE INDEX idx_guest_categories_name ON guest_categories (name COLLATE NOCASE)",
	}

	collection.ListRule = types.Pointer(viewerRule)
	collection.ViewRule = types.Pointer(viewerRule)
	collection.CreateRule = types.Pointer(adminRule)
	collection.UpdateRule = types.Pointer(adminRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

func createReceptionSessionsCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionReceptionSessions)
	if existing != nil {
		return nil
	}

	collection := core.NewBaseCollection(utils.CollectionReceptionSessions)
	collection.Fields.Add(
		&core.TextField{
			Id:       "sess_name",
			Name:     "name",
			Required: true,
			Max:      100,
		},
		&core.TextField{
			Id:       "sess_time_display",
			Name:     "time_display",
			Required: true,
			Max:      100,
		},
		&core.AutodateField{
			Id:       "sess_created",
			Name:     "created",
			OnCreate: true,
		},
	)

	collection.ListRule = types.Pointer(viewerRule)
	collection.ViewRule = types.Pointer(viewerRule)
	collection.CreateRule = types.Pointer(adminRule)
	collection.UpdateRule = types.Pointer(adminRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

func createMessagesCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionMessages)
	if existing != nil {
		return nil
	}

	guests, err := app.FindCollectionByNameOrId(utils.CollectionGuests)
	if err != nil {
		return err
	}

	attendance := make([]string, 0, len(models.Attendances))
	for _, a := range models.Attendances {
		attendance = append(attendance, string(a))
	}

	collection := core.NewBaseCollection(utils.CollectionMessages)
	collection.Fields.Add(
		&core.TextField{
			Id:       "rsvp_name",
			Name:     "name",
			Required: true,
			Max:      utils.MaxNameLength,
		},
		&core.TextField{
			Id:       "rsvp_message",
			Name:     "message",
			Required: true,
			Max:      utils.MaxMessageLength,
		},
		&core.SelectField{
			Id:        "rsvp_attendance",
			Name:      "attendance",
			MaxSelect: 1,
			Values:    attendance,
		},
		// Empty for a root message, otherwise the id of the root it replies to
		&core.TextField{
			Id:   "rsvp_parent_id",
			Name: utils.FieldParentID,
			Max:  50,
		},
		&core.RelationField{
			Id:           "rsvp_guest",
			Name:         "guest",
			CollectionId: guests.Id,
			MaxSelect:    1,
		},
		&core.NumberField{
			Id:      "rsvp_guest_count",
			Name:    "guest_count",
			Min:     types.Pointer(0.0),
			Max:     types.Pointer(float64(utils.MaxGuestCount)),
			OnlyInt: true,
		},
		&core.EmailField{
			Id:   "rsvp_email",
			Name: "email",
		},
		&core.TextField{
			Id:   "rsvp_phone",
			Name: "phone",
			Max:  50,
		},
		&core.TextField{
			Id:   "rsvp_dietary",
			Name: "dietary_restrictions",
			Max:  500,
		},
		&core.AutodateField{
			Id:       "rsvp_created",
			Name:     "created",
			OnCreate: true,
		},
	)

	collection.Indexes = []string{
		"CREATE INDEX idx_rsvp_parent ON rsvp_responses (parent_id)",
		"CREATE INDEX idx_rsvp_created ON rsvp_responses (created)",
		"CREATE INDEX idx_rsvp_guest ON rsvp_responses (guest)",
	}

	// Guests write through /api/public/messages only
	collection.ListRule = types.Pointer(viewerRule)
	collection.ViewRule = types.Pointer(viewerRule)
	collection.CreateRule = nil
	collection.UpdateRule = types.Pointer(adminRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

func createAppSettingsCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionAppSettings)
	if existing != nil {
		return nil
	}

	collection := core.NewBaseCollection(utils.CollectionAppSettings)
	collection.Fields.Add(
		&core.TextField{
			Id:       "set_key",
			Name:     "key",
			Required: true,
			Max:      100,
		},
		&core.JSONField{
			Id:      "set_value",
			Name:    "value",
			MaxSize: 100000,
		},
		&core.AutodateField{
			Id:       "set_updated",
			Name:     "updated",
			OnCreate: true,
			OnUpdate: true,
		},
	)
	collection.Indexes = []string{
		"CREATE UNIQUE INDEX idx_app_settings_key ON app_settings (key)",
	}

	collection.ListRule = types.Pointer(adminRule)
	collection.ViewRule = types.Pointer(adminRule)
	collection.CreateRule = types.Pointer(adminRule)
	collection.UpdateRule = types.Pointer(adminRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

// fieldExists checks if a field with the given name exists in the collection
func fieldExists(collection *core.Collection, fieldName string) bool {
	for _, f := range collection.Fields {
		if f.GetName() == fieldName {
			return true
		}
	}
	return false
}
