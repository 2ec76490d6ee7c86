package migrations

import (
	"fmt"
	"log"

	"github.com/grtshw/wedding-invitation/invitation"
	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/grtshw/wedding-invitation/whatsapp"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		seeded, err := SeedDefaults(app)
		if err != nil {
			return err
		}
		log.Printf("[Migration] Seeded %d default settings\n", seeded)
		return nil
	}, nil)
}

// SeedDefaults inserts the default WhatsApp template, wedding details and
// guest category when they are missing. Existing values are left alone.
// It returns how many records were created.
func SeedDefaults(app core.App) (int, error) {
	created := 0

	defaults := []struct {
		key   string
		value any
	}{
		{utils.SettingWATemplate, whatsapp.DefaultTemplate},
		{utils.SettingWedding, invitation.Default},
	}
	for _, d := range defaults {
		ok, err := seedSetting(app, d.key, d.value)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	ok, err := seedCategory(app, models.DefaultCategory)
	if err != nil {
		return created, err
	}
	if ok {
		created++
	}
	return created, nil
}

func seedSetting(app core.App, key string, value any) (bool, error) {
	exists, err := utils.SettingExists(app, key)
	if err != nil || exists {
		return false, err
	}
	if err := utils.PutSetting(app, key, value); err != nil {
		return false, err
	}
	return true, nil
}

func seedCategory(app core.App, name string) (bool, error) {
	n, err := app.CountRecords(utils.CollectionGuestCategories, dbx.HashExp{"name": name})
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionGuestCategories)
	if err != nil {
		return false, err
	}
	record := core.NewRecord(collection)
	record.Set("name", name)
	if err := app.Save(record); err != nil {
		return false, fmt.Errorf("save category %s: %w", name, err)
	}
	return true, nil
}
