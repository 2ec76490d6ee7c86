package utils

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// ErrSettingNotFound is returned when no app_settings row has the key.
var ErrSettingNotFound = errors.New("setting not found")

func findSetting(app core.App, key string) (*core.Record, error) {
	record, err := app.FindFirstRecordByFilter(CollectionAppSettings, "key = {:key}", dbx.Params{"key": key})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("find setting %s: %w", key, err)
	}
	return record, nil
}

// GetSetting decodes the JSON value stored under key into target.
func GetSetting(app core.App, key string, target any) error {
	record, err := findSetting(app, key)
	if err != nil {
		return err
	}
	if err := record.UnmarshalJSONField("value", target); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

// PutSetting stores value under key, creating the row when needed.
func PutSetting(app core.App, key string, value any) error {
	record, err := findSetting(app, key)
	if errors.Is(err, ErrSettingNotFound) {
		collection, cerr := app.FindCollectionByNameOrId(CollectionAppSettings)
		if cerr != nil {
			return cerr
		}
		record = core.NewRecord(collection)
		record.Set("key", key)
	} else if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	record.Set("value", types.JSONRaw(raw))
	return app.Save(record)
}

// SettingExists reports whether key has a stored value.
func SettingExists(app core.App, key string) (bool, error) {
	_, err := findSetting(app, key)
	if errors.Is(err, ErrSettingNotFound) {
		return false, nil
	}
	return err == nil, err
}
