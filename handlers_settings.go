package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/grtshw/wedding-invitation/invitation"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// --- Guest categories ---

type categoryInput struct {
	Name string `json:"name"`
}

func (in categoryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 100)),
	)
}

func categoryView(r *core.Record) map[string]any {
	return map[string]any{
		"id":      r.Id,
		"name":    r.GetString("name"),
		"created": r.GetDateTime("created"),
	}
}

func (s *server) handleCategoriesList(re *core.RequestEvent) error {
	records, err := s.app.FindRecordsByFilter(utils.CollectionGuestCategories, "", "name", 0, 0)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to fetch categories")
	}
	items := make([]map[string]any, 0, len(records))
	for _, r := range records {
		items = append(items, categoryView(r))
	}
	return utils.DataResponse(re, map[string]any{"items": items})
}

// categoryTaken reports whether another category already uses name.
func (s *server) categoryTaken(name, exceptID string) (bool, error) {
	_, err := s.app.FindFirstRecordByFilter(utils.CollectionGuestCategories,
		"name = {:name} && id != {:id}", dbx.Params{"name": name, "id": exceptID})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *server) handleCategoryCreate(re *core.RequestEvent) error {
	var in categoryInput
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}

	taken, err := s.categoryTaken(in.Name, "")
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to check category")
	}
	if taken {
		return utils.ConflictResponse(re, "Category already exists")
	}

	collection, err := s.app.FindCollectionByNameOrId(utils.CollectionGuestCategories)
	if err != nil {
		return utils.InternalErrorResponse(re, "Collection not found")
	}
	record := core.NewRecord(collection)
	record.Set("name", in.Name)
	if err := s.app.Save(record); err != nil {
		return utils.InternalErrorResponse(re, "Failed to create category")
	}
	return re.JSON(http.StatusCreated, categoryView(record))
}

// handleCategoryUpdate renames a category and moves its guests along.
func (s *server) handleCategoryUpdate(re *core.RequestEvent) error {
	id := re.Request.PathValue("id")
	record, err := s.app.FindRecordById(utils.CollectionGuestCategories, id)
	if err != nil {
		return utils.NotFoundResponse(re, "Category not found")
	}

	var in categoryInput
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}

	taken, err := s.categoryTaken(in.Name, id)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to check category")
	}
	if taken {
		return utils.ConflictResponse(re, "Category already exists")
	}

	oldName := record.GetString("name")
	err = s.app.RunInTransaction(func(txApp core.App) error {
		record.Set("name", in.Name)
		if err := txApp.Save(record); err != nil {
			return err
		}
		if oldName == in.Name {
			return nil
		}
		guests, err := txApp.FindAllRecords(utils.CollectionGuests, dbx.HashExp{utils.FieldCategory: oldName})
		if err != nil {
			return err
		}
		for _, g := range guests {
			g.Set(utils.FieldCategory, in.Name)
			if err := txApp.Save(g); err != nil {
				return fmt.Errorf("move guest %s: %w", g.Id, err)
			}
		}
		return nil
	})
	if err != nil {
		utils.RequestLogger(re, "settings").Error().Err(err).Msg("failed to rename category")
		return utils.InternalErrorResponse(re, "Failed to update category")
	}
	return utils.DataResponse(re, categoryView(record))
}

// handleCategoryDelete refuses while any guest is in the category.
func (s *server) handleCategoryDelete(re *core.RequestEvent) error {
	record, err := s.app.FindRecordById(utils.CollectionGuestCategories, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Category not found")
	}

	inUse, err := s.app.CountRecords(utils.CollectionGuests, dbx.HashExp{utils.FieldCategory: record.GetString("name")})
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to check category usage")
	}
	if inUse > 0 {
		return utils.ConflictResponse(re, fmt.Sprintf("Category is used by %d guest(s)", inUse))
	}

	if err := s.app.Delete(record); err != nil {
		return utils.InternalErrorResponse(re, "Failed to delete category")
	}
	return re.NoContent(http.StatusNoContent)
}

// --- Reception sessions ---

type sessionInput struct {
	Name        string `json:"name"`
	TimeDisplay string `json:"time_display"`
}

func (in sessionInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&in.TimeDisplay, validation.Required, validation.RuneLength(1, 100)),
	)
}

func sessionView(r *core.Record) map[string]any {
	return map[string]any{
		"id":           r.Id,
		"name":         r.GetString("name"),
		"time_display": r.GetString("time_display"),
	}
}

func (s *server) handleSessionsList(re *core.RequestEvent) error {
	records, err := s.app.FindRecordsByFilter(utils.CollectionReceptionSessions, "", "name", 0, 0)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to fetch sessions")
	}
	items := make([]map[string]any, 0, len(records))
	for _, r := range records {
		items = append(items, sessionView(r))
	}
	return utils.DataResponse(re, map[string]any{"items": items})
}

func (s *server) handleSessionSave(re *core.RequestEvent) error {
	var record *core.Record
	if id := re.Request.PathValue("id"); id != "" {
		existing, err := s.app.FindRecordById(utils.CollectionReceptionSessions, id)
		if err != nil {
			return utils.NotFoundResponse(re, "Session not found")
		}
		record = existing
	} else {
		collection, err := s.app.FindCollectionByNameOrId(utils.CollectionReceptionSessions)
		if err != nil {
			return utils.InternalErrorResponse(re, "Collection not found")
		}
		record = core.NewRecord(collection)
	}

	in := sessionInput{Name: record.GetString("name"), TimeDisplay: record.GetString("time_display")}
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.TimeDisplay = strings.TrimSpace(in.TimeDisplay)
	if err := in.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}

	status := http.StatusOK
	if record.IsNew() {
		status = http.StatusCreated
	}
	record.Set("name", in.Name)
	record.Set("time_display", in.TimeDisplay)
	if err := s.app.Save(record); err != nil {
		return utils.InternalErrorResponse(re, "Failed to save session")
	}
	return re.JSON(status, sessionView(record))
}

func (s *server) handleSessionDelete(re *core.RequestEvent) error {
	record, err := s.app.FindRecordById(utils.CollectionReceptionSessions, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Session not found")
	}
	if err := s.app.Delete(record); err != nil {
		return utils.InternalErrorResponse(re, "Failed to delete session")
	}
	return re.NoContent(http.StatusNoContent)
}

// --- WhatsApp template ---

type templateInput struct {
	Template string `json:"template"`
}

func (in templateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Template, validation.Required, validation.RuneLength(1, 4000)),
	)
}

func (s *server) handleWATemplateGet(re *core.RequestEvent) error {
	return utils.DataResponse(re, map[string]string{"template": s.waTemplate()})
}

func (s *server) handleWATemplatePut(re *core.RequestEvent) error {
	var in templateInput
	if err := utils.DecodeJSON(re, &in); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if err := in.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}
	if err := s.settings.PutSetting(utils.SettingWATemplate, in.Template); err != nil {
		utils.RequestLogger(re, "settings").Error().Err(err).Msg("failed to save template")
		return utils.InternalErrorResponse(re, "Failed to save template")
	}
	return utils.DataResponse(re, in)
}

// --- Wedding details ---

func (s *server) handleWeddingGet(re *core.RequestEvent) error {
	return utils.DataResponse(re, s.weddingDetails())
}

func (s *server) handleWeddingPut(re *core.RequestEvent) error {
	var d invitation.Details
	if err := utils.DecodeJSON(re, &d); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if err := d.Validate(); err != nil {
		return utils.ValidationErrorResponse(re, err)
	}
	if _, err := d.Ceremony.Start(s.loc); err != nil {
		return utils.BadRequestResponse(re, "Ceremony date or time is not valid")
	}
	if err := s.settings.PutSetting(utils.SettingWedding, d); err != nil {
		utils.RequestLogger(re, "settings").Error().Err(err).Msg("failed to save wedding details")
		return utils.InternalErrorResponse(re, "Failed to save wedding details")
	}
	return utils.DataResponse(re, d)
}
