package main

import (
	"encoding/json"
	"time"

	"github.com/grtshw/wedding-invitation/access"
	"github.com/grtshw/wedding-invitation/config"
	"github.com/grtshw/wedding-invitation/invitation"
	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/store"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/grtshw/wedding-invitation/whatsapp"
	"github.com/pocketbase/pocketbase/core"
)

// settingsStore reads and writes app_settings values.
type settingsStore interface {
	GetSetting(key string, target any) error
	PutSetting(key string, value any) error
}

type appSettings struct {
	app core.App
}

func (s appSettings) GetSetting(key string, target any) error {
	return utils.GetSetting(s.app, key, target)
}

func (s appSettings) PutSetting(key string, value any) error {
	return utils.PutSetting(s.app, key, value)
}

// server carries the dependencies shared by the custom routes.
type server struct {
	app      core.App
	store    store.Store
	settings settingsStore
	resolver *access.Resolver
	cfg      config.Config
	loc      *time.Location
	now      func() time.Time
	notify   func(models.MessageRecord)
}

func newServer(app core.App, st store.Store, cfg config.Config, loc *time.Location) *server {
	s := &server{
		app:      app,
		store:    st,
		settings: appSettings{app: app},
		resolver: access.NewResolver(st, *utils.Logger("access")),
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
	}
	s.notify = func(msg models.MessageRecord) {
		go sendRSVPNotification(app, cfg, msg)
	}
	return s
}

// audit records a request outcome. It is a no-op without an app.
func (s *server) audit(re *core.RequestEvent, action, resourceType, resourceID, status string, metadata map[string]any) {
	if s.app == nil {
		return
	}
	utils.LogFromRequest(s.app, re, action, resourceType, resourceID, status, metadata, "")
}

// waTemplate returns the stored WhatsApp template or the default.
func (s *server) waTemplate() string {
	var tpl string
	if err := s.settings.GetSetting(utils.SettingWATemplate, &tpl); err != nil || tpl == "" {
		return whatsapp.DefaultTemplate
	}
	return tpl
}

// weddingDetails returns the stored details or the defaults.
func (s *server) weddingDetails() invitation.Details {
	var raw json.RawMessage
	if err := s.settings.GetSetting(utils.SettingWedding, &raw); err != nil {
		return invitation.Default
	}
	d, err := invitation.Parse(raw)
	if err != nil {
		utils.Logger("settings").Warn().Err(err).Msg("stored wedding details invalid, using defaults")
		return invitation.Default
	}
	return d
}
