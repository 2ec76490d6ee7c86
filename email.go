package main

import (
	"fmt"
	"html"
	"net/mail"
	"strings"

	"github.com/grtshw/wedding-invitation/config"
	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

// configureSMTP copies the SMTP environment into PocketBase's settings.
func configureSMTP(app core.App, cfg config.Config) {
	if cfg.SMTP.Host == "" {
		utils.Logger("mail").Info().Msg("no SMTP_HOST configured, skipping SMTP setup")
		return
	}

	settings := app.Settings()
	if settings.SMTP.Enabled &&
		settings.SMTP.Host == cfg.SMTP.Host &&
		settings.SMTP.Port == cfg.SMTP.Port &&
		settings.SMTP.Username == cfg.SMTP.Username &&
		settings.Meta.SenderAddress == cfg.Sender.Address {
		utils.Logger("mail").Debug().Msg("SMTP already configured")
		return
	}

	settings.SMTP.Enabled = true
	settings.SMTP.Host = cfg.SMTP.Host
	settings.SMTP.Port = cfg.SMTP.Port
	settings.SMTP.Username = cfg.SMTP.Username
	settings.SMTP.Password = cfg.SMTP.Password
	settings.SMTP.TLS = cfg.SMTP.Port == 465

	if cfg.Sender.Address != "" {
		settings.Meta.SenderAddress = cfg.Sender.Address
	}
	settings.Meta.SenderName = cfg.Sender.Name

	if err := app.Save(settings); err != nil {
		utils.Logger("mail").Error().Err(err).Msg("failed to save SMTP settings")
		return
	}
	utils.Logger("mail").Info().Str("host", cfg.SMTP.Host).Msg("SMTP settings saved")
}

// wrapEmailHTML wraps content in the invitation's email layout.
func wrapEmailHTML(content string) string {
	return `<!DOCTYPE html>
<html lang="id">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Georgia, 'Times New Roman', serif; line-height: 1.5; color: #3d3d3d; font-size: 16px; margin: 0; padding: 0; background: #faf7f2;">
    <div style="max-width: 600px; margin: auto; padding: 24px;">
        <div style="background: #ffffff; padding: 24px; border-radius: 8px; border: 1px solid #eadfce;">
` + content + `
        </div>
    </div>
</body>
</html>`
}

var attendanceLabels = map[models.Attendance]string{
	models.AttendanceYes:   "Hadir",
	models.AttendanceNo:    "Tidak hadir",
	models.AttendanceMaybe: "Masih ragu",
}

// rsvpNotification builds the subject and HTML body for a new RSVP.
func rsvpNotification(msg models.MessageRecord, guestCount int) (string, string) {
	label := attendanceLabels[msg.Attendance]
	if label == "" {
		label = string(msg.Attendance)
	}
	subject := fmt.Sprintf("RSVP baru dari %s (%s)", msg.Name, label)

	var b strings.Builder
	row := func(k, v string) {
		if v == "" {
			return
		}
		fmt.Fprintf(&b, `            <p style="margin: 0 0 8px 0;"><strong>%s:</strong> %s</p>
`, k, html.EscapeString(v))
	}
	row("Nama", msg.Name)
	row("Kehadiran", label)
	if guestCount > 0 {
		row("Jumlah tamu", fmt.Sprint(guestCount))
	}
	row("Email", msg.Email)
	row("Telepon", msg.Phone)
	row("Catatan makanan", msg.DietaryRestrictions)
	fmt.Fprintf(&b, `            <blockquote style="margin: 16px 0 0 0; padding: 12px 16px; background: #faf7f2; border-left: 3px solid #c9a66b;">%s</blockquote>
`, html.EscapeString(msg.Message))

	return subject, wrapEmailHTML(b.String())
}

// sendRSVPNotification mails the couple about a new root message.
func sendRSVPNotification(app core.App, cfg config.Config, msg models.MessageRecord) error {
	if !cfg.MailEnabled() || !msg.IsRoot() {
		return nil
	}

	subject, body := rsvpNotification(msg, msg.GuestCount)
	message := &mailer.Message{
		From:    mail.Address{Address: app.Settings().Meta.SenderAddress, Name: app.Settings().Meta.SenderName},
		To:      []mail.Address{{Address: cfg.NotifyEmail}},
		Subject: subject,
		HTML:    body,
	}

	if err := app.NewMailClient().Send(message); err != nil {
		utils.Logger("mail").Error().Err(err).Str("message_id", msg.ID).Msg("failed to send RSVP notification")
		return err
	}
	utils.Logger("mail").Info().Str("message_id", msg.ID).Msg("RSVP notification sent")
	return nil
}
