// Package whatsapp builds wa.me invitation links for guests.
package whatsapp

import (
	"errors"
	"net/url"
	"strings"
)

// DefaultCountryCode replaces a leading trunk 0 in local numbers.
const DefaultCountryCode = "62"

// DefaultTemplate is seeded into app settings when none is stored.
const DefaultTemplate = `Assalamualaikum Wr. Wb.

Kepada Yth. Bapak/Ibu/Saudara/i {name},

Tanpa mengurangi rasa hormat, perkenankan kami mengundang Bapak/Ibu/Saudara/i untuk hadir di acara pernikahan kami.

Berikut link undangan untuk info lengkap:
{link}

Merupakan suatu kehormatan dan kebahagiaan bagi kami apabila Bapak/Ibu/Saudara/i berkenan hadir dan memberikan doa restu.

Wassalamualaikum Wr. Wb.`

var ErrNoPhone = errors.New("guest has no phone number")

// NormalizePhone strips everything but digits and converts a local number
// (leading 0) to the international form.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0") {
		digits = DefaultCountryCode + digits[1:]
	}
	return digits
}

// Render fills the {name} and {link} placeholders of a template.
func Render(template, name, link string) string {
	r := strings.NewReplacer("{name}", name, "{link}", link)
	return r.Replace(template)
}

// InviteLink returns the personal invitation URL for a guest id.
func InviteLink(baseURL, guestID string) string {
	return strings.TrimRight(baseURL, "/") + "/?u=" + url.QueryEscape(guestID)
}

// DeepLink returns a wa.me URL that opens a chat with text prefilled.
func DeepLink(phone, text string) (string, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return "", ErrNoPhone
	}
	// wa.me does not decode '+' as a space.
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + normalized + "?text=" + encoded, nil
}
