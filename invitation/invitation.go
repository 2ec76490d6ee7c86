// Package invitation holds the wedding details shown on the public page.
package invitation

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Person is one half of the couple.
type Person struct {
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	Parents   string `json:"parents"`
}

// Event is the ceremony or the reception.
type Event struct {
	Title   string `json:"title"`
	Date    string `json:"date"` // YYYY-MM-DD
	Time    string `json:"time"` // "09:00" or "12:00 - 14:00"
	Venue   string `json:"venue"`
	Address string `json:"address"`
	MapURL  string `json:"map_url"`
}

// BankAccount is listed in the digital envelope.
type BankAccount struct {
	Bank   string `json:"bank"`
	Number string `json:"number"`
	Holder string `json:"holder"`
}

// Details is the editable wedding configuration.
type Details struct {
	Bride     Person        `json:"bride"`
	Groom     Person        `json:"groom"`
	Quote     string        `json:"quote"`
	QuoteBy   string        `json:"quote_by"`
	Ceremony  Event         `json:"ceremony"`
	Reception Event         `json:"reception"`
	Accounts  []BankAccount `json:"accounts"`
}

func (p Person) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 100)),
	)
}

func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&e.Time, validation.Required),
		validation.Field(&e.Venue, validation.Required),
		validation.Field(&e.MapURL, is.URL),
	)
}

func (a BankAccount) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Bank, validation.Required),
		validation.Field(&a.Number, validation.Required, is.Digit),
		validation.Field(&a.Holder, validation.Required),
	)
}

// Validate checks the whole configuration.
func (d Details) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Bride),
		validation.Field(&d.Groom),
		validation.Field(&d.Ceremony),
		validation.Field(&d.Reception),
		validation.Field(&d.Accounts),
	)
}

// Parse decodes and validates stored details.
func Parse(raw []byte) (Details, error) {
	var d Details
	if err := json.Unmarshal(raw, &d); err != nil {
		return Details{}, fmt.Errorf("decode wedding details: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Details{}, err
	}
	return d, nil
}

// Start returns when the event begins in loc. Only the leading HH:MM of the
// time field is used.
func (e Event) Start(loc *time.Location) (time.Time, error) {
	clock := e.Time
	if len(clock) > 5 {
		clock = clock[:5]
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event start: %w", err)
	}
	return t, nil
}

// Remaining is the countdown shown until the ceremony.
type Remaining struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Passed  bool `json:"passed"`
}

// Countdown splits the time left until target. Once target has passed all
// fields are zero and Passed is set.
func Countdown(now, target time.Time) Remaining {
	d := target.Sub(now)
	if d <= 0 {
		return Remaining{Passed: true}
	}
	total := int64(d / time.Second)
	return Remaining{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

// Default is used until the couple saves their own details.
var Default = Details{
	Bride: Person{
		FullName:  "Aufa Amroini Indah Saesari",
		FirstName: "Aufa",
		Parents:   "Bpk. H. Rosanto Budiharjo & Ibu Ida Katrinawaningsih",
	},
	Groom: Person{
		FullName:  "Sabilul Qois",
		FirstName: "Qois",
		Parents:   "Bpk. H. Mulyadi (Alm) & Ibu Siti Syamsiah",
	},
	Quote:   "Dan di antara tanda-tanda kekuasaan-Nya ialah Dia menciptakan untukmu istri-istri dari jenismu sendiri, supaya kamu cenderung dan merasa tenteram kepadanya, dan dijadikan-Nya di antaramu rasa kasih dan sayang.",
	QuoteBy: "QS. Ar-Rum ayat 21",
	Ceremony: Event{
		Title:   "Wedding Ceremony",
		Date:    "2025-12-25",
		Time:    "09:00",
		Venue:   "Masjid Baitul Munir",
		Address: "SMP/SMA Generus Nusantara Boarding School GNBS KENDAL",
	},
	Reception: Event{
		Title:   "Wedding Reception",
		Date:    "2025-12-25",
		Time:    "12:00 - 14:00",
		Venue:   "Masjid Baitul Munir",
		Address: "SMP/SMA Generus Nusantara Boarding School GNBS KENDAL",
	},
}
