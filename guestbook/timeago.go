package guestbook

import (
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Unit is the bucket a relative timestamp falls into.
type Unit int

const (
	JustNow Unit = iota
	Minutes
	Hours
	Days
	Weeks
	Months
	Years
)

// Bucket sizes in seconds. Months and years are fixed lengths.
const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
	secondsPerWeek   = 604800
	secondsPerMonth  = 2592000
	secondsPerYear   = 31536000
)

// Elapsed is a bucketed duration: Value whole Units.
type Elapsed struct {
	Unit  Unit
	Value int
}

// Elapse buckets the time between then and now into the largest unit that
// fits. Anything under a minute, including future times, is JustNow.
func Elapse(then, now time.Time) Elapsed {
	s := int64(now.Sub(then) / time.Second)
	switch {
	case s < secondsPerMinute:
		return Elapsed{Unit: JustNow}
	case s < secondsPerHour:
		return Elapsed{Unit: Minutes, Value: int(s / secondsPerMinute)}
	case s < secondsPerDay:
		return Elapsed{Unit: Hours, Value: int(s / secondsPerHour)}
	case s < secondsPerWeek:
		return Elapsed{Unit: Days, Value: int(s / secondsPerDay)}
	case s < secondsPerMonth:
		return Elapsed{Unit: Weeks, Value: int(s / secondsPerWeek)}
	case s < secondsPerYear:
		return Elapsed{Unit: Months, Value: int(s / secondsPerMonth)}
	default:
		return Elapsed{Unit: Years, Value: int(s / secondsPerYear)}
	}
}

var unitKeys = map[Unit]string{
	Minutes: keyMinutes,
	Hours:   keyHours,
	Days:    keyDays,
	Weeks:   keyWeeks,
	Months:  keyMonths,
	Years:   keyYears,
}

// Format phrases e in the given language.
func (e Elapsed) Format(tag language.Tag) string {
	p := message.NewPrinter(Supported(tag))
	key, ok := unitKeys[e.Unit]
	if !ok {
		return p.Sprintf(keyJustNow)
	}
	return p.Sprintf(key, e.Value)
}

// TimeAgo is the localized relative label for then as seen at now.
func TimeAgo(then, now time.Time, tag language.Tag) string {
	return Elapse(then, now).Format(tag)
}

var (
	supported = []language.Tag{language.English, language.Indonesian}
	matcher   = language.NewMatcher(supported)
)

// Supported maps tag onto the closest language with a catalogue, falling
// back to English.
func Supported(tag language.Tag) language.Tag {
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// LangParam overrides the Accept-Language header when present.
const LangParam = "lang"

// ResolveLanguage picks the display language for a request: the lang query
// parameter, then Accept-Language, then fallback.
func ResolveLanguage(r *http.Request, fallback language.Tag) language.Tag {
	if v := r.URL.Query().Get(LangParam); v != "" {
		if tag, err := language.Parse(v); err == nil {
			if _, _, conf := matcher.Match(tag); conf != language.No {
				return Supported(tag)
			}
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			if _, idx, conf := matcher.Match(tags...); conf != language.No {
				return supported[idx]
			}
		}
	}
	return Supported(fallback)
}
