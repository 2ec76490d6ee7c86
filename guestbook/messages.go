package guestbook

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	keyJustNow = "timeago.just_now"
	keyMinutes = "timeago.minutes"
	keyHours   = "timeago.hours"
	keyDays    = "timeago.days"
	keyWeeks   = "timeago.weeks"
	keyMonths  = "timeago.months"
	keyYears   = "timeago.years"
)

func init() {
	en := language.English
	message.SetString(en, keyJustNow, "just now")
	message.Set(en, keyMinutes, plural.Selectf(1, "%d", plural.One, "%d minute ago", plural.Other, "%d minutes ago"))
	message.Set(en, keyHours, plural.Selectf(1, "%d", plural.One, "%d hour ago", plural.Other, "%d hours ago"))
	message.Set(en, keyDays, plural.Selectf(1, "%d", plural.One, "%d day ago", plural.Other, "%d days ago"))
	message.Set(en, keyWeeks, plural.Selectf(1, "%d", plural.One, "%d week ago", plural.Other, "%d weeks ago"))
	message.Set(en, keyMonths, plural.Selectf(1, "%d", plural.One, "%d month ago", plural.Other, "%d months ago"))
	message.Set(en, keyYears, plural.Selectf(1, "%d", plural.One, "%d year ago", plural.Other, "%d years ago"))

	id := language.Indonesian
	message.SetString(id, keyJustNow, "baru saja")
	message.SetString(id, keyMinutes, "%d menit yang lalu")
	message.SetString(id, keyHours, "%d jam yang lalu")
	message.SetString(id, keyDays, "%d hari yang lalu")
	message.SetString(id, keyWeeks, "%d minggu yang lalu")
	message.SetString(id, keyMonths, "%d bulan yang lalu")
	message.SetString(id, keyYears, "%d tahun yang lalu")
}
