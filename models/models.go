// Package models holds the guest and guestbook record types shared by the
// store, access and guestbook packages.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is assigned to guests created without a category.
const DefaultCategory = "General"

// Attendance is a guest's answer on an RSVP message.
type Attendance string

const (
	AttendanceYes   Attendance = "yes"
	AttendanceNo    Attendance = "no"
	AttendanceMaybe Attendance = "maybe"
)

// Attendances lists the accepted attendance values in display order.
var Attendances = []Attendance{AttendanceYes, AttendanceNo, AttendanceMaybe}

// ParseAttendance converts a wire value into an Attendance.
func ParseAttendance(s string) (Attendance, error) {
	switch a := Attendance(strings.ToLower(strings.TrimSpace(s))); a {
	case AttendanceYes, AttendanceNo, AttendanceMaybe:
		return a, nil
	}
	return "", fmt.Errorf("invalid attendance %q", s)
}

// RSVPStatus maps an attendance answer onto the guest's denormalized status.
func (a Attendance) RSVPStatus() RSVPStatus {
	switch a {
	case AttendanceYes:
		return RSVPAttending
	case AttendanceNo:
		return RSVPNotAttending
	case AttendanceMaybe:
		return RSVPMaybe
	}
	return RSVPUnconfirmed
}

// RSVPStatus is the denormalized response state stored on a guest.
type RSVPStatus string

const (
	RSVPUnconfirmed  RSVPStatus = "unconfirmed"
	RSVPAttending    RSVPStatus = "attending"
	RSVPNotAttending RSVPStatus = "not_attending"
	RSVPMaybe        RSVPStatus = "maybe"
)

// RSVPStatuses lists every valid RSVPStatus.
var RSVPStatuses = []RSVPStatus{RSVPUnconfirmed, RSVPAttending, RSVPNotAttending, RSVPMaybe}

// ParseRSVPStatus converts a wire value into an RSVPStatus. Empty input
// yields RSVPUnconfirmed.
func ParseRSVPStatus(s string) (RSVPStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RSVPUnconfirmed, nil
	}
	for _, st := range RSVPStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid rsvp status %q", s)
}

// GuestRecord is an invited guest. Guests are only created by administrators.
type GuestRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	Phone      string     `json:"phone"`
	Category   string     `json:"category"`
	RSVPStatus RSVPStatus `json:"rsvp_status"`
	Created    time.Time  `json:"created"`
}

// Normalize trims text fields and fills defaults.
func (g *GuestRecord) Normalize() {
	g.Name = strings.TrimSpace(g.Name)
	g.Phone = strings.TrimSpace(g.Phone)
	g.Category = strings.TrimSpace(g.Category)
	if g.Category == "" {
		g.Category = DefaultCategory
	}
	if g.RSVPStatus == "" {
		g.RSVPStatus = RSVPUnconfirmed
	}
}

// MessageRecord is a guestbook or RSVP entry. A non-empty ParentID makes the
// record a reply to the root message with that ID.
type MessageRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Message    string     `json:"message"`
	Attendance Attendance `json:"attendance"`
	ParentID   string     `json:"parent_id"`
	CreatedAt  time.Time  `json:"created"`

	// Optional RSVP details, only filled on root messages.
	GuestID             string `json:"guest_id,omitempty"`
	GuestCount          int    `json:"guest_count,omitempty"`
	Email               string `json:"email,omitempty"`
	Phone               string `json:"phone,omitempty"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`
}

// IsRoot reports whether the message starts a thread.
func (m MessageRecord) IsRoot() bool {
	return m.ParentID == ""
}
