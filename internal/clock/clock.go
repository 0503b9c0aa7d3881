// Package clock is the single source of "now" for the bot. Every other
// package reaches time through a Clock instead of calling time.Now directly,
// so tests can substitute a fixed instant and every component agrees on the
// system time zone.
package clock

import (
	"fmt"
	"time"
)

// Style selects one of the chat platform's timestamp token styles.
type Style byte

const (
	StyleShortTime     Style = 't'
	StyleLongTime      Style = 'T'
	StyleShortDate     Style = 'd'
	StyleLongDate      Style = 'D'
	StyleShortDateTime Style = 'f'
	StyleLongDateTime  Style = 'F'
	StyleRelative      Style = 'R'
)

// Clock provides zone-aware access to the current time.
type Clock interface {
	// Now returns the current instant in the system time zone.
	Now() time.Time
	// SystemZone returns the location used for "now" and for interpreting
	// naive wall-clock times such as a configured fixed update time.
	SystemZone() *time.Location
	// EnsureZoneAware attaches the system zone to t if it is naive (a
	// location equal to time.Local's zero value or UTC pass-through from an
	// untagged deserialisation). Already zone-aware times are returned
	// unchanged.
	EnsureZoneAware(t time.Time) time.Time
	// ToSystemZone converts t to the system zone, preserving the instant.
	ToSystemZone(t time.Time) time.Time
	// FormatForChat renders t as the chat service's timestamp token, e.g.
	// "<t:1700000000:R>".
	FormatForChat(t time.Time, style Style) string
}

// System is the production Clock, backed by the zone passed to New
// (time.Local when that is nil).
type System struct {
	zone *time.Location
}

// New returns a System clock using loc as the system zone. If loc is nil,
// time.Local is used.
func New(loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}
	return &System{zone: loc}
}

func (c *System) Now() time.Time {
	return time.Now().In(c.zone)
}

func (c *System) SystemZone() *time.Location {
	return c.zone
}

func (c *System) EnsureZoneAware(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	if t.Location() == time.UTC {
		return t.In(c.zone)
	}
	return t
}

func (c *System) ToSystemZone(t time.Time) time.Time {
	return t.In(c.zone)
}

func (c *System) FormatForChat(t time.Time, style Style) string {
	return fmt.Sprintf("<t:%d:%c>", t.Unix(), byte(style))
}
