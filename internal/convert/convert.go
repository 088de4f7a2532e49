// Package convert translates between the flat Google-style wire records
// (calendar/v3 events, tasks/v1 tasks) and the internal component-tree
// snapshots, and produces minimal patches between two snapshots of the
// same logical item.
//
// All functions here are pure over their inputs: a conversion call builds a
// fresh tree and never touches external state, so they may run concurrently
// from multiple batches without coordination.
package convert

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"gcalsync/internal/component"
)

// Internal property names shared by the converters and the diff engine.
const (
	propUID            = "uid"
	propSummary        = "summary"
	propDescription    = "description"
	propLocation       = "location"
	propStatus         = "status"
	propSequence       = "sequence"
	propTransp         = "transp"
	propClass          = "class"
	propURL            = "url"
	propDtStart        = "dtstart"
	propDtEnd          = "dtend"
	propDue            = "due"
	propCompleted      = "completed"
	propPercent        = "percent-complete"
	propCreated        = "created"
	propDtStamp        = "dtstamp"
	propLastModified   = "last-modified"
	propOrganizer      = "organizer"
	propAttendee       = "attendee"
	propRelatedTo      = "related-to"
	propSortKey        = "x-google-sortkey"
	propAttach         = "attach"
	propRecurrenceID   = "recurrence-id"
	propCategories     = "categories"
	propAction         = "action"
	propTrigger        = "trigger"
	propDefaultAlarm   = "x-default-alarm"
	propLastAck        = "x-moz-lastack"
	propSnoozeTime     = "x-moz-snooze-time"
	propSnoozePrefix   = "x-moz-snooze-time-"
	propEndUnspecified = "x-google-endtimeunspecified"
)

// Extended-property keys on the wire.
const (
	extCategories  = "X-MOZ-CATEGORIES"
	extLastAck     = "X-MOZ-LASTACK"
	extSnoozeTime  = "X-MOZ-SNOOZE-TIME"
	extSnoozeRecur = "X-GOOGLE-SNOOZE-RECUR"
)

// uidSuffix is the domain tag appended when a uid has to be synthesized
// from a bare record id.
const uidSuffix = "@google.com"

// Options is the per-batch conversion context, read once per
// reconciliation call rather than per record.
type Options struct {
	// RestrictedAccess replaces every imported event title with BusyTitle,
	// hiding the real summary from the destination.
	RestrictedAccess bool
	// BusyTitle is the localized placeholder title used under restricted
	// access.
	BusyTitle string
	// DefaultReminders is the site-wide default reminder list; it gates
	// whether a default-alarm marker component is materialized.
	DefaultReminders []*calendar.EventReminder
}

// parseWireDateTime converts an EventDateTime into the internal temporal
// value. Exactly one of the all-day and zoned shapes is present on the wire.
func parseWireDateTime(edt *calendar.EventDateTime) (component.DateTime, error) {
	if edt == nil {
		return component.DateTime{}, errors.New("missing date value")
	}
	if edt.Date != "" {
		return component.ParseDate(edt.Date)
	}
	return component.ParseZoned(edt.DateTime, edt.TimeZone)
}

// wireDateTime serializes an internal temporal value back into the wire
// shape.
func wireDateTime(dt component.DateTime) *calendar.EventDateTime {
	if dt.AllDay {
		return &calendar.EventDateTime{Date: dt.Time.Format("2006-01-02")}
	}
	return &calendar.EventDateTime{
		DateTime: dt.Time.Format(time.RFC3339),
		TimeZone: dt.Zone,
	}
}

// addWireDateTime parses and records a temporal property, carrying the zone
// id as a tzid parameter for zoned values.
func addWireDateTime(c *component.Component, name string, edt *calendar.EventDateTime) error {
	dt, err := parseWireDateTime(edt)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if dt.Zone != "" && !dt.AllDay {
		c.AddWithParams(name, map[string]string{"tzid": dt.Zone}, component.Time(dt))
		return nil
	}
	c.Add(name, component.Time(dt))
	return nil
}

// timeOf returns the parsed temporal value of a property, if present.
func timeOf(c *component.Component, name string) (component.DateTime, bool) {
	v, ok := c.First(name)
	if !ok {
		return component.DateTime{}, false
	}
	return v.Time()
}

// participantURI builds the value for organizer/attendee properties:
// mailto:<email> when an email address is known, urn:id:<id> otherwise.
func participantURI(email, id string) string {
	if email != "" {
		return "mailto:" + email
	}
	return "urn:id:" + id
}

// splitParticipantURI is the inverse of participantURI.
func splitParticipantURI(uri string) (email, id string) {
	if rest, ok := strings.CutPrefix(uri, "mailto:"); ok {
		return rest, ""
	}
	if rest, ok := strings.CutPrefix(uri, "urn:id:"); ok {
		return "", rest
	}
	return "", ""
}

// parseRecurrenceLine splits a textual rule line ("RRULE:FREQ=...",
// "EXDATE;VALUE=DATE:20240101") into its property name, parameters and
// value part.
func parseRecurrenceLine(line string) (name string, params map[string]string, value string, err error) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", nil, "", fmt.Errorf("malformed recurrence line %q", line)
	}
	parts := strings.Split(head, ";")
	name = strings.ToLower(parts[0])
	switch name {
	case "rrule", "rdate", "exdate":
	default:
		return "", nil, "", fmt.Errorf("unsupported recurrence line %q", line)
	}
	for _, kv := range parts[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return "", nil, "", fmt.Errorf("malformed recurrence parameter in %q", line)
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[strings.ToLower(k)] = v
	}
	return name, params, value, nil
}

// formatRecurrenceLine reconstructs the canonical textual form of a stored
// recurrence property. Parameters are emitted in sorted order so that the
// same property always yields the same line.
func formatRecurrenceLine(p component.Property) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(p.Name))
	if len(p.Params) > 0 {
		keys := make([]string, 0, len(p.Params))
		for k := range p.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(';')
			b.WriteString(strings.ToUpper(k))
			b.WriteByte('=')
			b.WriteString(p.Params[k])
		}
	}
	b.WriteByte(':')
	b.WriteString(p.Value.String())
	return b.String()
}

// recurrenceLines collects the component's recurrence properties as the
// set of their canonical textual lines. Duplicates collapse; order is not
// significant.
func recurrenceLines(c *component.Component) map[string]struct{} {
	set := make(map[string]struct{})
	for _, name := range []string{"rrule", "rdate", "exdate"} {
		for _, p := range c.Props(name) {
			set[formatRecurrenceLine(p)] = struct{}{}
		}
	}
	return set
}

// splitCategories parses the comma-joined category list form.
func splitCategories(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
