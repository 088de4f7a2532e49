package convert

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"google.golang.org/api/calendar/v3"

	"gcalsync/internal/component"
	appLog "gcalsync/internal/log"
	"gcalsync/internal/model"
)

// EventToItem converts one external event record into a fresh internal
// snapshot. The returned tree is owned by the caller and never mutated by
// this package afterwards.
func EventToItem(ev *calendar.Event, opts Options) (*model.Item, error) {
	if ev == nil {
		return nil, errors.New("nil event record")
	}

	c := component.New(component.NameEvent)

	uid := ev.ICalUID
	if uid == "" {
		base := ev.RecurringEventId
		if base == "" {
			base = ev.Id
		}
		uid = base + uidSuffix
	}
	c.Add(propUID, component.Text(uid))

	addStamp(c, propCreated, ev.Created)
	addStamp(c, propLastModified, ev.Updated)
	addStamp(c, propDtStamp, ev.Updated)

	title := ev.Summary
	if opts.RestrictedAccess {
		title = opts.BusyTitle
	}
	addText(c, propSummary, title)
	addText(c, propDescription, ev.Description)
	addText(c, propLocation, ev.Location)
	addText(c, propStatus, strings.ToUpper(ev.Status))
	if ev.Sequence != 0 {
		c.Add(propSequence, component.Integer(ev.Sequence))
	}
	addText(c, propTransp, strings.ToUpper(ev.Transparency))
	addText(c, propClass, strings.ToUpper(ev.Visibility))
	if ev.HtmlLink != "" {
		c.Add(propURL, component.URI(ev.HtmlLink))
	}

	// A cancelled record arrives as a bare tombstone (id plus status), so
	// its dates are optional; the status alone routes it to removal.
	if ev.Start != nil {
		if err := addWireDateTime(c, propDtStart, ev.Start); err != nil {
			return nil, err
		}
		if ev.End == nil || ev.EndTimeUnspecified {
			c.Add(propEndUnspecified, component.Boolean(true))
		} else if err := addWireDateTime(c, propDtEnd, ev.End); err != nil {
			return nil, err
		}
	} else if strings.ToUpper(ev.Status) != statusCancelled {
		return nil, errors.New("event record missing start date")
	}
	if ev.OriginalStartTime != nil {
		if err := addWireDateTime(c, propRecurrenceID, ev.OriginalStartTime); err != nil {
			return nil, err
		}
	}

	addRecurrence(c, ev.Recurrence, ev.Id)

	if ev.Organizer != nil {
		addParticipant(c, propOrganizer, ev.Organizer.Email, ev.Organizer.Id, ev.Organizer.DisplayName, nil)
	}
	for _, a := range ev.Attendees {
		if a == nil {
			continue
		}
		role := "REQ-PARTICIPANT"
		if a.Optional {
			role = "OPT-PARTICIPANT"
		}
		cutype := "INDIVIDUAL"
		if a.Resource {
			cutype = "RESOURCE"
		}
		addParticipant(c, propAttendee, a.Email, a.Id, a.DisplayName, map[string]string{
			"role":     role,
			"cutype":   cutype,
			"partstat": attendeeStatus.Internal(a.ResponseStatus),
		})
	}

	for _, alarm := range alarmsFromReminders(ev.Reminders, opts.DefaultReminders) {
		c.AddChild(alarm)
	}

	var categories []string
	if ext := ev.ExtendedProperties; ext != nil {
		if cats := ext.Shared[extCategories]; cats != "" {
			categories = splitCategories(cats)
			c.Add(propCategories, component.Text(strings.Join(categories, ",")))
		}
		addText(c, propLastAck, ext.Private[extLastAck])
		addText(c, propSnoozeTime, ext.Private[extSnoozeTime])
		addSnoozeRecur(c, ext.Private[extSnoozeRecur], ev.Id)
	}

	return &model.Item{
		ID:          ev.Id,
		Title:       title,
		Kind:        model.KindEvent,
		Description: ev.Description,
		Categories:  categories,
		Meta:        model.Meta{ETag: ev.Etag, Path: ev.Id + ".ics"},
		Component:   c,
	}, nil
}

func addText(c *component.Component, name, value string) {
	if value != "" {
		c.Add(name, component.Text(value))
	}
}

// addStamp records an RFC3339 wire timestamp as a date-time property.
// Unparseable stamps are dropped rather than failing the record.
func addStamp(c *component.Component, name, rfc3339 string) {
	if rfc3339 == "" {
		return
	}
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return
	}
	c.Add(name, component.Time(component.DateTime{Time: t.UTC()}))
}

// addRecurrence stores each textual rule line as its own property. RRULE
// values are checked against the recurrence grammar; a line that fails the
// check is logged and kept verbatim so round-tripping stays lossless.
func addRecurrence(c *component.Component, lines []string, recordID string) {
	for _, line := range lines {
		name, params, value, err := parseRecurrenceLine(line)
		if err != nil {
			appLog.Error("event convert: bad recurrence line", err, "id", recordID)
			continue
		}
		if name == "rrule" {
			if _, rerr := rrule.StrToRRule(value); rerr != nil {
				appLog.Error("event convert: unparseable rrule kept verbatim", rerr, "id", recordID)
			}
		}
		if params != nil {
			c.AddWithParams(name, params, component.Text(value))
		} else {
			c.Add(name, component.Text(value))
		}
	}
}

func addParticipant(c *component.Component, name, email, id, displayName string, extra map[string]string) {
	params := map[string]string{}
	if displayName != "" {
		params["cn"] = displayName
	}
	for k, v := range extra {
		params[k] = v
	}
	uri := participantURI(email, id)
	if len(params) > 0 {
		c.AddWithParams(name, params, component.URI(uri))
	} else {
		c.Add(name, component.URI(uri))
	}
}

// addSnoozeRecur fans the per-occurrence snooze blob back out into one
// x-moz-snooze-time-<recurrence id> property per key.
func addSnoozeRecur(c *component.Component, blob, recordID string) {
	if blob == "" {
		return
	}
	var byID map[string]string
	if err := json.Unmarshal([]byte(blob), &byID); err != nil {
		appLog.Error("event convert: bad snooze blob", err, "id", recordID)
		return
	}
	keys := make([]string, 0, len(byID))
	for k := range byID {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Add(propSnoozePrefix+k, component.Text(byID[k]))
	}
}
