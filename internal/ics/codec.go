// Package ics serializes internal component trees to iCalendar payloads
// and parses them back. It is the durable on-disk form used by the file
// store.
package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	"gcalsync/internal/component"
	appLog "gcalsync/internal/log"
	"gcalsync/internal/model"
)

// Encode renders one item as a single-component iCalendar payload.
func Encode(item *model.Item) ([]byte, error) {
	root, err := item.Root()
	if err != nil {
		return nil, err
	}
	uid := root.Text("uid")
	if uid == "" {
		return nil, errors.New("encode: item missing uid")
	}

	cal := ical.NewCalendar()
	cal.SetProductId("-//gcalsync//EN")

	switch item.Kind {
	case model.KindEvent:
		ve := cal.AddEvent(uid)
		writeComponent(&ve.ComponentBase, root)
	case model.KindTask:
		vt := &ical.VTodo{}
		vt.AddProperty(ical.ComponentPropertyUniqueId, uid)
		writeComponent(&vt.ComponentBase, root)
		cal.Components = append(cal.Components, vt)
	default:
		return nil, errors.New("encode: unsupported item kind " + string(item.Kind))
	}

	return []byte(cal.Serialize()), nil
}

// writeComponent copies properties and valarm children onto the library
// component. The uid is skipped: the library already set it.
func writeComponent(base *ical.ComponentBase, c *component.Component) {
	for _, p := range c.Properties {
		if p.Name == "uid" {
			continue
		}
		base.AddProperty(
			ical.ComponentProperty(strings.ToUpper(p.Name)),
			p.Value.String(),
			propertyParams(p)...,
		)
	}
	for _, child := range c.Sub(component.NameAlarm) {
		va := &ical.VAlarm{}
		for _, p := range child.Properties {
			va.AddProperty(
				ical.ComponentProperty(strings.ToUpper(p.Name)),
				p.Value.String(),
				propertyParams(p)...,
			)
		}
		base.Components = append(base.Components, va)
	}
}

// propertyParams maps a property's parameters into the library form,
// adding VALUE=DATE for all-day temporal values the way the wire format
// expects.
func propertyParams(p component.Property) []ical.PropertyParameter {
	var out []ical.PropertyParameter
	for k, v := range p.Params {
		out = append(out, &ical.KeyValues{Key: strings.ToUpper(k), Value: []string{v}})
	}
	if p.Value.Kind() == component.KindDate {
		out = append(out, &ical.KeyValues{Key: "VALUE", Value: []string{"DATE"}})
	}
	return out
}

// Decode parses an iCalendar payload back into items. Components that fail
// to parse are logged and skipped so one bad entry does not lose the rest
// of the payload.
func Decode(body []byte) ([]*model.Item, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var items []*model.Item
	for _, ve := range cal.Events() {
		item, perr := readItem(&ve.ComponentBase, model.KindEvent)
		if perr != nil {
			appLog.Error("ics decode: skipping vevent", perr)
			continue
		}
		items = append(items, item)
	}
	for _, comp := range cal.Components {
		vt, ok := comp.(*ical.VTodo)
		if !ok {
			continue
		}
		item, perr := readItem(&vt.ComponentBase, model.KindTask)
		if perr != nil {
			appLog.Error("ics decode: skipping vtodo", perr)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func readItem(base *ical.ComponentBase, kind model.Kind) (*model.Item, error) {
	name := component.NameEvent
	if kind == model.KindTask {
		name = component.NameTodo
	}
	c := component.New(name)

	for _, p := range base.Properties {
		readProperty(c, p)
	}
	for _, sub := range base.Components {
		va, ok := sub.(*ical.VAlarm)
		if !ok {
			continue
		}
		alarm := component.New(component.NameAlarm)
		for _, p := range va.Properties {
			readProperty(alarm, p)
		}
		c.AddChild(alarm)
	}

	uid := c.Text("uid")
	if uid == "" {
		return nil, errors.New("missing UID")
	}
	id := strings.TrimSuffix(uid, "@google.com")

	return &model.Item{
		ID:          id,
		Title:       c.Text("summary"),
		Kind:        kind,
		Description: c.Text("description"),
		Categories:  splitList(c.Text("categories")),
		Meta:        model.Meta{Path: id + ".ics"},
		Component:   c,
	}, nil
}

// readProperty converts one library property into a typed internal one.
// The value kind is derived from the property name plus the usual
// VALUE=DATE conventions.
func readProperty(c *component.Component, p ical.IANAProperty) {
	name := strings.ToLower(string(p.IANAToken))

	params := map[string]string{}
	for k, vs := range p.ICalParameters {
		if strings.EqualFold(k, "VALUE") {
			continue
		}
		if len(vs) > 0 {
			params[strings.ToLower(k)] = vs[0]
		}
	}
	if len(params) == 0 {
		params = nil
	}

	v := parseValue(name, p)
	if params != nil {
		c.AddWithParams(name, params, v)
	} else {
		c.Add(name, v)
	}
}

func parseValue(name string, p ical.IANAProperty) component.Value {
	switch name {
	case "dtstart", "dtend", "due", "completed", "created", "dtstamp",
		"last-modified", "recurrence-id":
		if dt, err := component.ParseICal(p.Value); err == nil {
			return component.Time(dt)
		}
	case "sequence", "percent-complete":
		if n, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64); err == nil {
			return component.Integer(n)
		}
	case "trigger":
		// Absolute triggers carry a date-time value, relative ones an
		// iCalendar duration.
		if isDateTimeParam(p) || strings.HasSuffix(p.Value, "Z") {
			if dt, err := component.ParseICal(p.Value); err == nil {
				return component.Time(dt)
			}
		}
		if d, err := component.ParseICalDuration(p.Value); err == nil {
			return component.Dur(d)
		}
	case "url", "attach", "attendee", "organizer":
		return component.URI(p.Value)
	default:
		if strings.HasPrefix(name, "x-") && strings.EqualFold(p.Value, "TRUE") {
			return component.Boolean(true)
		}
	}
	return component.Text(p.Value)
}

func isDateTimeParam(p ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 {
		return strings.EqualFold(vs[0], "DATE-TIME")
	}
	return false
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
