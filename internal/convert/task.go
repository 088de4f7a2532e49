package convert

import (
	"encoding/json"
	"errors"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"

	"gcalsync/internal/component"
	appLog "gcalsync/internal/log"
	"gcalsync/internal/model"
)

// Internal status tokens.
const (
	statusCancelled   = "CANCELLED"
	statusNeedsAction = "NEEDS-ACTION"
	statusCompleted   = "COMPLETED"
)

// TaskToItem converts one external task record into a fresh internal
// snapshot.
func TaskToItem(t *tasks.Task) (*model.Item, error) {
	if t == nil {
		return nil, errors.New("nil task record")
	}

	c := component.New(component.NameTodo)

	c.Add(propUID, component.Text(t.Id))
	addStamp(c, propLastModified, t.Updated)
	addStamp(c, propDtStamp, t.Updated)

	addText(c, propSummary, t.Title)
	addText(c, propDescription, t.Notes)
	if t.SelfLink != "" {
		c.Add(propURL, component.URI(t.SelfLink))
	}
	if t.Parent != "" {
		c.AddWithParams(propRelatedTo, map[string]string{"reltype": "PARENT"}, component.Text(t.Parent))
	}
	addText(c, propSortKey, t.Position)

	// Status mapping: deletion beats everything, needsAction stays open,
	// anything else is a completed task at 100%.
	switch {
	case t.Deleted:
		c.Add(propStatus, component.Text(statusCancelled))
	case t.Status == "needsAction":
		c.Add(propStatus, component.Text(statusNeedsAction))
	default:
		c.Add(propStatus, component.Text(statusCompleted))
		c.Add(propPercent, component.Integer(100))
	}

	if t.Completed != nil {
		addStamp(c, propCompleted, *t.Completed)
	}
	addDateStamp(c, propDue, t.Due)

	for _, l := range t.Links {
		if l == nil || l.Link == "" {
			continue
		}
		params := map[string]string{}
		if l.Type != "" {
			params["x-type"] = l.Type
		}
		if l.Description != "" {
			params["x-title"] = l.Description
		}
		if len(params) > 0 {
			c.AddWithParams(propAttach, params, component.URI(l.Link))
		} else {
			c.Add(propAttach, component.URI(l.Link))
		}
	}

	return &model.Item{
		ID:          t.Id,
		Title:       t.Title,
		Kind:        model.KindTask,
		Description: t.Notes,
		Meta:        model.Meta{ETag: t.Etag, Path: t.Id + ".ics"},
		Component:   c,
	}, nil
}

// addDateStamp records an RFC3339 stamp like addStamp but tolerates the
// date-only form the tasks API uses for due dates.
func addDateStamp(c *component.Component, name, value string) {
	if value == "" {
		return
	}
	if len(value) == len("2006-01-02") {
		if dt, err := component.ParseDate(value); err == nil {
			c.Add(name, component.Time(dt))
		}
		return
	}
	addStamp(c, name, value)
}

// RecordToItem is the inbound batch entry point: it converts one raw wire
// record of the declared kind. An unrecognized kind is the one soft
// failure in the converter: it is logged and a nil item is returned so
// the batch can continue with its other records.
func RecordToItem(kind string, raw json.RawMessage, opts Options) (*model.Item, error) {
	k, err := model.ParseKind(kind)
	if err != nil {
		appLog.Error("convert: skipping record of unknown kind", err, "kind", kind)
		return nil, nil
	}
	switch k {
	case model.KindEvent:
		var ev calendar.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		return EventToItem(&ev, opts)
	default:
		var t tasks.Task
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		return TaskToItem(&t)
	}
}
