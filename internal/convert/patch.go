package convert

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"gcalsync/internal/component"
	"gcalsync/internal/model"
)

// Outcome is the result of diffing two snapshots of the same logical item.
// A terminal cancelled status cannot be expressed as a partial patch, so it
// is surfaced as Delete instead of a Fields map; callers must switch from
// update to removal, never report it as a failure.
type Outcome struct {
	Fields map[string]any
	Delete bool
}

// Diff compares an old and a new snapshot of the same logical item and
// produces the smallest external patch that reproduces the new snapshot.
// Both snapshots are read-only; the diff never mutates either tree.
func Diff(oldItem, newItem *model.Item) (Outcome, error) {
	if oldItem == nil || newItem == nil {
		return Outcome{}, fmt.Errorf("diff requires two snapshots")
	}
	if oldItem.Kind != newItem.Kind {
		return Outcome{}, fmt.Errorf("diff across kinds %q and %q", oldItem.Kind, newItem.Kind)
	}
	switch newItem.Kind {
	case model.KindEvent:
		return diffEvent(oldItem, newItem)
	case model.KindTask:
		return diffTask(oldItem, newItem)
	default:
		return Outcome{}, fmt.Errorf("unsupported item kind %q", newItem.Kind)
	}
}

func diffEvent(oldItem, newItem *model.Item) (Outcome, error) {
	oldc, err := oldItem.Root()
	if err != nil {
		return Outcome{}, err
	}
	newc, err := newItem.Root()
	if err != nil {
		return Outcome{}, err
	}

	newStatus := strings.ToUpper(newc.Text(propStatus))
	if newStatus == statusCancelled {
		return Outcome{Delete: true}, nil
	}

	patch := map[string]any{}

	if oldStatus := strings.ToUpper(oldc.Text(propStatus)); oldStatus != newStatus && newStatus != "" {
		patch["status"] = strings.ToLower(newStatus)
	}

	// Scalar text fields: stringified compare, emit the new value when the
	// forms differ (including an empty value that clears the field).
	diffText(patch, oldc, newc, propSummary, "summary")
	diffText(patch, oldc, newc, propDescription, "description")
	diffText(patch, oldc, newc, propLocation, "location")

	if o, n := oldc.Text(propSequence), newc.Text(propSequence); o != n {
		seq, _ := strconv.ParseInt(n, 10, 64)
		patch["sequence"] = seq
	}
	if o, n := oldc.Text(propTransp), newc.Text(propTransp); o != n {
		patch["transparency"] = strings.ToLower(n)
	}
	if o, n := oldc.Text(propClass), newc.Text(propClass); o != n {
		patch["visibility"] = strings.ToLower(n)
	}

	diffDate(patch, oldc, newc, propDtStart, "start")
	diffDate(patch, oldc, newc, propRecurrenceID, "originalStartTime")

	// The end date is asymmetric: a dtend that disappears becomes an
	// explicit unspecified-end flag, not just an absent field.
	oldEnd, oldHasEnd := timeOf(oldc, propDtEnd)
	newEnd, newHasEnd := timeOf(newc, propDtEnd)
	switch {
	case newHasEnd && (!oldHasEnd || !oldEnd.Equal(newEnd)):
		patch["end"] = wireDateTime(newEnd)
	case !newHasEnd && oldHasEnd:
		patch["endTimeUnspecified"] = true
	}

	if attendeesChanged(oldc, newc) {
		patch["attendees"] = wireAttendees(newc)
	}

	oldRem := remindersFromComponent(oldc)
	newRem := remindersFromComponent(newc)
	if !oldRem.Equal(newRem) {
		patch["reminders"] = newRem.Wire()
	}

	oldLines := recurrenceLines(oldc)
	newLines := recurrenceLines(newc)
	if !equalStringSets(oldLines, newLines) {
		patch["recurrence"] = sortedLines(newLines)
	}

	shared := map[string]string{}
	private := map[string]string{}

	oldCats := splitCategories(oldc.Text(propCategories))
	newCats := splitCategories(newc.Text(propCategories))
	if !equalStringSets(toSet(oldCats), toSet(newCats)) {
		shared[extCategories] = strings.Join(newCats, ",")
	}

	// Per-occurrence snooze state travels as one opaque JSON blob; any
	// change anywhere re-emits the whole blob, and a blob that went away
	// is cleared with an empty value.
	if oldBlob, newBlob := snoozeBlob(oldc), snoozeBlob(newc); oldBlob != newBlob {
		private[extSnoozeRecur] = newBlob
	}
	if o, n := oldc.Text(propLastAck), newc.Text(propLastAck); o != n {
		private[extLastAck] = n
	}
	if o, n := oldc.Text(propSnoozeTime), newc.Text(propSnoozeTime); o != n {
		private[extSnoozeTime] = n
	}

	// Prune empty sub-maps; drop the container entirely when both are
	// empty so patches never carry vestigial structure.
	ext := map[string]any{}
	if len(shared) > 0 {
		ext["shared"] = shared
	}
	if len(private) > 0 {
		ext["private"] = private
	}
	if len(ext) > 0 {
		patch["extendedProperties"] = ext
	}

	return Outcome{Fields: patch}, nil
}

func diffTask(oldItem, newItem *model.Item) (Outcome, error) {
	oldc, err := oldItem.Root()
	if err != nil {
		return Outcome{}, err
	}
	newc, err := newItem.Root()
	if err != nil {
		return Outcome{}, err
	}

	newStatus := strings.ToUpper(newc.Text(propStatus))
	if newStatus == statusCancelled {
		return Outcome{Delete: true}, nil
	}

	patch := map[string]any{}

	diffText(patch, oldc, newc, propSummary, "title")
	diffText(patch, oldc, newc, propDescription, "notes")

	if oldStatus := strings.ToUpper(oldc.Text(propStatus)); oldStatus != newStatus && newStatus != "" {
		wire := "completed"
		if newStatus == statusNeedsAction {
			wire = "needsAction"
		}
		patch["status"] = wire
	}

	diffTaskStamp(patch, oldc, newc, propDue, "due")
	diffTaskStamp(patch, oldc, newc, propCompleted, "completed")

	return Outcome{Fields: patch}, nil
}

func diffText(patch map[string]any, oldc, newc *component.Component, prop, wire string) {
	if o, n := oldc.Text(prop), newc.Text(prop); o != n {
		patch[wire] = n
	}
}

// diffDate emits the new wire date when the parsed temporal values differ.
// Presence asymmetry always counts as a change; a date that disappears is
// cleared with an explicit null.
func diffDate(patch map[string]any, oldc, newc *component.Component, prop, wire string) {
	oldDT, oldOK := timeOf(oldc, prop)
	newDT, newOK := timeOf(newc, prop)
	switch {
	case newOK && (!oldOK || !oldDT.Equal(newDT)):
		patch[wire] = wireDateTime(newDT)
	case !newOK && oldOK:
		patch[wire] = nil
	}
}

// diffTaskStamp compares task timestamps by parsed value and clears a
// removed one with an explicit null.
func diffTaskStamp(patch map[string]any, oldc, newc *component.Component, prop, wire string) {
	oldDT, oldOK := timeOf(oldc, prop)
	newDT, newOK := timeOf(newc, prop)
	switch {
	case newOK && (!oldOK || !oldDT.Equal(newDT)):
		if newDT.AllDay {
			patch[wire] = newDT.Time.Format("2006-01-02") + "T00:00:00.000Z"
		} else {
			patch[wire] = newDT.Time.UTC().Format(time.RFC3339)
		}
	case !newOK && oldOK:
		patch[wire] = nil
	}
}

// attendeesChanged reports whether the attendee lists differ as sets keyed
// by attendee identity (the property value). Any difference in display
// name, role, category or participation status also counts; the caller
// then replaces the whole list rather than patching individuals.
func attendeesChanged(oldc, newc *component.Component) bool {
	oldAtt := oldc.Props(propAttendee)
	newAtt := newc.Props(propAttendee)
	if len(oldAtt) != len(newAtt) {
		return true
	}
	byID := make(map[string]component.Property, len(oldAtt))
	for _, p := range oldAtt {
		byID[p.Value.String()] = p
	}
	for _, p := range newAtt {
		o, ok := byID[p.Value.String()]
		if !ok {
			return true
		}
		for _, param := range []string{"cn", "role", "cutype", "partstat"} {
			if o.Param(param) != p.Param(param) {
				return true
			}
		}
	}
	return false
}

// wireAttendees rebuilds the full external attendee list from a snapshot.
func wireAttendees(c *component.Component) []*calendar.EventAttendee {
	props := c.Props(propAttendee)
	out := make([]*calendar.EventAttendee, 0, len(props))
	for _, p := range props {
		email, id := splitParticipantURI(p.Value.String())
		out = append(out, &calendar.EventAttendee{
			Email:          email,
			Id:             id,
			DisplayName:    p.Param("cn"),
			Optional:       p.Param("role") == "OPT-PARTICIPANT",
			Resource:       p.Param("cutype") == "RESOURCE",
			ResponseStatus: attendeeStatus.External(p.Param("partstat")),
		})
	}
	return out
}

// snoozeBlob folds the x-moz-snooze-time-<id> properties into the JSON
// blob form keyed by recurrence id. Key order is stable, so blob equality
// is plain string equality.
func snoozeBlob(c *component.Component) string {
	byID := map[string]string{}
	for _, p := range c.Properties {
		if rest, ok := strings.CutPrefix(p.Name, propSnoozePrefix); ok && rest != "" {
			byID[rest] = p.Value.String()
		}
	}
	if len(byID) == 0 {
		return ""
	}
	blob, err := json.Marshal(byID)
	if err != nil {
		return ""
	}
	return string(blob)
}

func equalStringSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}

func sortedLines(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for line := range set {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}
