package convert

import (
	"testing"

	"google.golang.org/api/calendar/v3"

	"gcalsync/internal/component"
	"gcalsync/internal/model"
)

func baseEvent() *calendar.Event {
	return &calendar.Event{
		Id:      "ev1",
		Etag:    `"etag-1"`,
		Summary: "Team sync",
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{DateTime: "2024-05-01T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-05-01T11:00:00Z"},
	}
}

func TestEventToItemUIDSynthesis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mut  func(*calendar.Event)
		want string
	}{
		{"explicit ical uid", func(ev *calendar.Event) { ev.ICalUID = "abc@example.com" }, "abc@example.com"},
		{"from recurring parent", func(ev *calendar.Event) { ev.RecurringEventId = "parent" }, "parent@google.com"},
		{"from record id", func(ev *calendar.Event) {}, "ev1@google.com"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := baseEvent()
			tt.mut(ev)
			item, err := EventToItem(ev, Options{})
			if err != nil {
				t.Fatalf("EventToItem: %v", err)
			}
			if got := item.Component.Text(propUID); got != tt.want {
				t.Errorf("uid = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventToItemRequiresStart(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	ev.Start = nil
	if _, err := EventToItem(ev, Options{}); err == nil {
		t.Error("EventToItem accepted an event without a start date")
	}
}

func TestEventToItemCancelledTombstone(t *testing.T) {
	t.Parallel()

	// Cancelled records come back as bare tombstones without dates.
	item, err := EventToItem(&calendar.Event{Id: "gone123", Status: "cancelled"}, Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}
	if got := item.Component.Text(propStatus); got != statusCancelled {
		t.Errorf("status = %q, want %q", got, statusCancelled)
	}
	if got := item.Component.Text(propUID); got != "gone123@google.com" {
		t.Errorf("uid = %q", got)
	}
	if _, ok := item.Component.First(propDtStart); ok {
		t.Error("tombstone grew a dtstart")
	}
}

func TestEventToItemUnspecifiedEnd(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	ev.End = nil
	item, err := EventToItem(ev, Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}
	if _, ok := item.Component.First(propDtEnd); ok {
		t.Error("dtend present for an event without an end")
	}
	v, ok := item.Component.First(propEndUnspecified)
	if !ok {
		t.Fatal("unspecified-end flag missing")
	}
	if flag, _ := v.Bool(); !flag {
		t.Error("unspecified-end flag is not TRUE")
	}
}

func TestEventToItemRestrictedAccess(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	item, err := EventToItem(ev, Options{RestrictedAccess: true, BusyTitle: "Belegt"})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}
	if got := item.Component.Text(propSummary); got != "Belegt" {
		t.Errorf("summary = %q, want placeholder", got)
	}
	if item.Title != "Belegt" {
		t.Errorf("item title = %q, want placeholder", item.Title)
	}
}

func TestEventToItemAttendees(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	ev.Attendees = []*calendar.EventAttendee{
		{Email: "alice@example.com", DisplayName: "Alice", ResponseStatus: "accepted"},
		{Id: "room-1", Resource: true, Optional: true},
	}
	item, err := EventToItem(ev, Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}

	atts := item.Component.Props(propAttendee)
	if len(atts) != 2 {
		t.Fatalf("got %d attendees, want 2", len(atts))
	}

	first := atts[0]
	if got := first.Value.String(); got != "mailto:alice@example.com" {
		t.Errorf("attendee uri = %q", got)
	}
	if first.Param("cn") != "Alice" || first.Param("partstat") != "ACCEPTED" {
		t.Errorf("attendee params = cn:%q partstat:%q", first.Param("cn"), first.Param("partstat"))
	}
	if first.Param("role") != "REQ-PARTICIPANT" || first.Param("cutype") != "INDIVIDUAL" {
		t.Errorf("attendee params = role:%q cutype:%q", first.Param("role"), first.Param("cutype"))
	}

	second := atts[1]
	if got := second.Value.String(); got != "urn:id:room-1" {
		t.Errorf("resource uri = %q, want id form", got)
	}
	if second.Param("role") != "OPT-PARTICIPANT" || second.Param("cutype") != "RESOURCE" {
		t.Errorf("resource params = role:%q cutype:%q", second.Param("role"), second.Param("cutype"))
	}
	if second.Param("partstat") != "NEEDS-ACTION" {
		t.Errorf("partstat = %q, want default NEEDS-ACTION", second.Param("partstat"))
	}
}

func TestEventToItemRecurrenceKeptEvenWhenInvalid(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	ev.Recurrence = []string{
		"RRULE:FREQ=WEEKLY;BYDAY=MO",
		"RRULE:FREQ=NONSENSE",
		"EXDATE;VALUE=DATE:20240506",
		"not a rule line",
	}
	item, err := EventToItem(ev, Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}

	if got := len(item.Component.Props("rrule")); got != 2 {
		t.Errorf("got %d rrule props, want 2 (invalid value kept verbatim)", got)
	}
	ex := item.Component.Props("exdate")
	if len(ex) != 1 {
		t.Fatalf("got %d exdate props, want 1", len(ex))
	}
	if ex[0].Param("value") != "DATE" {
		t.Errorf("exdate value param = %q, want DATE", ex[0].Param("value"))
	}
}

func TestEventToItemExtendedProperties(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	ev.ExtendedProperties = &calendar.EventExtendedProperties{
		Shared:  map[string]string{extCategories: "Work, Travel"},
		Private: map[string]string{
			extLastAck:     "20240430T120000Z",
			extSnoozeRecur: `{"20240501T100000Z":"20240501T095500Z"}`,
		},
	}
	item, err := EventToItem(ev, Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}

	if got := item.Component.Text(propCategories); got != "Work,Travel" {
		t.Errorf("categories = %q, want trimmed join", got)
	}
	if got := item.Component.Text(propLastAck); got != "20240430T120000Z" {
		t.Errorf("lastack = %q", got)
	}
	snooze := item.Component.Text(propSnoozePrefix + "20240501T100000Z")
	if snooze != "20240501T095500Z" {
		t.Errorf("per-occurrence snooze = %q", snooze)
	}
}

func TestEventToItemSequenceOnlyWhenNonZero(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	item, err := EventToItem(ev, Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}
	if _, ok := item.Component.First(propSequence); ok {
		t.Error("sequence recorded for a zero value")
	}

	ev.Sequence = 4
	item, err = EventToItem(ev, Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}
	v, ok := item.Component.First(propSequence)
	if !ok {
		t.Fatal("sequence missing")
	}
	if n, _ := v.Int(); n != 4 {
		t.Errorf("sequence = %d, want 4", n)
	}
}

func TestEventToItemKindAndMeta(t *testing.T) {
	t.Parallel()

	item, err := EventToItem(baseEvent(), Options{})
	if err != nil {
		t.Fatalf("EventToItem: %v", err)
	}
	if item.Kind != model.KindEvent {
		t.Errorf("kind = %q, want event", item.Kind)
	}
	if item.Meta.ETag != `"etag-1"` || item.Meta.Path != "ev1.ics" {
		t.Errorf("meta = %+v", item.Meta)
	}
	root, err := item.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if root.Name != component.NameEvent {
		t.Errorf("root name = %q", root.Name)
	}
}
