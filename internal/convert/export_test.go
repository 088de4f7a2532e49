package convert

import (
	"testing"

	"google.golang.org/api/calendar/v3"
)

func TestItemToRecordEventIdentity(t *testing.T) {
	t.Parallel()

	// Synthesized uid: maps straight back to the bare record id.
	item := mustEventItem(t, baseEvent(), Options{})
	rec, err := ItemToRecord(item)
	if err != nil {
		t.Fatalf("ItemToRecord: %v", err)
	}
	if got := rec["id"]; got != "ev1" {
		t.Errorf("id = %v, want ev1", got)
	}
	if _, ok := rec["iCalUID"]; ok {
		t.Error("synthesized uid leaked as iCalUID")
	}
	if got := rec["summary"]; got != "Team sync" {
		t.Errorf("summary = %v", got)
	}
	end, ok := rec["end"].(*calendar.EventDateTime)
	if !ok || end.DateTime != "2024-05-01T11:00:00Z" {
		t.Errorf("end = %v", rec["end"])
	}

	// Foreign uid: travels as the iCalendar UID.
	ev := baseEvent()
	ev.ICalUID = "abc@example.com"
	item = mustEventItem(t, ev, Options{})
	rec, err = ItemToRecord(item)
	if err != nil {
		t.Fatalf("ItemToRecord: %v", err)
	}
	if got := rec["iCalUID"]; got != "abc@example.com" {
		t.Errorf("iCalUID = %v", got)
	}
	if _, ok := rec["id"]; ok {
		t.Error("foreign uid produced a record id")
	}
}

func TestItemToRecordTaskIdentity(t *testing.T) {
	t.Parallel()

	item, err := TaskToItem(baseTask())
	if err != nil {
		t.Fatalf("TaskToItem: %v", err)
	}
	rec, err := ItemToRecord(item)
	if err != nil {
		t.Fatalf("ItemToRecord: %v", err)
	}
	if got := rec["id"]; got != "task1" {
		t.Errorf("id = %v, want task1", got)
	}
	if got := rec["title"]; got != "Buy milk" {
		t.Errorf("title = %v", got)
	}
	if got := rec["status"]; got != "needsAction" {
		t.Errorf("status = %v", got)
	}
}

func TestItemToRecordRejectsCancelled(t *testing.T) {
	t.Parallel()

	ev := baseEvent()
	ev.Status = "cancelled"
	item := mustEventItem(t, ev, Options{})
	if _, err := ItemToRecord(item); err == nil {
		t.Error("ItemToRecord accepted a cancelled item")
	}
}
