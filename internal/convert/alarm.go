package convert

import (
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"gcalsync/internal/component"
)

const (
	// maxAlarmMinutes is the remote system's hard maximum reminder lead
	// time: 4 weeks expressed in minutes.
	maxAlarmMinutes = 40320

	// maxOverrides is the remote cap on concrete reminder overrides per
	// item. The default-alarm marker is a separate flag and does not count
	// against it.
	maxOverrides = 5

	// alarmLabel is the fixed description attached to materialized alarm
	// components.
	alarmLabel = "Reminder"
)

// clampMinutes clamps a reminder lead time into [0, maxAlarmMinutes].
// Clamping is idempotent.
func clampMinutes(m int64) int64 {
	if m < 0 {
		return 0
	}
	if m > maxAlarmMinutes {
		return maxAlarmMinutes
	}
	return m
}

// Override is one concrete reminder: a delivery method plus a lead time in
// minutes before the item's start.
type Override struct {
	Method  string
	Minutes int64
}

// ReminderSet is the flat reminder representation of an item's alarms.
type ReminderSet struct {
	UseDefault bool
	Overrides  []Override
}

// Equal compares two reminder sets the way the remote system does: the
// use-default flag, the override count, and the set of (method, minutes)
// pairs. Order is not significant and duplicate pairs collapse, so two
// overrides with identical method+minutes are indistinguishable here.
func (r ReminderSet) Equal(o ReminderSet) bool {
	if r.UseDefault != o.UseDefault || len(r.Overrides) != len(o.Overrides) {
		return false
	}
	pairs := make(map[Override]struct{}, len(r.Overrides))
	for _, ov := range r.Overrides {
		pairs[ov] = struct{}{}
	}
	for _, ov := range o.Overrides {
		if _, ok := pairs[ov]; !ok {
			return false
		}
	}
	return true
}

// Wire produces the external reminders object. A marker-only result
// collapses to {useDefault: true} with no overrides key.
func (r ReminderSet) Wire() map[string]any {
	out := map[string]any{"useDefault": r.UseDefault}
	if len(r.Overrides) > 0 {
		list := make([]map[string]any, 0, len(r.Overrides))
		for _, ov := range r.Overrides {
			list = append(list, map[string]any{
				"method":  ov.Method,
				"minutes": ov.Minutes,
			})
		}
		out["overrides"] = list
	}
	return out
}

// remindersFromComponent folds an item root's valarm children into the
// flat reminder form.
//
// Rules:
//   - a component carrying the default-alarm marker only sets UseDefault
//     and is never turned into a literal override
//   - at most maxOverrides concrete overrides are retained, but scanning
//     continues past the cap so a later default marker is still seen
//   - the minute offset depends on the trigger kind (absolute, end-relative
//     duration, or start-relative duration) and is clamped into range
func remindersFromComponent(root *component.Component) ReminderSet {
	var out ReminderSet

	start, haveStart := timeOf(root, propDtStart)
	var length time.Duration
	if end, ok := timeOf(root, propDtEnd); ok && haveStart {
		length = end.Time.Sub(start.Time)
	}

	for _, alarm := range root.Sub(component.NameAlarm) {
		if v, ok := alarm.First(propDefaultAlarm); ok {
			if flag, _ := v.Bool(); flag {
				out.UseDefault = true
				continue
			}
		}
		if len(out.Overrides) >= maxOverrides {
			continue
		}

		method := alarmAction.External(alarm.Text(propAction))

		trigger, ok := alarm.Prop(propTrigger)
		if !ok {
			continue
		}
		var minutes int64
		if abs, isTime := trigger.Value.Time(); isTime {
			if haveStart {
				minutes = int64(start.Time.Sub(abs.Time) / time.Minute)
			}
		} else if d, isDur := trigger.Value.Duration(); isDur {
			secs := int64(d / time.Second)
			if strings.EqualFold(trigger.Param("related"), "END") {
				minutes = -(secs + int64(length/time.Second)) / 60
			} else {
				minutes = -secs / 60
			}
		} else {
			continue
		}

		out.Overrides = append(out.Overrides, Override{
			Method:  method,
			Minutes: clampMinutes(minutes),
		})
	}
	return out
}

// alarmsFromReminders materializes valarm components from the wire
// reminders object. The default-alarm marker is emitted only when the
// site-wide default reminder list is non-empty and the record opted into
// it; literal overrides are emitted with a negative duration trigger.
func alarmsFromReminders(rem *calendar.EventReminders, defaults []*calendar.EventReminder) []*component.Component {
	if rem == nil {
		return nil
	}
	var out []*component.Component

	for _, ov := range rem.Overrides {
		if ov == nil {
			continue
		}
		a := component.New(component.NameAlarm)
		a.Add(propAction, component.Text(alarmAction.Internal(ov.Method)))
		a.Add(propDescription, component.Text(alarmLabel))
		a.Add(propTrigger, component.Dur(-time.Duration(clampMinutes(ov.Minutes))*time.Minute))
		out = append(out, a)
	}

	if rem.UseDefault && len(defaults) > 0 {
		a := component.New(component.NameAlarm)
		a.Add(propAction, component.Text(alarmAction.Internal("")))
		a.Add(propDescription, component.Text(alarmLabel))
		a.Add(propTrigger, component.Dur(0))
		a.Add(propDefaultAlarm, component.Boolean(true))
		out = append(out, a)
	}
	return out
}
