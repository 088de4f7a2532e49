package component

import (
	"strconv"
	"time"
)

// ValueKind discriminates the typed payload of a property value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindInteger
	KindBoolean
	KindURI
	KindDate
	KindDateTime
	KindDuration
)

// Value is a discriminated property value. Accessors return an explicit
// ok flag instead of relying on zero-value truthiness.
type Value struct {
	kind ValueKind
	text string
	num  int64
	flag bool
	when DateTime
	dur  time.Duration
}

// Text builds a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Integer builds an integer value.
func Integer(n int64) Value { return Value{kind: KindInteger, num: n} }

// Boolean builds a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, flag: b} }

// URI builds a uri value.
func URI(s string) Value { return Value{kind: KindURI, text: s} }

// Time builds a date or date-time value depending on dt.AllDay.
func Time(dt DateTime) Value {
	k := KindDateTime
	if dt.AllDay {
		k = KindDate
	}
	return Value{kind: k, when: dt}
}

// Dur builds a duration value.
func Dur(d time.Duration) Value { return Value{kind: KindDuration, dur: d} }

// Kind reports the value's discriminator.
func (v Value) Kind() ValueKind { return v.kind }

// Int returns the integer payload.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.num, true
}

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.flag, true
}

// Time returns the temporal payload for date and date-time values.
func (v Value) Time() (DateTime, bool) {
	if v.kind != KindDate && v.kind != KindDateTime {
		return DateTime{}, false
	}
	return v.when, true
}

// Duration returns the duration payload.
func (v Value) Duration() (time.Duration, bool) {
	if v.kind != KindDuration {
		return 0, false
	}
	return v.dur, true
}

// String serializes the value into its canonical iCalendar text form.
// This form is what scalar field diffing compares.
func (v Value) String() string {
	switch v.kind {
	case KindText, KindURI:
		return v.text
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindBoolean:
		if v.flag {
			return "TRUE"
		}
		return "FALSE"
	case KindDate, KindDateTime:
		return v.when.ICalString()
	case KindDuration:
		return FormatDuration(v.dur)
	}
	return ""
}
