package convert

// Table is a fixed bijective mapping between external wire tokens and
// internal iCalendar tokens. Lookups outside the declared domain fall back
// to the table's documented default instead of failing.
type Table struct {
	fwd         map[string]string // external -> internal
	rev         map[string]string // internal -> external
	defExternal string
	defInternal string
}

func newTable(pairs map[string]string, defExternal string) Table {
	rev := make(map[string]string, len(pairs))
	for k, v := range pairs {
		rev[v] = k
	}
	return Table{
		fwd:         pairs,
		rev:         rev,
		defExternal: defExternal,
		defInternal: pairs[defExternal],
	}
}

// Internal maps an external token to its internal form.
func (t Table) Internal(ext string) string {
	if v, ok := t.fwd[ext]; ok {
		return v
	}
	return t.defInternal
}

// External maps an internal token to its external form.
func (t Table) External(in string) string {
	if v, ok := t.rev[in]; ok {
		return v
	}
	return t.defExternal
}

// attendeeStatus maps the wire responseStatus values onto PARTSTAT tokens.
// Unknown or missing input resolves to needsAction / NEEDS-ACTION.
var attendeeStatus = newTable(map[string]string{
	"needsAction": "NEEDS-ACTION",
	"declined":    "DECLINED",
	"tentative":   "TENTATIVE",
	"accepted":    "ACCEPTED",
}, "needsAction")

// alarmAction maps the wire reminder method onto VALARM ACTION tokens.
// Unknown or missing input resolves to popup / DISPLAY.
var alarmAction = newTable(map[string]string{
	"email": "EMAIL",
	"popup": "DISPLAY",
}, "popup")
