package convert

import (
	"fmt"
	"strings"

	"gcalsync/internal/component"
	"gcalsync/internal/model"
)

// ItemToRecord produces the full external record for a brand-new item. It
// reuses the diff engine with an empty old-side baseline, so every
// populated field of the item appears in the result and absent fields are
// filtered out, then adds the canonical identity fields.
func ItemToRecord(item *model.Item) (map[string]any, error) {
	if item == nil {
		return nil, fmt.Errorf("nil item")
	}
	root, err := item.Root()
	if err != nil {
		return nil, err
	}

	rootName := component.NameEvent
	if item.Kind == model.KindTask {
		rootName = component.NameTodo
	}
	baseline := &model.Item{
		ID:        item.ID,
		Kind:      item.Kind,
		Component: component.New(rootName),
	}

	out, err := Diff(baseline, item)
	if err != nil {
		return nil, err
	}
	if out.Delete {
		return nil, fmt.Errorf("item %s: cannot create a cancelled item", item.ID)
	}

	uid := root.Text(propUID)
	if uid == "" {
		return nil, fmt.Errorf("item %s: missing uid", item.ID)
	}
	switch item.Kind {
	case model.KindEvent:
		// A uid synthesized from a record id maps straight back to that
		// id; anything else travels as the iCalendar UID.
		if id, ok := strings.CutSuffix(uid, uidSuffix); ok {
			out.Fields["id"] = id
		} else {
			out.Fields["iCalUID"] = uid
		}
	default:
		out.Fields["id"] = uid
	}

	return out.Fields, nil
}
