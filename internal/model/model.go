package model

import (
	"fmt"

	"gcalsync/internal/component"
)

// Kind is the closed item discriminator. Every converter entry point
// branches on it and rejects anything outside the two declared values.
type Kind string

const (
	KindEvent Kind = "event"
	KindTask  Kind = "task"
)

// ParseKind validates a wire kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindEvent, KindTask:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unsupported item kind %q", s)
	}
}

// Meta carries per-item sync metadata from the remote system.
type Meta struct {
	ETag string
	Path string
}

// Item is a logical calendar item: the converter's output and the
// reconciler's unit of work. Component is the item's canonical internal
// snapshot (a vevent or vtodo tree) and is never mutated after conversion.
type Item struct {
	ID          string
	Title       string
	Kind        Kind
	Description string
	Categories  []string
	Meta        Meta
	Component   *component.Component
}

// Root returns the item's expected root component, failing when the tree
// lacks it. A missing root signals a malformed upstream payload.
func (it *Item) Root() (*component.Component, error) {
	if it.Component == nil {
		return nil, fmt.Errorf("item %s: missing component tree", it.ID)
	}
	want := component.NameEvent
	if it.Kind == KindTask {
		want = component.NameTodo
	}
	if it.Component.Name != want {
		return nil, fmt.Errorf("item %s: missing %s root component", it.ID, want)
	}
	return it.Component, nil
}
