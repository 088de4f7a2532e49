// Package component implements the canonical internal calendar
// representation: a named component node holding an ordered list of typed
// property tuples and an ordered list of child components. It is the shape
// shared by item roots (vevent/vtodo) and composite sub-elements (valarm).
//
// Components are built once by a converter call and treated as immutable
// snapshots afterwards; the diff engine compares two independent trees and
// never mutates either side.
package component

// Component names used throughout the converter.
const (
	NameEvent = "vevent"
	NameTodo  = "vtodo"
	NameAlarm = "valarm"
)

// Property is a single (name, parameters, value) tuple.
type Property struct {
	Name   string
	Params map[string]string
	Value  Value
}

// Param returns the named parameter, or "" if absent.
func (p Property) Param(key string) string {
	if p.Params == nil {
		return ""
	}
	return p.Params[key]
}

// Component is a named node with ordered properties and ordered children.
type Component struct {
	Name       string
	Properties []Property
	Children   []*Component
}

// New creates an empty component with the given name.
func New(name string) *Component {
	return &Component{Name: name}
}

// Add appends a property with no parameters.
func (c *Component) Add(name string, v Value) {
	c.Properties = append(c.Properties, Property{Name: name, Value: v})
}

// AddWithParams appends a property carrying the given parameter map.
// The map is owned by the component after this call.
func (c *Component) AddWithParams(name string, params map[string]string, v Value) {
	c.Properties = append(c.Properties, Property{Name: name, Params: params, Value: v})
}

// AddChild appends a child component.
func (c *Component) AddChild(ch *Component) {
	c.Children = append(c.Children, ch)
}

// Prop returns the first property with the given name.
func (c *Component) Prop(name string) (Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Props returns all properties with the given name, in order.
func (c *Component) Props(name string) []Property {
	var out []Property
	for _, p := range c.Properties {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// First returns the value of the first property with the given name.
func (c *Component) First(name string) (Value, bool) {
	p, ok := c.Prop(name)
	if !ok {
		return Value{}, false
	}
	return p.Value, true
}

// Text returns the serialized value of the first property with the given
// name, or "" when the property is absent. This is the form used for
// stringified scalar comparison.
func (c *Component) Text(name string) string {
	v, ok := c.First(name)
	if !ok {
		return ""
	}
	return v.String()
}

// All returns the values of every property with the given name.
func (c *Component) All(name string) []Value {
	var out []Value
	for _, p := range c.Properties {
		if p.Name == name {
			out = append(out, p.Value)
		}
	}
	return out
}

// Sub returns all direct children with the given name.
func (c *Component) Sub(name string) []*Component {
	var out []*Component
	for _, ch := range c.Children {
		if ch.Name == name {
			out = append(out, ch)
		}
	}
	return out
}

// FirstSub returns the first direct child with the given name.
func (c *Component) FirstSub(name string) (*Component, bool) {
	for _, ch := range c.Children {
		if ch.Name == name {
			return ch, true
		}
	}
	return nil, false
}
