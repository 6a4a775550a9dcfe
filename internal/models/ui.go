package models

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// UIEvent kinds and actions as emitted by the backend's UI builder agents.
const (
	KindUIEvent = "ui_event"

	ActionCreateComponent = "create_component"
	ActionUpdateComponent = "update_component"
)

// Component descriptor types. The set is closed; anything else renders as an
// error placeholder rather than being dropped.
const (
	ComponentTable   = "table"
	ComponentCard    = "card"
	ComponentSection = "section"
)

// UIEvent wraps a descriptor with routing metadata. Target identifies a
// logical UI slot within a message: at most one envelope per (message,
// target) pair exists, later arrivals replace earlier ones. Action is
// informational only; target identity decides create vs update.
type UIEvent struct {
	Kind      string       `json:"type"`
	Action    string       `json:"action,omitempty"`
	Target    string       `json:"target"`
	Component UIDescriptor `json:"component"`
}

// UIDescriptor is a tagged, recursively nestable render instruction. Props is
// an open attribute bag whose valid fields depend on Type; section props may
// carry a "children" list of nested descriptors.
type UIDescriptor struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Props json.RawMessage `json:"props,omitempty"`
}

// Children returns the nested descriptors from props.children, if any.
func (d UIDescriptor) Children() []UIDescriptor {
	if len(d.Props) == 0 {
		return nil
	}
	var props struct {
		Children []UIDescriptor `json:"children"`
	}
	if err := json.Unmarshal(d.Props, &props); err != nil {
		return nil
	}
	return props.Children
}

// Equal reports deep structural equality with another descriptor. Byte
// equality is used as a fast path; otherwise both props bags are compared as
// decoded JSON values so key order and whitespace do not matter.
func (d UIDescriptor) Equal(other UIDescriptor) bool {
	if d.ID != other.ID || d.Type != other.Type {
		return false
	}
	if bytes.Equal(d.Props, other.Props) {
		return true
	}
	return jsonValueEqual(d.Props, other.Props)
}

func jsonValueEqual(a, b json.RawMessage) bool {
	var av, bv interface{}
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
