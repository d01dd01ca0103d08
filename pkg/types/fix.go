package types

import (
	"encoding/json"
	"fmt"
)

// FixType discriminates the kind of DOM change a FixInstruction performs.
type FixType string

const (
	// FixAttribute sets or clears a single attribute on the target element.
	FixAttribute FixType = "attribute"

	// FixContent replaces the target element's inner text.
	FixContent FixType = "content"

	// FixStyle sets a single inline style declaration on the target element.
	FixStyle FixType = "style"
)

// AttributeParams are the parameters of an attribute fix.
type AttributeParams struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ContentParams are the parameters of a content fix. OriginalTextHash is the
// SHA-256 hex digest of the element's text captured at plan time, used for
// the optimistic-concurrency check before apply.
type ContentParams struct {
	InnerText        string `json:"innerText"`
	OriginalTextHash string `json:"originalTextHash"`
}

// StyleParams are the parameters of a style fix.
type StyleParams struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// FixInstruction is a proposed, not-yet-applied remediation. Exactly one of
// Attribute, Content, or Style is set, matching Type.
type FixInstruction struct {
	Type        FixType `json:"type"`
	Selector    string  `json:"selector"`
	ViolationID string  `json:"violationId"`
	Reasoning   string  `json:"reasoning,omitempty"`

	Attribute *AttributeParams `json:"-"`
	Content   *ContentParams   `json:"-"`
	Style     *StyleParams     `json:"-"`
}

// fixInstructionWire is the JSON shape exchanged with the fix-generation
// oracle: a tagged union with a type-dependent params object.
type fixInstructionWire struct {
	Type        FixType         `json:"type"`
	Selector    string          `json:"selector"`
	ViolationID string          `json:"violationId"`
	Reasoning   string          `json:"reasoning,omitempty"`
	Params      json.RawMessage `json:"params"`
}

// UnmarshalJSON decodes the tagged-union wire format, selecting the params
// variant from the type tag. Unknown types fail rather than producing a
// half-decoded instruction.
func (f *FixInstruction) UnmarshalJSON(data []byte) error {
	var wire fixInstructionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	f.Type = wire.Type
	f.Selector = wire.Selector
	f.ViolationID = wire.ViolationID
	f.Reasoning = wire.Reasoning
	f.Attribute = nil
	f.Content = nil
	f.Style = nil

	switch wire.Type {
	case FixAttribute:
		var p AttributeParams
		if err := json.Unmarshal(wire.Params, &p); err != nil {
			return fmt.Errorf("invalid attribute params: %w", err)
		}
		f.Attribute = &p
	case FixContent:
		var p ContentParams
		if err := json.Unmarshal(wire.Params, &p); err != nil {
			return fmt.Errorf("invalid content params: %w", err)
		}
		f.Content = &p
	case FixStyle:
		var p StyleParams
		if err := json.Unmarshal(wire.Params, &p); err != nil {
			return fmt.Errorf("invalid style params: %w", err)
		}
		f.Style = &p
	default:
		return fmt.Errorf("unknown fix type %q", wire.Type)
	}

	return nil
}

// MarshalJSON encodes the instruction back into the tagged-union wire format.
func (f FixInstruction) MarshalJSON() ([]byte, error) {
	var params interface{}
	switch f.Type {
	case FixAttribute:
		params = f.Attribute
	case FixContent:
		params = f.Content
	case FixStyle:
		params = f.Style
	default:
		return nil, fmt.Errorf("unknown fix type %q", f.Type)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	return json.Marshal(fixInstructionWire{
		Type:        f.Type,
		Selector:    f.Selector,
		ViolationID: f.ViolationID,
		Reasoning:   f.Reasoning,
		Params:      raw,
	})
}
