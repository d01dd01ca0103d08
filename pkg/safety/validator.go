// Package safety defensively validates proposed fix instructions before they
// touch a live page. Fixes come from an untrusted oracle, so every rule is
// evaluated on every instruction and all failures are accumulated; nothing
// short-circuits.
package safety

import (
	"fmt"
	"strings"

	"github.com/entrhq/remedy/pkg/contenthash"
	"github.com/entrhq/remedy/pkg/types"
)

// interactiveTags are the element tags whose accessible content or
// affordance must never be stripped by an automated fix.
var interactiveTags = map[string]bool{
	"button":   true,
	"a":        true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"form":     true,
}

// accessibleNameAttrs are attributes that can carry an element's sole
// accessible name.
var accessibleNameAttrs = map[string]bool{
	"aria-label": true,
	"alt":        true,
}

// Validator checks fix instructions against destructive-change and
// content-integrity shape rules.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// IsDestructive reports whether applying the instruction would strip an
// interactive element's accessible content or affordance:
//
//   - a content fix writing empty or whitespace-only text into an
//     interactive element,
//   - an attribute fix clearing the element's sole accessible name
//     (aria-label or alt), or
//   - a style fix hiding the element via display:none or visibility:hidden.
func (v *Validator) IsDestructive(instruction types.FixInstruction) bool {
	if !targetsInteractive(instruction.Selector) {
		return false
	}

	switch instruction.Type {
	case types.FixContent:
		return instruction.Content != nil && strings.TrimSpace(instruction.Content.InnerText) == ""
	case types.FixAttribute:
		return instruction.Attribute != nil &&
			accessibleNameAttrs[strings.ToLower(instruction.Attribute.Name)] &&
			strings.TrimSpace(instruction.Attribute.Value) == ""
	case types.FixStyle:
		if instruction.Style == nil {
			return false
		}
		prop := strings.ToLower(strings.TrimSpace(instruction.Style.Property))
		val := strings.ToLower(strings.TrimSpace(instruction.Style.Value))
		return (prop == "display" && val == "none") || (prop == "visibility" && val == "hidden")
	default:
		return false
	}
}

// Validate evaluates every applicable rule and accumulates each violated
// rule into Errors. Valid is false exactly when Errors is non-empty.
func (v *Validator) Validate(instruction types.FixInstruction) types.ValidationResult {
	result := types.ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	if strings.TrimSpace(instruction.Selector) == "" {
		result.Errors = append(result.Errors, "selector must not be empty")
	}
	if strings.TrimSpace(instruction.ViolationID) == "" {
		result.Errors = append(result.Errors, "violationId must not be empty")
	}

	switch instruction.Type {
	case types.FixAttribute:
		if instruction.Attribute == nil || strings.TrimSpace(instruction.Attribute.Name) == "" {
			result.Errors = append(result.Errors, "attribute fix must name an attribute")
		}
	case types.FixContent:
		if instruction.Content == nil {
			result.Errors = append(result.Errors, "content fix must carry content params")
		} else if !contenthash.IsDigest(instruction.Content.OriginalTextHash) {
			result.Errors = append(result.Errors, "content fix must carry a 64-character lowercase hex originalTextHash")
		}
	case types.FixStyle:
		if instruction.Style == nil || strings.TrimSpace(instruction.Style.Property) == "" {
			result.Errors = append(result.Errors, "style fix must name a property")
		}
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("unknown fix type %q", instruction.Type))
	}

	if v.IsDestructive(instruction) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Destructive change: fix would strip accessible content or affordance from interactive element %q", instruction.Selector))
	}

	// Risky but not destructive: hiding an interactive element behind zero
	// opacity is surfaced for review without blocking the fix.
	if instruction.Type == types.FixStyle && instruction.Style != nil && targetsInteractive(instruction.Selector) {
		prop := strings.ToLower(strings.TrimSpace(instruction.Style.Property))
		val := strings.TrimSpace(instruction.Style.Value)
		if prop == "opacity" && (val == "0" || val == "0.0") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("style fix sets opacity 0 on interactive element %q", instruction.Selector))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// targetsInteractive reports whether the selector explicitly names an
// interactive tag in its final simple selector (e.g. "button.submit",
// "form > input", "nav a[href]").
func targetsInteractive(selector string) bool {
	return interactiveTags[selectorTag(selector)]
}

// selectorTag extracts the base tag name of the last simple selector, or ""
// when the selector does not name a tag (e.g. ".btn", "#submit").
func selectorTag(selector string) string {
	s := strings.TrimSpace(selector)
	if s == "" {
		return ""
	}

	// Last segment after any combinator.
	segments := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '>' || r == '+' || r == '~'
	})
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]

	// Strip class, id, attribute, and pseudo suffixes.
	if idx := strings.IndexAny(last, ".#[:"); idx >= 0 {
		last = last[:idx]
	}
	last = strings.ToLower(last)

	if last == "" || last == "*" {
		return ""
	}
	for _, r := range last {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return ""
		}
	}
	return last
}
