package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entrhq/remedy/pkg/types"
)

// ParseFixInstruction coerces a raw oracle response into a FixInstruction
// for the given violation. The response is untrusted: markdown fences are
// stripped, the JSON shape is enforced, and the violationId is pinned to the
// violation the fix was requested for. Any response that cannot be coerced
// fails rather than producing a partial instruction.
func ParseFixInstruction(raw, violationID string) (types.FixInstruction, error) {
	payload := stripFences(raw)
	if payload == "" {
		return types.FixInstruction{}, fmt.Errorf("empty oracle response")
	}

	var instruction types.FixInstruction
	if err := json.Unmarshal([]byte(payload), &instruction); err != nil {
		return types.FixInstruction{}, fmt.Errorf("oracle response is not a fix instruction: %w", err)
	}

	if strings.TrimSpace(instruction.Selector) == "" {
		return types.FixInstruction{}, fmt.Errorf("oracle response has empty selector")
	}

	switch instruction.ViolationID {
	case "", violationID:
		instruction.ViolationID = violationID
	default:
		return types.FixInstruction{}, fmt.Errorf("oracle response targets violation %q, expected %q",
			instruction.ViolationID, violationID)
	}

	switch instruction.Type {
	case types.FixAttribute:
		if strings.TrimSpace(instruction.Attribute.Name) == "" {
			return types.FixInstruction{}, fmt.Errorf("attribute fix has empty attribute name")
		}
	case types.FixContent:
		// OriginalTextHash is stamped by the planning specialist, never
		// trusted from the oracle.
		instruction.Content.OriginalTextHash = ""
	case types.FixStyle:
		if strings.TrimSpace(instruction.Style.Property) == "" {
			return types.FixInstruction{}, fmt.Errorf("style fix has empty property")
		}
	}

	return instruction, nil
}

// stripFences removes a surrounding markdown code fence, which chat models
// frequently wrap JSON responses in despite instructions.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. ```json).
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
