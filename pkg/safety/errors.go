package safety

import (
	"fmt"

	"github.com/entrhq/remedy/pkg/types"
)

// CodeDestructiveChange identifies a rejected destructive fix.
const CodeDestructiveChange = "DESTRUCTIVE_CHANGE"

// DestructiveChangeError is returned when a proposed fix would strip an
// interactive element's accessible content or affordance. The pipeline uses
// it both to abort the fix and to flag the violation for human review.
type DestructiveChangeError struct {
	Code     string
	Selector string
	Message  string
	Details  map[string]string
}

// Error returns the human-readable message, which references the selector.
func (e *DestructiveChangeError) Error() string {
	return e.Message
}

// NewDestructiveChangeError builds the error for a rejected instruction.
func NewDestructiveChangeError(instruction types.FixInstruction) *DestructiveChangeError {
	return &DestructiveChangeError{
		Code:     CodeDestructiveChange,
		Selector: instruction.Selector,
		Message:  fmt.Sprintf("destructive change rejected for selector %q", instruction.Selector),
		Details: map[string]string{
			"violationId": instruction.ViolationID,
		},
	}
}
