package specialists

import "fmt"

// FixPlanningError is returned when a specialist cannot produce a usable
// fix instruction: the oracle timed out, errored, or returned a shape that
// cannot be coerced into a valid instruction.
type FixPlanningError struct {
	ViolationID string
	Specialist  string
	Err         error
}

func (e *FixPlanningError) Error() string {
	return fmt.Sprintf("specialist %s failed to plan fix for violation %s: %v", e.Specialist, e.ViolationID, e.Err)
}

func (e *FixPlanningError) Unwrap() error {
	return e.Err
}

// UnhandledViolationError is returned by dispatch when no registered
// specialist recognizes the violation's rule.
type UnhandledViolationError struct {
	ViolationID string
	RuleID      string
}

func (e *UnhandledViolationError) Error() string {
	return fmt.Sprintf("no specialist handles rule %q (violation %s)", e.RuleID, e.ViolationID)
}
