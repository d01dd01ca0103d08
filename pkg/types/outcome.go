package types

// OutcomeState is the terminal state of a violation after the pipeline has
// finished with it.
type OutcomeState string

const (
	StateFixed   OutcomeState = "fixed"
	StateSkipped OutcomeState = "skipped"
	StateError   OutcomeState = "error"
)

// Machine-readable reason codes attached to non-Fixed outcomes.
const (
	ReasonNoSpecialist     = "no_specialist"
	ReasonPlanningFailed   = "planning_failed"
	ReasonDestructive      = "destructive"
	ReasonContentChanged   = "content_changed"
	ReasonApplyFailed      = "apply_failed"
	ReasonConnectionFailed = "connection_failed"
)

// Outcome is the terminal record for a single violation. Exactly one Outcome
// is produced per input violation; ReasonCode is set whenever State is not
// StateFixed.
type Outcome struct {
	ViolationID string       `json:"violationId"`
	State       OutcomeState `json:"state"`
	ReasonCode  string       `json:"reasonCode,omitempty"`
	BeforeHTML  string       `json:"beforeHtml,omitempty"`
	AfterHTML   string       `json:"afterHtml,omitempty"`
}

// ValidationResult accumulates every violated rule for an instruction.
// Valid is false exactly when Errors is non-empty.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
