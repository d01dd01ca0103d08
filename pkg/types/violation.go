// Package types defines the core data model shared across the remediation
// engine: scanner-produced violations, page context, proposed fixes, and
// terminal outcomes.
package types

// Impact classifies how severely a violation affects users.
type Impact string

const (
	ImpactCritical Impact = "critical"
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
	ImpactMinor    Impact = "minor"
)

// Violation is a single accessibility defect detected on a page.
// Violations are produced by the external scanner and are read-only here.
type Violation struct {
	ID          string `json:"id"`
	RuleID      string `json:"ruleId"`
	Impact      Impact `json:"impact"`
	Selector    string `json:"selector"`
	HTML        string `json:"html"`
	Description string `json:"description"`
	Help        string `json:"help"`
}

// ColorPair holds the computed foreground/background colors of an element.
type ColorPair struct {
	Foreground string `json:"foreground"`
	Background string `json:"background"`
}

// PageContext carries the surroundings of a violation's target element,
// captured by the scanner alongside the violation. Read-only.
type PageContext struct {
	URL             string     `json:"url"`
	Title           string     `json:"title,omitempty"`
	SurroundingText string     `json:"surroundingText,omitempty"`
	ParentElement   string     `json:"parentElement,omitempty"`
	SiblingElements []string   `json:"siblingElements,omitempty"`
	ImageSrc        string     `json:"imageSrc,omitempty"`
	ImageFilename   string     `json:"imageFilename,omitempty"`
	CurrentColors   *ColorPair `json:"currentColors,omitempty"`
}

// ViolationInput pairs a violation with the context it was detected in.
// This is the unit of work the pipeline consumes.
type ViolationInput struct {
	Violation Violation   `json:"violation"`
	Context   PageContext `json:"context"`
}
