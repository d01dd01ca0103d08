package specialists

import (
	"context"

	"github.com/entrhq/remedy/pkg/logging"
	"github.com/entrhq/remedy/pkg/oracle"
	"github.com/entrhq/remedy/pkg/types"
)

// Registry holds specialists in registration order. Dispatch is a
// deterministic first-match lookup: the first specialist whose CanHandle
// returns true plans the fix, with no priority scoring.
type Registry struct {
	specialists []Specialist
	log         *logging.Logger
}

// NewRegistry creates a registry with the given specialists, tried in the
// order given.
func NewRegistry(specialists ...Specialist) *Registry {
	return &Registry{
		specialists: specialists,
		log:         logging.NewLogger("specialists"),
	}
}

// NewDefaultRegistry creates a registry with the built-in specialists wired
// to the given oracle.
func NewDefaultRegistry(o oracle.Oracle) *Registry {
	return NewRegistry(
		NewImageAltSpecialist(o),
		NewTextContentSpecialist(o),
		NewContrastSpecialist(o),
	)
}

// Register appends a specialist after the existing ones.
func (r *Registry) Register(s Specialist) {
	r.specialists = append(r.specialists, s)
}

// Match returns the first specialist that can handle the violation.
func (r *Registry) Match(violation types.Violation) (Specialist, bool) {
	for _, s := range r.specialists {
		if s.CanHandle(violation) {
			return s, true
		}
	}
	return nil, false
}

// Dispatch routes the violation to the first matching specialist and plans
// a fix. No match fails with *UnhandledViolationError; planning failures
// surface as *FixPlanningError.
func (r *Registry) Dispatch(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error) {
	s, ok := r.Match(violation)
	if !ok {
		r.log.Debugf("no specialist for rule %s (violation %s)", violation.RuleID, violation.ID)
		return types.FixInstruction{}, &UnhandledViolationError{
			ViolationID: violation.ID,
			RuleID:      violation.RuleID,
		}
	}

	r.log.Debugf("dispatching violation %s (rule %s) to %s", violation.ID, violation.RuleID, s.Name())
	return s.PlanFix(ctx, violation, pageCtx)
}
