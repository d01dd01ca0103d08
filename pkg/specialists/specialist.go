// Package specialists contains the pluggable fix planners. Each specialist
// recognizes a fixed set of violation rule patterns and plans a fix for
// matching violations, usually by consulting the fix-generation oracle.
//
// Specialists are independent values pairing a pure predicate with a
// planning function; an ordered registry dispatches each violation to the
// first specialist whose predicate matches.
package specialists

import (
	"context"

	"github.com/gobwas/glob"

	"github.com/entrhq/remedy/pkg/types"
)

// Specialist recognizes certain violation rules and plans fixes for them.
type Specialist interface {
	// Name identifies the specialist in logs and errors.
	Name() string

	// CanHandle is a pure predicate over the violation's ruleId. It has no
	// side effects and performs no I/O.
	CanHandle(violation types.Violation) bool

	// PlanFix produces a fix instruction for the violation. It may suspend
	// on network I/O to the oracle and must not mutate its inputs. Failures
	// are reported as *FixPlanningError.
	PlanFix(ctx context.Context, violation types.Violation, pageCtx types.PageContext) (types.FixInstruction, error)
}

// rulePatterns is a compiled, fixed set of ruleId glob patterns owned by a
// specialist.
type rulePatterns []glob.Glob

// compilePatterns compiles the given ruleId patterns. Patterns are fixed at
// construction; an invalid pattern is a programming error.
func compilePatterns(patterns ...string) rulePatterns {
	compiled := make(rulePatterns, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, glob.MustCompile(p))
	}
	return compiled
}

func (r rulePatterns) match(ruleID string) bool {
	for _, g := range r {
		if g.Match(ruleID) {
			return true
		}
	}
	return false
}
