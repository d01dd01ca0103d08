package pipeline

import (
	"context"
	"fmt"

	"github.com/entrhq/remedy/pkg/types"
)

// apply performs the integrity check and the DOM mutation for one
// instruction. The page lock is held across both so the check can never be
// invalidated by a concurrent mutation from another worker.
func (p *Pipeline) apply(ctx context.Context, input types.ViolationInput, instruction types.FixInstruction) (types.Outcome, error) {
	page, err := p.sessionPage(ctx, input.Context.URL)
	if err != nil {
		return types.Outcome{}, err
	}

	p.pageMu.Lock()
	defer p.pageMu.Unlock()

	if err := p.guard.Check(page, instruction); err != nil {
		return types.Outcome{}, err
	}

	found, err := page.QueryBySelector(instruction.Selector)
	if err != nil {
		return types.Outcome{}, fmt.Errorf("selector query failed: %w", err)
	}
	if !found {
		return types.Outcome{}, fmt.Errorf("selector %q no longer resolves", instruction.Selector)
	}

	// Before/after snapshots are best effort; a failed read never fails
	// the apply.
	before, _ := page.ReadOuterHTML(instruction.Selector)

	switch instruction.Type {
	case types.FixAttribute:
		err = page.SetAttribute(instruction.Selector, instruction.Attribute.Name, instruction.Attribute.Value)
	case types.FixContent:
		err = page.SetInnerText(instruction.Selector, instruction.Content.InnerText)
	case types.FixStyle:
		err = page.SetInlineStyle(instruction.Selector, instruction.Style.Property, instruction.Style.Value)
	default:
		err = fmt.Errorf("unknown fix type %q", instruction.Type)
	}
	if err != nil {
		return types.Outcome{}, err
	}

	after, _ := page.ReadOuterHTML(instruction.Selector)

	p.log.Infof("violation %s fixed (%s on %q)", input.Violation.ID, instruction.Type, instruction.Selector)
	return types.Outcome{
		ViolationID: input.Violation.ID,
		State:       types.StateFixed,
		BeforeHTML:  before,
		AfterHTML:   after,
	}, nil
}
