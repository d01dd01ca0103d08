// Package integrity implements the optimistic-concurrency check for content
// fixes: if the target element's live text no longer matches the snapshot
// hashed at plan time, the fix must not be applied against stale
// assumptions.
package integrity

import (
	"fmt"

	"github.com/entrhq/remedy/pkg/contenthash"
	"github.com/entrhq/remedy/pkg/types"
)

// TextReader reads the current rendered text of an element on the live page.
type TextReader interface {
	ReadInnerText(selector string) (string, error)
}

// ContentChangedError reports that the target element's text changed between
// plan time and apply time. The fix was not applied; the violation can be
// re-planned against the current page state.
type ContentChangedError struct {
	Selector     string
	ExpectedHash string
	ActualHash   string
}

func (e *ContentChangedError) Error() string {
	return fmt.Sprintf("content of %q changed since plan time (expected %s, found %s)",
		e.Selector, e.ExpectedHash, e.ActualHash)
}

// Guard performs the integrity check for content fixes.
type Guard struct{}

// NewGuard returns a Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Check re-reads the live text of the instruction's target element, hashes
// it with the same function used at plan time, and compares against the
// instruction's OriginalTextHash. Non-content fixes pass trivially.
// A mismatch returns ContentChangedError and the caller must not apply.
func (g *Guard) Check(reader TextReader, instruction types.FixInstruction) error {
	if instruction.Type != types.FixContent {
		return nil
	}
	if instruction.Content == nil {
		return fmt.Errorf("content fix for %q carries no content params", instruction.Selector)
	}

	live, err := reader.ReadInnerText(instruction.Selector)
	if err != nil {
		return fmt.Errorf("failed to read live text of %q: %w", instruction.Selector, err)
	}

	actual := contenthash.Hash(live)
	if actual != instruction.Content.OriginalTextHash {
		return &ContentChangedError{
			Selector:     instruction.Selector,
			ExpectedHash: instruction.Content.OriginalTextHash,
			ActualHash:   actual,
		}
	}
	return nil
}
