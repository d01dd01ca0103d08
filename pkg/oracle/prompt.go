package oracle

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/remedy/pkg/types"
)

const systemPrompt = `You are an accessibility remediation assistant. Given a detected
accessibility violation and its page context, respond with exactly one JSON
object describing a fix, and nothing else:

{"type": "attribute"|"content"|"style",
 "selector": "<css selector of the target element>",
 "violationId": "<id of the violation>",
 "reasoning": "<one sentence>",
 "params": { ... }}

params by type:
  attribute: {"name": "<attribute>", "value": "<value>"}
  content:   {"innerText": "<replacement text>"}
  style:     {"property": "<css property>", "value": "<value>"}

Propose the smallest change that resolves the violation. Never remove an
interactive element's visible text or accessible name.`

var (
	encoder     *tiktoken.Tiktoken
	encoderOnce sync.Once
)

// getEncoder returns the shared cl100k_base encoder, or nil if the encoding
// data is unavailable (callers fall back to character truncation).
func getEncoder() *tiktoken.Tiktoken {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return
		}
		encoder = enc
	})
	return encoder
}

// truncateToBudget trims text to at most budget tokens, falling back to a
// character bound of 4 chars per token when no encoder is available.
func truncateToBudget(text string, budget int) string {
	if budget <= 0 || text == "" {
		return text
	}
	if enc := getEncoder(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= budget {
			return text
		}
		return enc.Decode(tokens[:budget])
	}
	limit := budget * 4
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// buildPrompt renders the system and user messages for one violation. Page
// context fields are truncated to the client's token budget so a single
// oversized page cannot blow past the oracle's context window.
func (c *Client) buildPrompt(violation types.Violation, pageCtx types.PageContext) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Violation %s\n", violation.ID)
	fmt.Fprintf(&b, "Rule: %s (impact: %s)\n", violation.RuleID, violation.Impact)
	fmt.Fprintf(&b, "Selector: %s\n", violation.Selector)
	fmt.Fprintf(&b, "Description: %s\n", violation.Description)
	if violation.Help != "" {
		fmt.Fprintf(&b, "Help: %s\n", violation.Help)
	}
	fmt.Fprintf(&b, "Element HTML:\n%s\n", truncateToBudget(violation.HTML, c.tokenBudget))

	fmt.Fprintf(&b, "\nPage: %s", pageCtx.URL)
	if pageCtx.Title != "" {
		fmt.Fprintf(&b, " (%s)", pageCtx.Title)
	}
	b.WriteString("\n")

	if pageCtx.SurroundingText != "" {
		fmt.Fprintf(&b, "Surrounding text: %s\n", truncateToBudget(pageCtx.SurroundingText, c.tokenBudget))
	}
	if pageCtx.ParentElement != "" {
		fmt.Fprintf(&b, "Parent element: %s\n", truncateToBudget(pageCtx.ParentElement, c.tokenBudget))
	}
	if len(pageCtx.SiblingElements) > 0 {
		fmt.Fprintf(&b, "Siblings:\n")
		for _, sib := range pageCtx.SiblingElements {
			fmt.Fprintf(&b, "  %s\n", truncateToBudget(sib, c.tokenBudget))
		}
	}
	if pageCtx.ImageSrc != "" {
		fmt.Fprintf(&b, "Image source: %s\n", pageCtx.ImageSrc)
	}
	if pageCtx.ImageFilename != "" {
		fmt.Fprintf(&b, "Image filename: %s\n", pageCtx.ImageFilename)
	}
	if pageCtx.CurrentColors != nil {
		fmt.Fprintf(&b, "Current colors: foreground %s on background %s\n",
			pageCtx.CurrentColors.Foreground, pageCtx.CurrentColors.Background)
	}

	return systemPrompt, b.String()
}
