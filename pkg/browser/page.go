package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// DOM is the set of page operations the remediation pipeline performs.
// Reads inspect the live document; writes mutate it in place.
type DOM interface {
	// QueryBySelector reports whether the selector resolves to an element.
	QueryBySelector(selector string) (bool, error)

	// ReadInnerText returns the rendered text of the first matching element.
	ReadInnerText(selector string) (string, error)

	// ReadOuterHTML returns the outer HTML of the first matching element.
	ReadOuterHTML(selector string) (string, error)

	// SetAttribute sets an attribute on the first matching element.
	SetAttribute(selector, name, value string) error

	// RemoveAttribute removes an attribute from the first matching element.
	RemoveAttribute(selector, name string) error

	// SetInlineStyle sets one inline style declaration on the first
	// matching element.
	SetInlineStyle(selector, property, value string) error

	// SetInnerText replaces the text content of the first matching element.
	SetInnerText(selector, text string) error
}

// Page wraps a live playwright page and its owning context.
type Page struct {
	page    playwright.Page
	context playwright.BrowserContext
}

// URL returns the page's current URL.
func (p *Page) URL() string {
	return p.page.URL()
}

// Close closes the page and its browser context.
func (p *Page) Close() error {
	err := p.page.Close()
	if closeErr := p.context.Close(); err == nil {
		err = closeErr
	}
	return err
}

// QueryBySelector reports whether the selector currently resolves.
func (p *Page) QueryBySelector(selector string) (bool, error) {
	el, err := p.page.QuerySelector(selector)
	if err != nil {
		return false, fmt.Errorf("selector query failed: %w", err)
	}
	return el != nil, nil
}

// ReadInnerText returns the rendered text of the first matching element.
func (p *Page) ReadInnerText(selector string) (string, error) {
	el, err := p.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if el == nil {
		return "", fmt.Errorf("no element matches selector %q", selector)
	}
	text, err := el.InnerText()
	if err != nil {
		return "", fmt.Errorf("text read failed: %w", err)
	}
	return text, nil
}

// ReadOuterHTML returns the outer HTML of the first matching element.
func (p *Page) ReadOuterHTML(selector string) (string, error) {
	result, err := p.page.Evaluate(`(sel) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("no element matches selector " + sel);
		return el.outerHTML;
	}`, selector)
	if err != nil {
		return "", fmt.Errorf("outer html read failed: %w", err)
	}
	html, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected outer html result type %T", result)
	}
	return html, nil
}

// SetAttribute sets an attribute on the first matching element.
func (p *Page) SetAttribute(selector, name, value string) error {
	_, err := p.page.Evaluate(`([sel, name, value]) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("no element matches selector " + sel);
		el.setAttribute(name, value);
	}`, []string{selector, name, value})
	if err != nil {
		return fmt.Errorf("set attribute failed: %w", err)
	}
	return nil
}

// RemoveAttribute removes an attribute from the first matching element.
func (p *Page) RemoveAttribute(selector, name string) error {
	_, err := p.page.Evaluate(`([sel, name]) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("no element matches selector " + sel);
		el.removeAttribute(name);
	}`, []string{selector, name})
	if err != nil {
		return fmt.Errorf("remove attribute failed: %w", err)
	}
	return nil
}

// SetInlineStyle sets one inline style declaration on the first matching
// element.
func (p *Page) SetInlineStyle(selector, property, value string) error {
	_, err := p.page.Evaluate(`([sel, prop, value]) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("no element matches selector " + sel);
		el.style.setProperty(prop, value);
	}`, []string{selector, property, value})
	if err != nil {
		return fmt.Errorf("set style failed: %w", err)
	}
	return nil
}

// SetInnerText replaces the text content of the first matching element.
func (p *Page) SetInnerText(selector, text string) error {
	_, err := p.page.Evaluate(`([sel, text]) => {
		const el = document.querySelector(sel);
		if (!el) throw new Error("no element matches selector " + sel);
		el.innerText = text;
	}`, []string{selector, text})
	if err != nil {
		return fmt.Errorf("set inner text failed: %w", err)
	}
	return nil
}
