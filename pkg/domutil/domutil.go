// Package domutil provides small helpers for inspecting HTML fragments
// captured by the scanner (a violation's outer HTML) without a live browser.
package domutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FirstTag returns the lowercase tag name of the first element in the
// fragment, or "" if the fragment contains no element.
func FirstTag(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return ""
	}
	for _, n := range nodes {
		if el := firstElement(n); el != nil {
			return strings.ToLower(el.Data)
		}
	}
	return ""
}

// Attr returns the value of the named attribute on the first element of the
// fragment. The second return reports whether the attribute is present.
func Attr(fragment, name string) (string, bool) {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return "", false
	}
	for _, n := range nodes {
		el := firstElement(n)
		if el == nil {
			continue
		}
		for _, a := range el.Attr {
			if strings.EqualFold(a.Key, name) {
				return a.Val, true
			}
		}
		return "", false
	}
	return "", false
}

// InnerText returns the concatenated text content of the fragment with runs
// of whitespace collapsed to single spaces and the result trimmed. This is
// the plan-time snapshot of an element's text.
func InnerText(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, n := range nodes {
		collectText(n, &b)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func parseFragment(fragment string) ([]*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(fragment), body)
}

func firstElement(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if el := firstElement(c); el != nil {
			return el
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
		return
	}
	// Script and style bodies are not rendered text.
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
