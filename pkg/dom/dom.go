// Package dom wraps the handful of tree-query operations the
// extractors need, so they stay testable against documents built from
// literal HTML instead of a live browser.
package dom

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var innerWhitespace = regexp.MustCompile(`\s+`)

// Text returns the selection's text with runs of whitespace collapsed
// to single spaces and the ends trimmed.
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var buffer bytes.Buffer
	for _, node := range sel.Nodes {
		buffer.WriteString(NodeText(node))
	}
	return CompactText(buffer.String())
}

// CompactText collapses whitespace runs and trims.
func CompactText(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

// NodeText extracts the raw text of an html node tree.
func NodeText(node *html.Node) string {
	var buffer bytes.Buffer
	nodeTextRecursive(node, &buffer)
	return buffer.String()
}

func nodeTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		nodeTextRecursive(child, buffer)
	}
}

// AttrOr returns the first matched element's attribute value, or the
// fallback when the selection is empty or the attribute is absent.
func AttrOr(sel *goquery.Selection, name, fallback string) string {
	if sel == nil || sel.Length() == 0 {
		return fallback
	}
	return sel.AttrOr(name, fallback)
}

// Cascade is an ordered selector fallback list. Selectors are tried in
// priority order; the first one that matches a non-empty element wins.
type Cascade []string

// Find returns the first non-empty match within root, or nil when no
// selector in the cascade matches.
func (c Cascade) Find(root *goquery.Selection) *goquery.Selection {
	for _, selector := range c {
		if match := root.Find(selector).First(); match.Length() > 0 {
			return match
		}
	}
	return nil
}

// Text returns the compacted text of the first cascade tier that
// yields non-empty text. Tiers that match an element with no visible
// text fall through to the next tier.
func (c Cascade) Text(root *goquery.Selection) string {
	for _, selector := range c {
		sel := root.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		if text := Text(sel.First()); text != "" {
			return text
		}
	}
	return ""
}
