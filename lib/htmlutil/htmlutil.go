package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

// SelectionText returns the text of every node in sel, whitespace
// normalized.
func SelectionText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		sb.WriteString(GetText(n))
	}
	return NormalizeSpace(sb.String())
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// NormalizeSpace collapses runs of whitespace into single spaces and trims
// the ends, approximating what a browser renders for an element's text.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}
