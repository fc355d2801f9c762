package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div>hello <b>bold</b> world</div>`))
	require.NoError(t, err)

	sel := doc.Find("div")
	require.Len(t, sel.Nodes, 1)
	require.Equal(t, "hello bold world", GetText(sel.Nodes[0]))
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<li><div>\n  a@example.com\t</div></li>"))
	require.NoError(t, err)

	require.Equal(t, "a@example.com", SelectionText(doc.Find("div")))
	require.Equal(t, "", SelectionText(doc.Find("span")))
}

func TestNormalizeSpace(t *testing.T) {
	require.Equal(t, "a b c", NormalizeSpace("  a \n\t b   c "))
	require.Equal(t, "", NormalizeSpace(" \n "))
}
