package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ContainsMarker reports whether the literal `marker` appears in `body`. An
// empty marker never matches.
func ContainsMarker(body []byte, marker string) bool {
	if marker == "" {
		return false
	}
	return bytes.Contains(body, []byte(marker))
}

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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText drops non printable characters and collapses runs of whitespace.
func CleanText(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	out := strings.TrimSpace(newStr.String())
	return innerWhitespace.ReplaceAllString(out, " ")
}

// Notice returns the cleaned text of the first element matching `selector`,
// it is used to surface the message a site shows next to a rejected form.
// An empty selector, an unparsable body or no match all yield "".
func Notice(body []byte, selector string) string {
	if selector == "" || len(body) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	sel := doc.Find(selector).First()
	if len(sel.Nodes) == 0 {
		return ""
	}
	return CleanText(GetText(sel.Nodes[0]))
}
