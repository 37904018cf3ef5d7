package snapshot

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Prepare parses a captured page, inserts <base href=pageURL> into <head>
// when the document has no base element, and returns it re-serialized with
// its title.
func Prepare(rawHTML, pageURL string) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if pageURL != "" && findElement(doc, atom.Base) == nil {
		if head := findElement(doc, atom.Head); head != nil {
			base := &html.Node{
				Type:     html.ElementNode,
				DataAtom: atom.Base,
				Data:     "base",
				Attr:     []html.Attribute{{Key: "href", Val: pageURL}},
			}
			head.InsertBefore(base, head.FirstChild)
		}
	}

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}
	return &Page{URL: pageURL, HTML: b.String(), Title: extractTitle(doc)}, nil
}

// findElement returns the first element of the given kind in document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// extractTitle returns the trimmed text of the first <title>.
func extractTitle(doc *html.Node) string {
	title := findElement(doc, atom.Title)
	if title == nil {
		return ""
	}
	var b strings.Builder
	for c := title.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
