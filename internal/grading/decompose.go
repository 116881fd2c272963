package grading

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind classifies one gradable position inside a question.
type Kind string

const (
	KindGap      Kind = "gap"
	KindDropdown Kind = "dropdown"
	KindHint     Kind = "hint"
)

func (k Kind) Valid() bool {
	switch k {
	case KindGap, KindDropdown, KindHint:
		return true
	}
	return false
}

// Markup classes recognised in question content.
const (
	ClassMarker      = "cloze"
	ClassDropdownBox = "cloze-dropdown"
	ClassHintBox     = "cloze-hint"
)

// SubAnswerSpec is one position of a question's sub-answer schema.
type SubAnswerSpec struct {
	Position   int      `json:"position"`
	Kind       Kind     `json:"kind"`
	Acceptable []string `json:"acceptable"` // normalized
}

// Source is the minimal view of a question needed to build its schema.
// Keep in sync with quiz.Question.
type Source struct {
	Content   string
	Gaps      [][]string // accepted answers, one list per gap
	Dropdowns []string   // correct option, one per dropdown
	Hints     []string   // correct word, one per hint slot
}

type marker struct {
	kind Kind
	text string
}

// Decompose scans the content for cloze markers in document order and pairs
// each with the next unused definition of its kind. Markers without a usable
// definition fall back to their own literal text.
func Decompose(src Source) []SubAnswerSpec {
	markers := scanMarkers(src.Content)
	specs := make([]SubAnswerSpec, 0, len(markers))
	var gi, di, hi int
	for i, m := range markers {
		var acc []string
		switch m.kind {
		case KindDropdown:
			if di < len(src.Dropdowns) {
				acc = normalizeSet([]string{src.Dropdowns[di]})
			}
			di++
		case KindHint:
			if hi < len(src.Hints) {
				acc = normalizeSet([]string{src.Hints[hi]})
			}
			hi++
		default:
			if gi < len(src.Gaps) {
				acc = normalizeSet(src.Gaps[gi])
			}
			gi++
		}
		if len(acc) == 0 {
			acc = normalizeSet([]string{m.text})
		}
		specs = append(specs, SubAnswerSpec{Position: i, Kind: m.kind, Acceptable: acc})
	}
	return specs
}

// CountMarkers reports how many cloze markers the content holds.
func CountMarkers(content string) int {
	return len(scanMarkers(content))
}

// BlankMarkers empties every marker, drops all of its attributes except
// class and tags it with data-position so the content can be shown to
// learners without the literal answers.
func BlankMarkers(content string) string {
	nodes := parseContent(content)
	if nodes == nil {
		return content
	}
	pos := 0
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, ClassMarker) {
			for c := n.FirstChild; c != nil; {
				next := c.NextSibling
				n.RemoveChild(c)
				c = next
			}
			kept := n.Attr[:0]
			for _, a := range n.Attr {
				if a.Namespace == "" && a.Key == "class" {
					kept = append(kept, a)
				}
			}
			n.Attr = append(kept, html.Attribute{Key: "data-position", Val: strconv.Itoa(pos)})
			pos++
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	var b strings.Builder
	for _, n := range nodes {
		rec(n)
		if err := html.Render(&b, n); err != nil {
			return content
		}
	}
	return b.String()
}

func parseContent(content string) []*html.Node {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), ctx)
	if err != nil {
		return nil
	}
	return nodes
}

func scanMarkers(content string) []marker {
	nodes := parseContent(content)
	var out []marker
	for _, n := range nodes {
		out = walk(n, KindGap, out)
	}
	return out
}

func walk(n *html.Node, container Kind, out []marker) []marker {
	if n.Type == html.ElementNode {
		switch {
		case hasClass(n, ClassDropdownBox):
			container = KindDropdown
		case hasClass(n, ClassHintBox):
			container = KindHint
		}
		if hasClass(n, ClassMarker) {
			return append(out, marker{kind: container, text: textContent(n)})
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = walk(c, container, out)
	}
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}
