package selector

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Locators holds the three generated locator strings. An empty field
// means the strategy could not derive a path for the element.
type Locators struct {
	Absolute string `json:"absolute"`
	Short    string `json:"short"`
	Smart    string `json:"smart"`
}

// maxTextLen caps the link/button text used in a contains() predicate.
// maxValueLen is the exclusive length limit for using a value attribute.
const (
	maxTextLen  = 30
	maxValueLen = 30
)

// Generate returns all three locators for el.
func Generate(el *html.Node) Locators {
	return Locators{
		Absolute: Absolute(el),
		Short:    Short(el),
		Smart:    Smart(el),
	}
}

// Absolute returns a positional path from the root, e.g.
// /html/body/div[2]/form[1]/input[3].
func Absolute(el *html.Node) string {
	return positional(el, false)
}

// Short returns //*[@id="..."] for the nearest element carrying an id
// (el itself included) followed by positional segments back down to el.
func Short(el *html.Node) string {
	return positional(el, true)
}

func positional(el *html.Node, anchorOnID bool) string {
	if !isElement(el) {
		return ""
	}
	if anchorOnID {
		if id := attr(el, "id"); id != "" {
			return "//*[@id=" + literal(id) + "]"
		}
	}
	if isRoot(el) {
		return "/html"
	}
	if el.DataAtom == atom.Body && isRoot(el.Parent) {
		return "/html/body"
	}
	if !isElement(el.Parent) {
		return ""
	}

	parent := positional(el.Parent, anchorOnID)
	if parent == "" {
		return ""
	}
	return parent + "/" + tagName(el) + "[" + strconv.Itoa(sameTagIndex(el)) + "]"
}

// Smart walks from el up to (not including) <html>, one segment per
// element. An id qualifies the segment and ends the walk.
func Smart(el *html.Node) string {
	var segments []string
	for cur := el; isElement(cur) && !isRoot(cur); cur = cur.Parent {
		segment, stop := smartSegment(cur)
		segments = append(segments, segment)
		if stop {
			break
		}
	}
	if len(segments) == 0 {
		return ""
	}

	// Collected leaf first.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return "//" + strings.Join(segments, "/")
}

func smartSegment(el *html.Node) (string, bool) {
	var b strings.Builder
	b.WriteString(tagName(el))

	if id := attr(el, "id"); id != "" {
		b.WriteString("[@id=" + literal(id) + "]")
		return b.String(), true
	}

	if classes := strings.Fields(attr(el, "class")); len(classes) > 0 {
		b.WriteString("[@class=" + literal(classes[0]) + "]")
	}

	if el.DataAtom == atom.A || el.DataAtom == atom.Button {
		if text := truncate(strings.TrimSpace(textContent(el)), maxTextLen); text != "" {
			b.WriteString("[contains(text(), " + literal(text) + ")]")
		}
	}

	switch name, typ, value := attr(el, "name"), attr(el, "type"), attr(el, "value"); {
	case name != "":
		b.WriteString("[@name=" + literal(name) + "]")
	case typ != "":
		b.WriteString("[@type=" + literal(typ) + "]")
	case value != "" && utf8.RuneCountInString(value) < maxValueLen:
		b.WriteString("[@value=" + literal(value) + "]")
	}

	return b.String(), false
}

// ─── Node Helpers ───────────────────────────────────────────────────────────

func isElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// isRoot reports whether n is the document element.
func isRoot(n *html.Node) bool {
	return isElement(n) && n.DataAtom == atom.Html && n.Parent != nil && n.Parent.Type == html.DocumentNode
}

func tagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

// sameTagIndex returns the 1-based position of n among its parent's
// element children with the same tag.
func sameTagIndex(n *html.Node) int {
	idx := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && strings.EqualFold(sib.Data, n.Data) {
			idx++
		}
	}
	return idx
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// literal quotes s as an XPath string literal. XPath 1.0 has no escapes,
// so values holding both quote kinds are built with concat().
func literal(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, `'`):
		return `'` + s + `'`
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
