// Package view defines the typed display tree the activity page is rendered from.
// Nodes carry untrusted text as plain strings; escaping happens at render time.
package view

import "strings"

// Tags used by the activity page. Renderers only emit tags from this set.
const (
	TagDiv    = "div"
	TagH4     = "h4"
	TagH5     = "h5"
	TagP      = "p"
	TagStrong = "strong"
	TagEm     = "em"
	TagUL     = "ul"
	TagLI     = "li"
	TagSpan   = "span"
	TagButton = "button"
)

// TagText is a bare text run with no element.
const TagText = "#text"

// Attr is a data attribute on a node (rendered as data-<Name>).
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is one element of the display tree.
type Node struct {
	Tag      string  `json:"tag"`
	Class    string  `json:"class,omitempty"`
	Text     string  `json:"text,omitempty"`
	Data     []Attr  `json:"data,omitempty"`
	Control  string  `json:"control,omitempty"` // id of the event handler bound to this node
	Children []*Node `json:"children,omitempty"`
}

// El builds an element node.
func El(tag, class string, children ...*Node) *Node {
	return &Node{Tag: tag, Class: class, Children: children}
}

// TextNode builds a bare text run.
func TextNode(s string) *Node {
	return &Node{Tag: TagText, Text: s}
}

// WithText builds an element holding a single text run.
func WithText(tag, class, text string) *Node {
	return &Node{Tag: tag, Class: class, Text: text}
}

// DataValue returns the value of data attribute name.
func (n *Node) DataValue(name string) (string, bool) {
	for _, a := range n.Data {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// FindByClass returns every node in the tree whose class list contains class.
func (n *Node) FindByClass(class string) []*Node {
	var out []*Node
	n.Walk(func(x *Node) {
		for _, c := range strings.Fields(x.Class) {
			if c == class {
				out = append(out, x)
				return
			}
		}
	})
	return out
}

// TextContent concatenates all text in the tree.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(x *Node) {
		b.WriteString(x.Text)
	})
	return b.String()
}

// Option is one entry of a select control.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
