package memdom

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tree helpers below are meant for Handler and Mutate callbacks, which
// already hold the document lock.

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func HasClass(n *html.Node, class string) bool {
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	v, _ := Attr(n, "class")
	SetAttr(n, "class", strings.TrimSpace(v+" "+class))
}

func RemoveClass(n *html.Node, class string) {
	v, _ := Attr(n, "class")
	var kept []string
	for _, c := range strings.Fields(v) {
		if c != class {
			kept = append(kept, c)
		}
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// Show and Hide toggle the hidden attribute.
func Show(n *html.Node) { RemoveAttr(n, "hidden") }
func Hide(n *html.Node) { SetAttr(n, "hidden", "") }

// Closest returns the nearest ancestor-or-self carrying class.
func Closest(n *html.Node, class string) *html.Node {
	for a := n; a != nil; a = a.Parent {
		if a.Type == html.ElementNode && HasClass(a, class) {
			return a
		}
	}
	return nil
}

// First returns the first descendant of root matching css, or nil.
func First(root *html.Node, css string) *html.Node {
	if all := All(root, css); len(all) > 0 {
		return all[0]
	}
	return nil
}

// All returns the descendants of root matching css in document order.
func All(root *html.Node, css string) []*html.Node {
	var out []*html.Node
	for _, n := range cascadia.MustCompile(css).MatchAll(root) {
		if n != root {
			out = append(out, n)
		}
	}
	return out
}

// Detach removes n from the tree. Existing handles to n become stale.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// AppendHTML parses src in the context of parent and appends the result.
func AppendHTML(parent *html.Node, src string) []*html.Node {
	nodes := fragment(parent, src)
	for _, c := range nodes {
		parent.AppendChild(c)
	}
	return nodes
}

// ReplaceHTML swaps old for the nodes parsed from src. old becomes stale.
func ReplaceHTML(old *html.Node, src string) []*html.Node {
	parent := old.Parent
	nodes := fragment(parent, src)
	for _, c := range nodes {
		parent.InsertBefore(c, old)
	}
	parent.RemoveChild(old)
	return nodes
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// TextOf returns the visible text below n with whitespace collapsed.
func TextOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
			return
		}
		if c.Type == html.ElementNode && c != n && !isVisible(c) {
			return
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			collect(cc)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func fragment(parent *html.Node, src string) []*html.Node {
	context := parent
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		panic("memdom: fragment: " + err.Error())
	}
	return nodes
}
