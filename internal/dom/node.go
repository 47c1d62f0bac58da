package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Tag returns the lower-case tag name of an element, or "".
func Tag(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return n.Data
}

// Attr returns the value of attribute key and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether attribute key is present.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets attribute key, adding it if missing.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key if present.
func RemoveAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs
}

// ID returns the id attribute or "".
func ID(n *html.Node) string {
	v, _ := Attr(n, "id")
	return v
}

// Name returns the name attribute or "".
func Name(n *html.Node) string {
	v, _ := Attr(n, "name")
	return v
}

// Closest returns the first of n and its ancestors that matches.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n; c != nil; c = c.Parent {
		if IsElement(c) && match(c) {
			return c
		}
	}
	return nil
}

// Walk visits n and its element descendants in document order.
// Returning false from fn skips the children of that node.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if IsElement(n) && !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// Find returns the first descendant of root (excluding root) that matches.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	for c := root.FirstChild; c != nil && found == nil; c = c.NextSibling {
		Walk(c, func(n *html.Node) bool {
			if found != nil {
				return false
			}
			if match(n) {
				found = n
				return false
			}
			return true
		})
	}
	return found
}

// FindAll returns every element in the subtree rooted at n (including n)
// that matches, in document order.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(n, func(c *html.Node) bool {
		if match(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// TextContent concatenates all text descendants of n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return b.String()
}

// SetTextContent replaces the children of n with a single text node.
func SetTextContent(n *html.Node, text string) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}

// Describe returns a short label for logs, e.g. "button#save".
func Describe(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	if id := ID(n); id != "" {
		return n.Data + "#" + id
	}
	if name := Name(n); name != "" {
		return n.Data + "[name=" + name + "]"
	}
	return n.Data
}
