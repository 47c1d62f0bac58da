package dom

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Errors
var (
	ErrNotInDocument = errors.New("node is not in the document")
	ErrInvalidURL    = errors.New("invalid document location")
)

// Observer is notified about an element entering or leaving the document.
type Observer func(n *html.Node)

type observerEntry struct {
	id int
	fn Observer
}

// Document is a parsed HTML page with a current location.
type Document struct {
	root     *html.Node
	location *url.URL
	logger   *slog.Logger

	nextObserver int
	onRemove     []observerEntry
	onInsert     []observerEntry
}

// Parse reads an HTML page. location is the page URL (e.g.
// http://localhost:8080/chat) used for relative socket URLs and the
// HX-Current-URL header.
func Parse(r io.Reader, location string, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := parseLocation(location)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return &Document{
		root:     root,
		location: loc,
		logger:   logger,
	}, nil
}

// ParseString is Parse over a string.
func ParseString(src, location string, logger *slog.Logger) (*Document, error) {
	return Parse(strings.NewReader(src), location, logger)
}

func parseLocation(location string) (*url.URL, error) {
	if location == "" {
		return &url.URL{}, nil
	}
	loc, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return loc, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element, or the root if there is none.
func (d *Document) Body() *html.Node {
	if body := Find(d.root, func(n *html.Node) bool { return n.Data == "body" }); body != nil {
		return body
	}
	return d.root
}

// Location returns the current document URL as a string.
func (d *Document) Location() string {
	return d.location.String()
}

// LocationURL returns a copy of the current document URL.
func (d *Document) LocationURL() *url.URL {
	u := *d.location
	return &u
}

// SetLocation changes the current document URL.
func (d *Document) SetLocation(location string) error {
	loc, err := parseLocation(location)
	if err != nil {
		return err
	}
	d.location = loc
	return nil
}

// GetElementByID returns the first element with the given id.
func (d *Document) GetElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return Find(d.root, func(n *html.Node) bool { return ID(n) == id })
}

// QuerySelector returns the first element matching sel.
func (d *Document) QuerySelector(sel string) *html.Node {
	s := Compile(sel)
	return Find(d.root, s.Match)
}

// QuerySelectorAll returns every element matching sel.
func (d *Document) QuerySelectorAll(sel string) []*html.Node {
	s := Compile(sel)
	return FindAll(d.root, s.Match)
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if c == d.root {
			return true
		}
	}
	return false
}

// OnRemove registers an observer called once for every element leaving
// the document, descendants included and visited before their ancestors.
// The returned func unregisters it.
func (d *Document) OnRemove(fn Observer) func() {
	return d.addObserver(&d.onRemove, fn)
}

// OnInsert registers an observer called for every top-level node inserted
// by the document (not its descendants).
func (d *Document) OnInsert(fn Observer) func() {
	return d.addObserver(&d.onInsert, fn)
}

func (d *Document) addObserver(list *[]observerEntry, fn Observer) func() {
	d.nextObserver++
	id := d.nextObserver
	*list = append(*list, observerEntry{id: id, fn: fn})

	return func() {
		for i, e := range *list {
			if e.id == id {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// Remove detaches n from the document and notifies removal observers.
func (d *Document) Remove(n *html.Node) error {
	if !d.Contains(n) || n == d.root {
		return ErrNotInDocument
	}
	n.Parent.RemoveChild(n)
	d.notifyRemoved(n)
	return nil
}

// InsertBefore inserts n as a child of parent before ref (nil appends) and
// notifies insertion observers. n must be detached.
func (d *Document) InsertBefore(parent, n, ref *html.Node) error {
	if !d.Contains(parent) {
		return ErrNotInDocument
	}
	parent.InsertBefore(n, ref)
	d.notifyInserted(n)
	return nil
}

// AppendChild appends detached n to parent.
func (d *Document) AppendChild(parent, n *html.Node) error {
	return d.InsertBefore(parent, n, nil)
}

// Replace puts nodes where old was and removes old.
func (d *Document) Replace(old *html.Node, nodes []*html.Node) error {
	if !d.Contains(old) || old == d.root {
		return ErrNotInDocument
	}
	parent := old.Parent
	for _, n := range nodes {
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
	d.notifyRemoved(old)
	for _, n := range nodes {
		d.notifyInserted(n)
	}
	return nil
}

// ReplaceChildren swaps the children of parent for nodes.
func (d *Document) ReplaceChildren(parent *html.Node, nodes []*html.Node) error {
	if !d.Contains(parent) {
		return ErrNotInDocument
	}
	var removed []*html.Node
	for parent.FirstChild != nil {
		c := parent.FirstChild
		parent.RemoveChild(c)
		removed = append(removed, c)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	for _, c := range removed {
		d.notifyRemoved(c)
	}
	for _, n := range nodes {
		d.notifyInserted(n)
	}
	return nil
}

func (d *Document) notifyRemoved(n *html.Node) {
	if len(d.onRemove) == 0 {
		return
	}
	observers := append([]observerEntry(nil), d.onRemove...)
	walkPost(n, func(c *html.Node) {
		for _, o := range observers {
			o.fn(c)
		}
	})
}

// walkPost visits the elements under n children first, so observers of a
// descendant still see its removed ancestors intact.
func walkPost(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walkPost(c, fn)
		c = next
	}
	if IsElement(n) {
		fn(n)
	}
}

func (d *Document) notifyInserted(n *html.Node) {
	if !IsElement(n) {
		return
	}
	observers := append([]observerEntry(nil), d.onInsert...)
	for _, o := range observers {
		o.fn(n)
	}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document.
func (d *Document) String() string {
	var b strings.Builder
	_ = d.Render(&b)
	return b.String()
}
