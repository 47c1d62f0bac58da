package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Swap strategies accepted by hx-swap-oob.
const (
	SwapOuterHTML   = "outerHTML"
	SwapInnerHTML   = "innerHTML"
	SwapBeforeBegin = "beforebegin"
	SwapAfterBegin  = "afterbegin"
	SwapBeforeEnd   = "beforeend"
	SwapAfterEnd    = "afterend"
	SwapDelete      = "delete"
	SwapNone        = "none"
)

// SwapOOBAttr marks a fragment element with its swap strategy.
const SwapOOBAttr = "hx-swap-oob"

// SwapResult summarizes an out-of-band swap.
type SwapResult struct {
	Swapped  int      // Elements applied to the document
	Missing  []string // Ids with no matching element
	Skipped  int      // Top-level nodes without an id
	Strategy []string // Strategy used per swapped element, in order
}

// SwapOOB merges an HTML fragment into the document. Every top-level
// element is matched to a document element by id (or by the selector in
// "strategy:selector") and applied with its hx-swap-oob strategy, which
// defaults to outerHTML.
func (d *Document) SwapOOB(fragment string) (SwapResult, error) {
	var res SwapResult

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return res, fmt.Errorf("parse fragment: %w", err)
	}

	for _, n := range nodes {
		if !IsElement(n) {
			continue
		}

		strategy, selector := parseOOB(n)
		RemoveAttr(n, SwapOOBAttr)

		var target *html.Node
		if selector != "" {
			target = d.QuerySelector(selector)
		} else if id := ID(n); id != "" {
			target = d.GetElementByID(id)
		} else {
			res.Skipped++
			continue
		}

		if target == nil {
			key := selector
			if key == "" {
				key = ID(n)
			}
			res.Missing = append(res.Missing, key)
			d.logger.Debug("oob swap target not found", "target", key)
			continue
		}

		if err := d.apply(strategy, target, n); err != nil {
			return res, err
		}
		res.Swapped++
		res.Strategy = append(res.Strategy, strategy)
	}

	return res, nil
}

func parseOOB(n *html.Node) (strategy, selector string) {
	v, _ := Attr(n, SwapOOBAttr)
	v = strings.TrimSpace(v)
	if s, sel, ok := strings.Cut(v, ":"); ok {
		v, selector = strings.TrimSpace(s), strings.TrimSpace(sel)
	}
	if v == "" || v == "true" {
		v = SwapOuterHTML
	}
	return v, selector
}

// apply performs one swap. Non-outerHTML strategies use the content of the
// fragment element rather than the element itself.
func (d *Document) apply(strategy string, target, n *html.Node) error {
	switch strategy {
	case SwapOuterHTML:
		return d.Replace(target, []*html.Node{n})
	case SwapInnerHTML:
		return d.ReplaceChildren(target, detachChildren(n))
	case SwapBeforeBegin:
		if target.Parent == nil {
			return ErrNotInDocument
		}
		for _, c := range detachChildren(n) {
			if err := d.InsertBefore(target.Parent, c, target); err != nil {
				return err
			}
		}
	case SwapAfterBegin:
		first := target.FirstChild
		for _, c := range detachChildren(n) {
			if err := d.InsertBefore(target, c, first); err != nil {
				return err
			}
		}
	case SwapBeforeEnd:
		for _, c := range detachChildren(n) {
			if err := d.AppendChild(target, c); err != nil {
				return err
			}
		}
	case SwapAfterEnd:
		if target.Parent == nil {
			return ErrNotInDocument
		}
		next := target.NextSibling
		for _, c := range detachChildren(n) {
			if err := d.InsertBefore(target.Parent, c, next); err != nil {
				return err
			}
		}
	case SwapDelete:
		return d.Remove(target)
	case SwapNone:
	default:
		return fmt.Errorf("unknown swap strategy %q", strategy)
	}
	return nil
}

func detachChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for n.FirstChild != nil {
		c := n.FirstChild
		n.RemoveChild(c)
		out = append(out, c)
	}
	return out
}
