package dom

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group such as "form, div#chat.room"
// or "#log > p.last". The zero value matches nothing.
type Selector struct {
	group cascadia.SelectorGroup
}

// ParseSelector compiles a selector group.
func ParseSelector(sel string) (Selector, error) {
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return Selector{}, err
	}
	return Selector{group: group}, nil
}

// Compile is ParseSelector for markup-supplied selectors: an invalid selector
// never matches.
func Compile(sel string) Selector {
	s, _ := ParseSelector(sel)
	return s
}

// Match reports whether n is an element matching any selector in the group.
func (s Selector) Match(n *html.Node) bool {
	if !IsElement(n) || len(s.group) == 0 {
		return false
	}
	return s.group.Match(n)
}
