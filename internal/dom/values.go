package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Values is the parameter set sent for an interaction. Each entry is a
// string, or a []string when a name repeats.
type Values map[string]any

// Add appends value under name, turning the entry into a list on repeat.
func (v Values) Add(name, value string) {
	switch cur := v[name].(type) {
	case nil:
		v[name] = value
	case string:
		v[name] = []string{cur, value}
	case []string:
		v[name] = append(cur, value)
	default:
		v[name] = []any{cur, value}
	}
}

// Set replaces the entry for name.
func (v Values) Set(name string, value any) {
	v[name] = value
}

// Get returns the first string value for name.
func (v Values) Get(name string) string {
	switch cur := v[name].(type) {
	case string:
		return cur
	case []string:
		if len(cur) > 0 {
			return cur[0]
		}
	}
	return ""
}

// Del removes name.
func (v Values) Del(name string) {
	delete(v, name)
}

// Merge copies every entry of other into v, overwriting.
func (v Values) Merge(other map[string]any) {
	for k, val := range other {
		v[k] = val
	}
}

// IsForm reports whether n is a form element.
func IsForm(n *html.Node) bool {
	return Tag(n) == "form"
}

// IsField reports whether n is a form field (input, select, textarea, button).
func IsField(n *html.Node) bool {
	switch Tag(n) {
	case "input", "select", "textarea", "button":
		return true
	}
	return false
}

// IsSubmitControl reports whether n submits its form when clicked.
func IsSubmitControl(n *html.Node) bool {
	switch Tag(n) {
	case "button":
		t, ok := Attr(n, "type")
		return !ok || strings.EqualFold(t, "submit")
	case "input":
		t, _ := Attr(n, "type")
		return strings.EqualFold(t, "submit") || strings.EqualFold(t, "image")
	}
	return false
}

// CollectValues gathers the values an interaction on elt sends.
//
// The fields of elt's closest form (elt itself when it is a form) are always
// included. Submit controls never contribute as ordinary fields: only the
// control that triggered the interaction, or the submitter of a form
// submission, adds its own name/value pair. A field outside any form
// contributes its own value.
func CollectValues(elt, submitter *html.Node) Values {
	vals := Values{}

	form := Closest(elt, IsForm)
	if form != nil {
		for _, f := range FindAll(form, IsField) {
			addField(vals, f)
		}
	} else if IsField(elt) {
		addField(vals, elt)
	}

	if IsSubmitControl(elt) {
		addPair(vals, elt)
	}
	if submitter != nil && submitter != elt && IsSubmitControl(submitter) {
		addPair(vals, submitter)
	}

	return vals
}

// addField adds a field's value if it is a successful control.
func addField(vals Values, f *html.Node) {
	name := Name(f)
	if name == "" || HasAttr(f, "disabled") {
		return
	}

	switch Tag(f) {
	case "input":
		t, _ := Attr(f, "type")
		switch strings.ToLower(t) {
		case "submit", "image", "button", "reset", "file":
			return
		case "checkbox", "radio":
			if !HasAttr(f, "checked") {
				return
			}
			v, ok := Attr(f, "value")
			if !ok {
				v = "on"
			}
			vals.Add(name, v)
		default:
			v, _ := Attr(f, "value")
			vals.Add(name, v)
		}
	case "textarea":
		vals.Add(name, TextContent(f))
	case "select":
		for _, v := range selectedOptions(f) {
			vals.Add(name, v)
		}
	}
}

// addPair adds the name/value of a submit control.
func addPair(vals Values, n *html.Node) {
	name := Name(n)
	if name == "" || HasAttr(n, "disabled") {
		return
	}
	v, _ := Attr(n, "value")
	vals.Add(name, v)
}

func selectedOptions(sel *html.Node) []string {
	options := FindAll(sel, func(n *html.Node) bool { return Tag(n) == "option" })
	var out []string
	for _, o := range options {
		if HasAttr(o, "selected") {
			out = append(out, optionValue(o))
		}
	}
	if len(out) == 0 && !HasAttr(sel, "multiple") && len(options) > 0 {
		out = append(out, optionValue(options[0]))
	}
	return out
}

func optionValue(o *html.Node) string {
	if v, ok := Attr(o, "value"); ok {
		return v
	}
	return strings.TrimSpace(TextContent(o))
}

// Value returns the current value of a field.
func Value(f *html.Node) string {
	switch Tag(f) {
	case "textarea":
		return TextContent(f)
	case "select":
		if opts := selectedOptions(f); len(opts) > 0 {
			return opts[0]
		}
		return ""
	}
	v, _ := Attr(f, "value")
	return v
}

// SetValue changes the current value of a field the way user input would.
func SetValue(f *html.Node, value string) {
	switch Tag(f) {
	case "textarea":
		SetTextContent(f, value)
	case "select":
		for _, o := range FindAll(f, func(n *html.Node) bool { return Tag(n) == "option" }) {
			if optionValue(o) == value {
				SetAttr(o, "selected", "")
			} else {
				RemoveAttr(o, "selected")
			}
		}
	default:
		t, _ := Attr(f, "type")
		switch strings.ToLower(t) {
		case "checkbox", "radio":
			if value == "" {
				RemoveAttr(f, "checked")
			} else {
				SetAttr(f, "checked", "")
			}
		default:
			SetAttr(f, "value", value)
		}
	}
}
