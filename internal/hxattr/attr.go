package hxattr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/dom"
)

// Attribute names.
const (
	Connect = "ws-connect"
	Send    = "ws-send"
	Legacy  = "hx-ws"
	Target  = "hx-target"
	Trigger = "hx-trigger"
	Vals    = "hx-vals"
)

// Errors
var (
	ErrBadURL  = errors.New("invalid socket url")
	ErrBadVals = errors.New("invalid hx-vals")
)

// IsConnectElement reports whether n declares a socket connection.
func IsConnectElement(n *html.Node) bool {
	if dom.HasAttr(n, Connect) {
		return true
	}
	_, ok := legacy(n, "connect")
	return ok
}

// IsSendElement reports whether n is marked to send on trigger.
func IsSendElement(n *html.Node) bool {
	if dom.HasAttr(n, Send) {
		return true
	}
	_, ok := legacy(n, "send")
	return ok
}

// ConnectURLs resolves the endpoints declared on n against the document
// location. Values are comma-separated; a leading "/" is resolved against
// the location host with ws/wss chosen from http/https, and http(s) URLs
// become ws(s). Empty entries are skipped.
func ConnectURLs(n *html.Node, location *url.URL) ([]string, error) {
	raw, ok := dom.Attr(n, Connect)
	if !ok {
		raw, _ = legacy(n, "connect")
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		u, err := resolveSocketURL(part, location)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func resolveSocketURL(raw string, location *url.URL) (string, error) {
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		if location == nil || location.Host == "" {
			return "", fmt.Errorf("%w: %q needs a document location", ErrBadURL, raw)
		}
		scheme := "ws"
		if location.Scheme == "https" || location.Scheme == "wss" {
			scheme = "wss"
		}
		return scheme + "://" + location.Host + raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme in %q", ErrBadURL, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrBadURL, raw)
	}
	return u.String(), nil
}

// legacy reads the older hx-ws="connect:/url, send" form.
func legacy(n *html.Node, key string) (string, bool) {
	v, ok := dom.Attr(n, Legacy)
	if !ok {
		return "", false
	}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		k, val, _ := strings.Cut(part, ":")
		if strings.TrimSpace(k) == key {
			return strings.TrimSpace(val), true
		}
	}
	return "", false
}

// SendReference returns the id named by ws-send="#id", if any.
func SendReference(n *html.Node) string {
	v, _ := dom.Attr(n, Send)
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "#") {
		return v[1:]
	}
	return ""
}

// inherited returns the value of key on n or its closest ancestor having
// it, along with the element carrying it.
func inherited(n *html.Node, key string) (string, *html.Node) {
	holder := dom.Closest(n, func(c *html.Node) bool { return dom.HasAttr(c, key) })
	if holder == nil {
		return "", nil
	}
	v, _ := dom.Attr(holder, key)
	return v, holder
}

// ResolveTarget returns the swap target of n from its (inherited)
// hx-target, or nil when none is declared. Supported forms: "this", "#id",
// "closest <sel>", "find <sel>", "next <sel>", "previous <sel>" and a
// plain selector.
func ResolveTarget(doc *dom.Document, n *html.Node) *html.Node {
	v, holder := inherited(n, Target)
	v = strings.TrimSpace(v)
	if holder == nil || v == "" {
		return nil
	}

	switch {
	case v == "this":
		return holder
	case strings.HasPrefix(v, "closest "):
		sel := dom.Compile(strings.TrimPrefix(v, "closest "))
		return dom.Closest(n, sel.Match)
	case strings.HasPrefix(v, "find "):
		sel := dom.Compile(strings.TrimPrefix(v, "find "))
		return dom.Find(n, sel.Match)
	case strings.HasPrefix(v, "next "):
		sel := dom.Compile(strings.TrimPrefix(v, "next "))
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if sel.Match(s) {
				return s
			}
		}
		return nil
	case strings.HasPrefix(v, "previous "):
		sel := dom.Compile(strings.TrimPrefix(v, "previous "))
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if sel.Match(s) {
				return s
			}
		}
		return nil
	case strings.HasPrefix(v, "#") && !strings.ContainsAny(v[1:], ".[#:, >+~"):
		return doc.GetElementByID(v[1:])
	default:
		return doc.QuerySelector(v)
	}
}

// TriggerSpec returns the raw hx-trigger value declared on n.
func TriggerSpec(n *html.Node) string {
	v, _ := dom.Attr(n, Trigger)
	return strings.TrimSpace(v)
}

// ResolveVals merges hx-vals JSON objects from the root down to n, so the
// closest declaration wins.
func ResolveVals(n *html.Node) (map[string]any, error) {
	var chain []*html.Node
	for c := n; c != nil; c = c.Parent {
		if dom.HasAttr(c, Vals) {
			chain = append(chain, c)
		}
	}

	out := map[string]any{}
	for i := len(chain) - 1; i >= 0; i-- {
		raw, _ := dom.Attr(chain[i], Vals)
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, "{") {
			raw = "{" + raw + "}"
		}
		var vals map[string]any
		if err := json.Unmarshal([]byte(raw), &vals); err != nil {
			return nil, fmt.Errorf("%w on %s: %v", ErrBadVals, dom.Describe(chain[i]), err)
		}
		for k, v := range vals {
			out[k] = v
		}
	}
	return out, nil
}
