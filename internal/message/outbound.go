package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/connection"
	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
	"github.com/rickgao/hxsocket/internal/hxattr"
)

// Outbound turns element interactions into frames.
type Outbound struct {
	doc    *dom.Document
	bus    *events.Bus
	logger *slog.Logger
}

// NewOutbound creates the outbound pipeline.
func NewOutbound(doc *dom.Document, bus *events.Bus, logger *slog.Logger) *Outbound {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbound{doc: doc, bus: bus, logger: logger}
}

// Send runs the pipeline for elt through conn. submitter is the submit
// control of a form submission, or nil. The error is non-nil only when
// the value set cannot be serialized.
func (o *Outbound) Send(elt, submitter *html.Node, conn *connection.Connection) (Outcome, error) {
	socket := conn.Socket()
	logger := o.logger.With("conn_id", conn.ID, "element", dom.Describe(elt))

	params := o.Values(elt, submitter)
	headers := o.Headers(elt)

	cfg := &ConfigSendDetail{
		Parameters: params,
		Headers:    headers,
		Element:    elt,
		Submitter:  submitter,
		Socket:     socket,
	}
	if !o.bus.Trigger(elt, events.WSConfigSend, cfg) {
		logger.Debug("send cancelled", "event", events.WSConfigSend)
		return OutcomeCancelledConfig, nil
	}

	msg, err := Encode(cfg.Parameters, cfg.Headers)
	if err != nil {
		logger.Error("cannot serialize message", "error", err)
		return OutcomeDropped, err
	}

	before := &BeforeSendDetail{Message: msg, Element: elt, Socket: socket}
	if !o.bus.Trigger(elt, events.WSBeforeSend, before) {
		logger.Debug("send cancelled", "event", events.WSBeforeSend)
		return OutcomeCancelledBeforeSend, nil
	}

	delivery := socket.Send(before.Message, elt)
	logger.Debug("message submitted", "delivery", delivery, "bytes", len(before.Message))

	o.bus.Notify(elt, events.WSAfterSend, &AfterSendDetail{
		Message:  before.Message,
		Element:  elt,
		Socket:   socket,
		Delivery: delivery,
	})

	return outcomeOf(delivery), nil
}

// Values collects the parameters for an interaction on elt: its form
// values plus any hx-vals declared on it or its ancestors.
func (o *Outbound) Values(elt, submitter *html.Node) dom.Values {
	vals := dom.CollectValues(elt, submitter)

	extra, err := hxattr.ResolveVals(elt)
	if err != nil {
		o.logger.Warn("ignoring hx-vals", "element", dom.Describe(elt), "error", err)
		return vals
	}
	vals.Merge(extra)
	return vals
}

// Headers builds the contextual headers for elt.
func (o *Outbound) Headers(elt *html.Node) Headers {
	return Headers{
		HeaderRequest:     "true",
		HeaderCurrentURL:  o.doc.Location(),
		HeaderTrigger:     dom.ID(elt),
		HeaderTriggerName: dom.Name(elt),
		HeaderTarget:      dom.ID(hxattr.ResolveTarget(o.doc, elt)),
	}
}

// Encode serializes params with headers nested under HeadersKey. HTML
// characters are written as is.
func Encode(params dom.Values, headers Headers) (string, error) {
	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload[HeadersKey] = headers

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
