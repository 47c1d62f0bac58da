package message

import (
	"errors"
	"time"

	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/connection"
	"github.com/rickgao/hxsocket/internal/dom"
)

// Errors
var (
	ErrSerialize = errors.New("serialize message")
)

// HeadersKey is the reserved payload key that carries the headers.
const HeadersKey = "HEADERS"

// Header names.
const (
	HeaderRequest     = "HX-Request"
	HeaderCurrentURL  = "HX-Current-URL"
	HeaderTrigger     = "HX-Trigger"
	HeaderTriggerName = "HX-Trigger-Name"
	HeaderTarget      = "HX-Target"
)

// Outcome is the result of running the outbound pipeline once.
type Outcome int

const (
	OutcomeSent                Outcome = iota // Written to the socket
	OutcomeQueued                             // Waiting for the connection to open
	OutcomeDropped                            // Connection closed
	OutcomeFailed                             // Socket write failed
	OutcomeCancelledConfig                    // htmx:wsConfigSend cancelled
	OutcomeCancelledBeforeSend                // htmx:wsBeforeSend cancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeQueued:
		return "queued"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelledConfig:
		return "cancelled-config-send"
	case OutcomeCancelledBeforeSend:
		return "cancelled-before-send"
	}
	return "unknown"
}

// Cancelled reports whether a listener aborted the send.
func (o Outcome) Cancelled() bool {
	return o == OutcomeCancelledConfig || o == OutcomeCancelledBeforeSend
}

func outcomeOf(d connection.Delivery) Outcome {
	switch d {
	case connection.Sent:
		return OutcomeSent
	case connection.Queued:
		return OutcomeQueued
	case connection.Failed:
		return OutcomeFailed
	}
	return OutcomeDropped
}

// Headers are the contextual fields nested under HeadersKey.
type Headers map[string]string

// ConfigSendDetail is the detail of htmx:wsConfigSend. Listeners may edit
// Parameters and Headers in place.
type ConfigSendDetail struct {
	Parameters dom.Values
	Headers    Headers
	Element    *html.Node // Triggering element
	Submitter  *html.Node // Submit control, for form submissions
	Socket     *connection.SocketWrapper
}

// BeforeSendDetail is the detail of htmx:wsBeforeSend. Listeners may
// replace Message.
type BeforeSendDetail struct {
	Message string
	Element *html.Node
	Socket  *connection.SocketWrapper
}

// AfterSendDetail is the detail of htmx:wsAfterSend.
type AfterSendDetail struct {
	Message  string
	Element  *html.Node
	Socket   *connection.SocketWrapper
	Delivery connection.Delivery
}

// MessageDetail is the detail of htmx:wsBeforeMessage and
// htmx:wsAfterMessage. Result and Err are filled in for the latter.
type MessageDetail struct {
	Message    string
	Element    *html.Node // Connection owner
	Socket     *connection.SocketWrapper
	ReceivedAt time.Time

	Cancelled bool
	Result    dom.SwapResult
	Err       error
}
