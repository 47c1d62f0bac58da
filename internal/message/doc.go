// Package message implements the outbound and inbound message pipelines.
//
// Outbound: an interaction on a send element is turned into a value set
// and contextual headers, offered to htmx:wsConfigSend listeners,
// serialized to JSON, offered to htmx:wsBeforeSend listeners and handed to
// the connection's queue-or-send gate. htmx:wsAfterSend follows.
//
// Inbound: a text frame is offered to htmx:wsBeforeMessage listeners and,
// unless cancelled, applied to the document as an out-of-band swap.
// htmx:wsAfterMessage always follows.
//
// Both pipelines run on the event loop.
package message
