package message

import (
	"log/slog"
	"time"

	"github.com/rickgao/hxsocket/internal/connection"
	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
)

// Inbound applies received frames to the document.
type Inbound struct {
	doc    *dom.Document
	bus    *events.Bus
	logger *slog.Logger
}

// NewInbound creates the inbound pipeline.
func NewInbound(doc *dom.Document, bus *events.Bus, logger *slog.Logger) *Inbound {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbound{doc: doc, bus: bus, logger: logger}
}

// HandleMessage runs the pipeline for one frame received on conn.
func (in *Inbound) HandleMessage(conn *connection.Connection, data string, receivedAt time.Time) {
	detail := &MessageDetail{
		Message:    data,
		Element:    conn.Owner,
		Socket:     conn.Socket(),
		ReceivedAt: receivedAt,
	}

	if in.bus.Trigger(conn.Owner, events.WSBeforeMessage, detail) {
		detail.Result, detail.Err = in.doc.SwapOOB(data)
		if detail.Err != nil {
			in.logger.Error("swap failed", "conn_id", conn.ID, "error", detail.Err)
		} else {
			in.logger.Debug("message swapped",
				"conn_id", conn.ID,
				"swapped", detail.Result.Swapped,
				"missing", detail.Result.Missing,
			)
		}
	} else {
		detail.Cancelled = true
		in.logger.Debug("message swap cancelled", "conn_id", conn.ID)
	}

	in.bus.Notify(conn.Owner, events.WSAfterMessage, detail)
}

var _ connection.MessageHandler = (*Inbound)(nil)
