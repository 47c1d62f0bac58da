package events

// Extension event names.
const (
	WSConnecting    = "htmx:wsConnecting"
	WSOpen          = "htmx:wsOpen"
	WSClose         = "htmx:wsClose"
	WSConfigSend    = "htmx:wsConfigSend"
	WSBeforeSend    = "htmx:wsBeforeSend"
	WSAfterSend     = "htmx:wsAfterSend"
	WSBeforeMessage = "htmx:wsBeforeMessage"
	WSAfterMessage  = "htmx:wsAfterMessage"
)

// Interaction event names dispatched by the trigger package.
const (
	Click  = "click"
	Submit = "submit"
	Change = "change"
)

// Lifecycle lists the connection lifecycle events.
var Lifecycle = []string{WSConnecting, WSOpen, WSClose}

// All lists every extension event.
var All = []string{
	WSConnecting, WSOpen, WSClose,
	WSConfigSend, WSBeforeSend, WSAfterSend,
	WSBeforeMessage, WSAfterMessage,
}
