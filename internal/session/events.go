package session

// EventType names an outbound event addressed to a single connection.
type EventType string

// Outbound event vocabulary.
const (
	EventRoomCreated       EventType = "roomCreated"
	EventRoomJoined        EventType = "roomJoined"
	EventUserJoined        EventType = "userJoined"
	EventChatMessage       EventType = "chatMessage"
	EventTyping            EventType = "typing"
	EventStopTyping        EventType = "stopTyping"
	EventUserLeft          EventType = "userLeft"
	EventWaitingForPartner EventType = "waitingForPartner"
	EventRoomExpired       EventType = "roomExpired"
	EventError             EventType = "error"
)

// Event is one notification produced by the Manager.
type Event struct {
	Type EventType

	// Code is set on roomCreated and roomJoined.
	Code string

	// Text carries the chat payload (chatMessage) or the error message (error).
	Text string
}

// Notifier delivers events to connections.
//
// The Manager calls Notify while holding its lock, so implementations must not
// block and must not call back into the Manager. Dropping an event for a slow
// or vanished connection is acceptable.
type Notifier interface {
	Notify(conn ConnID, ev Event)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(conn ConnID, ev Event)

// Notify calls f(conn, ev).
func (f NotifierFunc) Notify(conn ConnID, ev Event) { f(conn, ev) }
