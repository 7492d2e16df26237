package signaling

// Message is the envelope for every frame exchanged with a client, in both
// directions.
type Message struct {
	Type    string `json:"type" msgpack:"type"`
	Room    string `json:"room,omitempty" msgpack:"room,omitempty"`
	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
	Error   string `json:"error,omitempty" msgpack:"error,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over the wire.
	client *Client
}

// Client to server message types.
const (
	TypeCreateRoom = "createRoom"
	TypeJoinRoom   = "joinRoom"
	TypeLeaveRoom  = "leaveRoom"
)

// Message types relayed between partners, valid in both directions.
const (
	TypeChatMessage = "chatMessage"
	TypeTyping      = "typing"
	TypeStopTyping  = "stopTyping"
)

// Server to client message types.
const (
	TypeRoomCreated       = "roomCreated"
	TypeRoomJoined        = "roomJoined"
	TypeUserJoined        = "userJoined"
	TypeUserLeft          = "userLeft"
	TypeWaitingForPartner = "waitingForPartner"
	TypeRoomExpired       = "roomExpired"
	TypeError             = "error"
)
