package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts Messages to and from WebSocket frames.
type Codec interface {
	Name() string

	// FrameType is the websocket message type used for outbound frames.
	FrameType() int

	Marshal(msg *Message) ([]byte, error)
	Unmarshal(data []byte, msg *Message) error
}

// Available codecs. JSON travels in text frames, msgpack in binary frames.
var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName resolves the codec query parameter. Empty selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// codecForFrame picks the decoder for an inbound frame, so a client may mix
// text and binary frames regardless of the codec it negotiated.
func codecForFrame(frameType int) (Codec, bool) {
	switch frameType {
	case websocket.TextMessage:
		return JSON, true
	case websocket.BinaryMessage:
		return Msgpack, true
	}
	return nil, false
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Marshal(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg *Message) error {
	return json.Unmarshal(data, msg)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Marshal(msg *Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (msgpackCodec) Unmarshal(data []byte, msg *Message) error {
	return msgpack.Unmarshal(data, msg)
}
