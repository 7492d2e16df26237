package signaling

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]Codec{"": JSON, "json": JSON, "msgpack": Msgpack} {
		got, err := CodecByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := CodecByName("protobuf")
	assert.EqualError(t, err, `unknown codec "protobuf"`)
}

func TestJSONWireFormat(t *testing.T) {
	data, err := JSON.Marshal(&Message{Type: TypeChatMessage, Message: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chatMessage","message":"hi"}`, string(data))

	data, err = JSON.Marshal(&Message{Type: TypeUserJoined})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"userJoined"}`, string(data))
}

func TestMsgpackWireFormat(t *testing.T) {
	data, err := Msgpack.Marshal(&Message{Type: TypeRoomCreated, Room: "4821"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &raw))
	assert.Equal(t, map[string]any{"type": "roomCreated", "room": "4821"}, raw)
}

func TestCodecForFrame(t *testing.T) {
	c, ok := codecForFrame(websocket.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = codecForFrame(websocket.BinaryMessage)
	require.True(t, ok)
	assert.Equal(t, "msgpack", c.Name())

	_, ok = codecForFrame(websocket.PingMessage)
	assert.False(t, ok)
}
