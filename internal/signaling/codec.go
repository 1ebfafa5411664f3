package signaling

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names accepted by CodecByName.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

var ErrUnknownCodec = errors.New("unknown wire codec")

// Codec frames Messages on the websocket. Payload helpers let clients build
// the opaque fields in the same encoding as the envelope.
type Codec interface {
	Name() string

	// FrameType is the websocket message type used for every frame.
	FrameType() int

	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)

	MarshalPayload(v any) ([]byte, error)
	UnmarshalPayload(data []byte, v any) error
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// JSONCodec sends text frames. It is what browser clients speak.
type JSONCodec struct{}

func (JSONCodec) Name() string   { return CodecJSON }
func (JSONCodec) FrameType() int { return websocket.TextMessage }

func (JSONCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (JSONCodec) MarshalPayload(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) UnmarshalPayload(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackCodec sends binary frames.
type MsgpackCodec struct{}

// packedMessage mirrors Message with msgpack raw fields so opaque payloads
// pass through undecoded.
type packedMessage struct {
	Type        string             `msgpack:"type"`
	RoomID      string             `msgpack:"roomId,omitempty"`
	UserID      string             `msgpack:"userId,omitempty"`
	PlayerCount int                `msgpack:"playerCount,omitempty"`
	Timestamp   int64              `msgpack:"timestamp,omitempty"`
	SignalData  msgpack.RawMessage `msgpack:"signalData,omitempty"`
	State       msgpack.RawMessage `msgpack:"state,omitempty"`
	Input       msgpack.RawMessage `msgpack:"input,omitempty"`
	Error       string             `msgpack:"error,omitempty"`
}

func (MsgpackCodec) Name() string   { return CodecMsgpack }
func (MsgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(msg *Message) ([]byte, error) {
	return msgpack.Marshal(&packedMessage{
		Type:        msg.Type,
		RoomID:      msg.RoomID,
		UserID:      msg.UserID,
		PlayerCount: msg.PlayerCount,
		Timestamp:   msg.Timestamp,
		SignalData:  msgpack.RawMessage(msg.SignalData),
		State:       msgpack.RawMessage(msg.State),
		Input:       msgpack.RawMessage(msg.Input),
		Error:       msg.Error,
	})
}

func (MsgpackCodec) Decode(data []byte) (*Message, error) {
	var p packedMessage
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &Message{
		Type:        p.Type,
		RoomID:      p.RoomID,
		UserID:      p.UserID,
		PlayerCount: p.PlayerCount,
		Timestamp:   p.Timestamp,
		SignalData:  json.RawMessage(p.SignalData),
		State:       json.RawMessage(p.State),
		Input:       json.RawMessage(p.Input),
		Error:       p.Error,
	}, nil
}

func (MsgpackCodec) MarshalPayload(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgpackCodec) UnmarshalPayload(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
