package probe

import "github.com/vmihailenco/msgpack/v5"

const (
	kindPing = "ping"
	kindPong = "pong"
)

// frame is one message on the probe data channel.
type frame struct {
	Kind string `msgpack:"k"`
	Seq  uint32 `msgpack:"s"`
	Sent int64  `msgpack:"t"`
}

func encodeFrame(f frame) ([]byte, error) {
	return msgpack.Marshal(&f)
}

func decodeFrame(data []byte) (frame, error) {
	var f frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}
