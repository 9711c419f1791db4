package scene

import (
	"bytes"
	"encoding/json"

	"github.com/zeusync/citrus/internal/core/ecs"
)

// Encoder is implemented by elements that write their own payload.
type Encoder interface {
	EncodeScene() (json.RawMessage, error)
}

// Decoder is implemented by elements that read their own payload. References
// inside the payload resolve through ctx.
type Decoder interface {
	DecodeScene(ctx *DecodeContext, payload json.RawMessage) error
}

func encodePayload(el ecs.Element) (json.RawMessage, error) {
	if enc, ok := el.(Encoder); ok {
		return enc.EncodeScene()
	}
	return json.Marshal(el)
}

// decodePayload fills el from payload. A missing or null payload keeps the
// registered default.
func decodePayload(ctx *DecodeContext, el ecs.Element, payload json.RawMessage) error {
	if dec, ok := el.(Decoder); ok {
		return dec.DecodeScene(ctx, payload)
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, el); err != nil {
		return err
	}
	return ctx.Link(el)
}
