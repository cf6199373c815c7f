package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"cipherchat/internal/domain"
)

// MaxFrameBytes bounds a single frame in either direction.
const MaxFrameBytes = 64 << 10

// ErrInvalidFrame is returned for frames the hub refuses to route.
var ErrInvalidFrame = errors.New("invalid relay frame")

// Frame is the wire envelope of every relay event.
type Frame struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data,omitempty"`
}

// EncodeFrame marshals payload under event.
func EncodeFrame(event domain.EventName, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// DecodeFrame parses a raw frame.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if len(raw) > MaxFrameBytes {
		return f, fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(raw))
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if f.Event == "" {
		return f, fmt.Errorf("%w: missing event", ErrInvalidFrame)
	}
	return f, nil
}
