package interfaces

import (
	"context"
	"encoding/json"

	domaintypes "cipherchat/internal/domain/types"
)

// RelayConn is an explicit handle on the real-time relay. Emit and Subscribe
// may be called from any goroutine.
type RelayConn interface {
	Emit(ctx context.Context, event domaintypes.EventName, payload any) error
	// Subscribe registers h for event and returns a function that removes it.
	Subscribe(event domaintypes.EventName, h func(data json.RawMessage)) (unsubscribe func())
	Close() error
}
