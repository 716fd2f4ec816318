package session

import (
	"fmt"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
	"github.com/dimitrmo/phirepass-widgets/pkg/logger"
)

// LogHooks logs connection, tunnel and mode changes at debug level. A panic
// in the session loop is logged and ends the loop, which closes Done.
//
// Credential buffers are never logged.
func LogHooks() actor.Hooks[State] {
	return actor.Hooks[State]{
		OnTransition: func(prev, next State, in actor.Input) {
			if !changed(prev, next) {
				return
			}
			logger.WithFields(logger.Fields{
				"input":      fmt.Sprintf("%T", in),
				"identity":   next.Identity,
				"connected":  next.Connected,
				"has_tunnel": next.HasTunnel,
				"tunnel_id":  next.TunnelID,
				"mode":       next.Mode,
			}).Debug("session transition")
		},
		OnPanic: func(recovered any) {
			logger.Errorf("session loop panic: %v", recovered)
		},
	}
}

func changed(prev, next State) bool {
	return prev.Identity != next.Identity ||
		prev.Connected != next.Connected ||
		prev.HasTunnel != next.HasTunnel ||
		prev.TunnelID != next.TunnelID ||
		prev.Mode != next.Mode ||
		prev.Closed != next.Closed
}
