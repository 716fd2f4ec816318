package protocol

import "fmt"

// TunnelProtocol selects what kind of tunnel the server should open.
type TunnelProtocol uint8

const (
	// TunnelSSH requests an interactive shell.
	TunnelSSH TunnelProtocol = 0
)

// OpenTunnel asks the server to open a tunnel to NodeID, optionally with
// credentials collected from the user.
type OpenTunnel struct {
	Protocol TunnelProtocol
	NodeID   string
	Username string
	Password string
	MsgID    *uint32
}

// Type implements Web.
func (OpenTunnel) Type() string { return TypeOpenTunnel }

// String redacts the password.
func (o OpenTunnel) String() string {
	pw := ""
	if o.Password != "" {
		pw = "<redacted>"
	}
	return fmt.Sprintf("OpenTunnel{node=%s user=%q password=%s}", o.NodeID, o.Username, pw)
}

// Resize reports new terminal geometry for tunnel SID.
type Resize struct {
	NodeID string
	SID    uint32
	Cols   uint32
	Rows   uint32
}

// Type implements Web.
func (Resize) Type() string { return TypeResize }

// Heartbeat is the periodic keep-alive frame.
type Heartbeat struct{}

// Type implements Web.
func (Heartbeat) Type() string { return TypeHeartbeat }
