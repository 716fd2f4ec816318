// Package protocol defines the wire vocabulary exchanged with the phirepass
// server: a versioned envelope whose data.web payload is a tagged variant.
//
// The package is pure data. Messages are encoded either as MessagePack
// (binary websocket frames) or JSON (text frames); see Encode and Decode.
package protocol

import "fmt"

// Version is the envelope version written by this client. Versions received
// from the server are carried through untouched.
const Version uint32 = 1

// Encoding names the serialization of an envelope.
type Encoding string

const (
	// EncodingMessagePack is the compact binary encoding.
	EncodingMessagePack Encoding = "MessagePack"
	// EncodingJSON is the textual encoding.
	EncodingJSON Encoding = "JSON"
)

// ParseEncoding maps user-facing names ("msgpack", "json", ...) to an
// Encoding.
func ParseEncoding(raw string) (Encoding, error) {
	switch raw {
	case "msgpack", "messagepack", "MessagePack", "":
		return EncodingMessagePack, nil
	case "json", "JSON":
		return EncodingJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, raw)
	}
}

// Message is one protocol envelope.
type Message struct {
	Version  uint32
	Encoding Encoding
	Web      Web
}

// Web is the tagged data.web payload. The set of implementations is closed.
type Web interface {
	// Type returns the discriminator written to the "type" field.
	Type() string

	frame() webFrame
}

// Type names used in the "type" discriminator.
const (
	TypeError        = "Error"
	TypeTunnelOpened = "TunnelOpened"
	TypeTunnelClosed = "TunnelClosed"
	TypeTunnelData   = "TunnelData"
	TypeOpenTunnel   = "OpenTunnel"
	TypeResize       = "Resize"
	TypeHeartbeat    = "Heartbeat"
)

// Error is a typed error notification from the server.
type Error struct {
	Kind    ErrorKind
	Message string
	MsgID   *uint32
}

// Type implements Web.
func (Error) Type() string { return TypeError }

// TunnelOpened reports that the server opened tunnel SID.
type TunnelOpened struct {
	SID   uint32
	MsgID *uint32
}

// Type implements Web.
func (TunnelOpened) Type() string { return TypeTunnelOpened }

// TunnelClosed reports that tunnel SID is gone.
type TunnelClosed struct {
	SID   uint32
	MsgID *uint32
}

// Type implements Web.
func (TunnelClosed) Type() string { return TypeTunnelClosed }

// TunnelData carries raw terminal bytes for tunnel SID. It flows in both
// directions.
type TunnelData struct {
	NodeID string
	SID    uint32
	Data   Bytes
}

// Type implements Web.
func (TunnelData) Type() string { return TypeTunnelData }

// NewMessage wraps a payload in an envelope using the client version.
func NewMessage(enc Encoding, web Web) Message {
	return Message{Version: Version, Encoding: enc, Web: web}
}
