package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type envelope struct {
	Version  uint32   `json:"version" msgpack:"version"`
	Encoding Encoding `json:"encoding" msgpack:"encoding"`
	Data     payload  `json:"data" msgpack:"data"`
}

type payload struct {
	Web *webFrame `json:"web,omitempty" msgpack:"web,omitempty"`
}

// webFrame is the flattened union of every data.web variant. Only the fields
// belonging to Type are populated.
type webFrame struct {
	Type     string          `json:"type" msgpack:"type"`
	Kind     *ErrorKind      `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Message  string          `json:"message,omitempty" msgpack:"message,omitempty"`
	MsgID    *uint32         `json:"msg_id,omitempty" msgpack:"msg_id,omitempty"`
	Protocol *TunnelProtocol `json:"protocol,omitempty" msgpack:"protocol,omitempty"`
	NodeID   string          `json:"node_id,omitempty" msgpack:"node_id,omitempty"`
	SID      *uint32         `json:"sid,omitempty" msgpack:"sid,omitempty"`
	Username string          `json:"username,omitempty" msgpack:"username,omitempty"`
	Password string          `json:"password,omitempty" msgpack:"password,omitempty"`
	Cols     uint32          `json:"cols,omitempty" msgpack:"cols,omitempty"`
	Rows     uint32          `json:"rows,omitempty" msgpack:"rows,omitempty"`
	Data     Bytes           `json:"data,omitempty" msgpack:"data,omitempty"`
}

// Encode serializes msg using msg.Encoding.
func Encode(msg Message) ([]byte, error) {
	if msg.Web == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrMalformed)
	}
	frame := msg.Web.frame()
	env := envelope{
		Version:  msg.Version,
		Encoding: msg.Encoding,
		Data:     payload{Web: &frame},
	}
	switch msg.Encoding {
	case EncodingMessagePack:
		return msgpack.Marshal(&env)
	case EncodingJSON:
		return json.Marshal(&env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, msg.Encoding)
	}
}

// Decode parses raw using enc. The envelope version is preserved as received.
// Payloads whose type is not recognized yield an error wrapping ErrUnknownType.
func Decode(enc Encoding, raw []byte) (Message, error) {
	var (
		env envelope
		err error
	)
	switch enc {
	case EncodingMessagePack:
		err = msgpack.Unmarshal(raw, &env)
	case EncodingJSON:
		err = json.Unmarshal(raw, &env)
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
	}
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Data.Web == nil {
		return Message{}, fmt.Errorf("%w: missing data.web", ErrMalformed)
	}

	web, err := env.Data.Web.variant()
	if err != nil {
		return Message{}, err
	}
	if env.Encoding == "" {
		env.Encoding = enc
	}
	return Message{Version: env.Version, Encoding: env.Encoding, Web: web}, nil
}

func (f *webFrame) variant() (Web, error) {
	switch f.Type {
	case TypeError:
		if f.Kind == nil {
			return nil, fmt.Errorf("%w: Error without kind", ErrMalformed)
		}
		return Error{Kind: *f.Kind, Message: f.Message, MsgID: f.MsgID}, nil
	case TypeTunnelOpened:
		if f.SID == nil {
			return nil, fmt.Errorf("%w: TunnelOpened without sid", ErrMalformed)
		}
		return TunnelOpened{SID: *f.SID, MsgID: f.MsgID}, nil
	case TypeTunnelClosed:
		if f.SID == nil {
			return nil, fmt.Errorf("%w: TunnelClosed without sid", ErrMalformed)
		}
		return TunnelClosed{SID: *f.SID, MsgID: f.MsgID}, nil
	case TypeTunnelData:
		if f.SID == nil {
			return nil, fmt.Errorf("%w: TunnelData without sid", ErrMalformed)
		}
		return TunnelData{NodeID: f.NodeID, SID: *f.SID, Data: f.Data}, nil
	case TypeOpenTunnel:
		if f.NodeID == "" {
			return nil, fmt.Errorf("%w: OpenTunnel without node_id", ErrMalformed)
		}
		open := OpenTunnel{
			Protocol: TunnelSSH,
			NodeID:   f.NodeID,
			Username: f.Username,
			Password: f.Password,
			MsgID:    f.MsgID,
		}
		if f.Protocol != nil {
			open.Protocol = *f.Protocol
		}
		return open, nil
	case TypeResize:
		if f.SID == nil {
			return nil, fmt.Errorf("%w: Resize without sid", ErrMalformed)
		}
		return Resize{NodeID: f.NodeID, SID: *f.SID, Cols: f.Cols, Rows: f.Rows}, nil
	case TypeHeartbeat:
		return Heartbeat{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
}

func (e Error) frame() webFrame {
	kind := e.Kind
	return webFrame{Type: TypeError, Kind: &kind, Message: e.Message, MsgID: e.MsgID}
}

func (o TunnelOpened) frame() webFrame {
	sid := o.SID
	return webFrame{Type: TypeTunnelOpened, SID: &sid, MsgID: o.MsgID}
}

func (c TunnelClosed) frame() webFrame {
	sid := c.SID
	return webFrame{Type: TypeTunnelClosed, SID: &sid, MsgID: c.MsgID}
}

func (d TunnelData) frame() webFrame {
	sid := d.SID
	return webFrame{Type: TypeTunnelData, NodeID: d.NodeID, SID: &sid, Data: d.Data}
}

func (o OpenTunnel) frame() webFrame {
	proto := o.Protocol
	return webFrame{
		Type:     TypeOpenTunnel,
		Protocol: &proto,
		NodeID:   o.NodeID,
		Username: o.Username,
		Password: o.Password,
		MsgID:    o.MsgID,
	}
}

func (r Resize) frame() webFrame {
	sid := r.SID
	return webFrame{Type: TypeResize, NodeID: r.NodeID, SID: &sid, Cols: r.Cols, Rows: r.Rows}
}

func (Heartbeat) frame() webFrame {
	return webFrame{Type: TypeHeartbeat}
}
