package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrUnknownEncoding is returned for encodings other than MessagePack and JSON.
	ErrUnknownEncoding = errors.New("unknown encoding")
	// ErrUnknownType is returned when data.web.type names no known variant.
	ErrUnknownType = errors.New("unknown message type")
	// ErrMalformed is returned when a frame is missing required fields.
	ErrMalformed = errors.New("malformed message")
)

// ErrorKind classifies server error notifications.
type ErrorKind uint8

const (
	// KindGeneric is a plain error whose message is shown to the user.
	KindGeneric ErrorKind = 0
	// KindRequiresUsername asks the client to collect a username.
	KindRequiresUsername ErrorKind = 1
	// KindRequiresPassword asks the client to collect a password.
	KindRequiresPassword ErrorKind = 2

	// KindUnknown stands in for kinds sent by name that this client does not know.
	KindUnknown ErrorKind = 0xff
)

var kindNames = map[ErrorKind]string{
	KindGeneric:          "Generic",
	KindRequiresUsername: "RequiresUsername",
	KindRequiresPassword: "RequiresPassword",
}

// Known reports whether k is part of the taxonomy this client handles.
func (k ErrorKind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

func kindFromName(name string) ErrorKind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindUnknown
}

// MarshalJSON encodes the kind numerically.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint8(k))
}

// UnmarshalJSON accepts either the numeric or the named form.
func (k *ErrorKind) UnmarshalJSON(data []byte) error {
	var n uint8
	if err := json.Unmarshal(data, &n); err == nil {
		*k = ErrorKind(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: error kind %s", ErrMalformed, data)
	}
	*k = kindFromName(name)
	return nil
}

var (
	_ msgpack.CustomEncoder = ErrorKind(0)
	_ msgpack.CustomDecoder = (*ErrorKind)(nil)
)

// EncodeMsgpack encodes the kind numerically.
func (k ErrorKind) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeUint(uint64(k))
}

// DecodeMsgpack accepts either the numeric or the named form.
func (k *ErrorKind) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	if name, ok := v.(string); ok {
		*k = kindFromName(name)
		return nil
	}
	n, ok := toUint64(v)
	if !ok || n > 0xff {
		return fmt.Errorf("%w: error kind %v", ErrMalformed, v)
	}
	*k = ErrorKind(n)
	return nil
}
