package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Bytes is a raw byte payload.
//
// JSON writes it as an array of integers, matching what the server emits for
// byte vectors, and reads back either that form or a base64 string.
// MessagePack writes a bin value and reads bin, str or an integer array.
type Bytes []byte

var (
	_ json.Marshaler        = Bytes(nil)
	_ json.Unmarshaler      = (*Bytes)(nil)
	_ msgpack.CustomEncoder = Bytes(nil)
	_ msgpack.CustomDecoder = (*Bytes)(nil)
)

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(b)*4 + 2)
	buf.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%d", c)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*b = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("%w: data is not base64: %v", ErrMalformed, err)
		}
		*b = raw
		return nil
	}

	var ints []int
	if err := json.Unmarshal(trimmed, &ints); err != nil {
		return fmt.Errorf("%w: data: %v", ErrMalformed, err)
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 0xff {
			return fmt.Errorf("%w: data[%d]=%d out of byte range", ErrMalformed, i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (b Bytes) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(b)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (b *Bytes) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	switch data := v.(type) {
	case nil:
		*b = nil
	case []byte:
		*b = data
	case string:
		*b = []byte(data)
	case []interface{}:
		out := make([]byte, len(data))
		for i, item := range data {
			n, ok := toUint64(item)
			if !ok || n > 0xff {
				return fmt.Errorf("%w: data[%d]=%v out of byte range", ErrMalformed, i, item)
			}
			out[i] = byte(n)
		}
		*b = out
	default:
		return fmt.Errorf("%w: data has type %T", ErrMalformed, v)
	}
	return nil
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int8:
		return uint64(n), n >= 0
	case int16:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	default:
		return 0, false
	}
}
