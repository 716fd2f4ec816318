package terminal

import (
	"context"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrEscape is returned by ReadTokens when the escape byte is typed.
var ErrEscape = errors.New("escape byte received")

const esc = 0x1b

// Tokenize splits one read of terminal input into keystroke tokens.
//
// A run of printable ASCII is one token, as is an escape sequence and a
// CRLF pair. Every other control byte or UTF-8 rune stands alone.
func Tokenize(chunk []byte) []string {
	var tokens []string
	for i := 0; i < len(chunk); {
		n := tokenLen(chunk[i:])
		tokens = append(tokens, string(chunk[i:i+n]))
		i += n
	}
	return tokens
}

func tokenLen(b []byte) int {
	switch c := b[0]; {
	case isPrintable(c):
		n := 1
		for n < len(b) && isPrintable(b[n]) {
			n++
		}
		return n
	case c == '\r' && len(b) > 1 && b[1] == '\n':
		return 2
	case c == esc:
		return escapeLen(b)
	case c < utf8.RuneSelf:
		return 1
	default:
		_, n := utf8.DecodeRune(b)
		return n
	}
}

// escapeLen measures an escape sequence starting at b[0]. A lone ESC is one
// byte; CSI runs to its final byte; SS3 and Alt+key take one more byte.
func escapeLen(b []byte) int {
	if len(b) == 1 {
		return 1
	}
	switch b[1] {
	case '[':
		for i := 2; i < len(b); i++ {
			if b[i] >= 0x40 && b[i] <= 0x7e {
				return i + 1
			}
		}
		return len(b)
	case 'O':
		if len(b) > 2 {
			return 3
		}
		return 2
	case esc:
		return 1
	default:
		return 2
	}
}

func isPrintable(c byte) bool {
	return c >= 0x20 && c <= 0x7e
}

// ReadTokens reads input and calls fn for each token until the input ends,
// fn fails, ctx is done or the escape byte is read. A done ctx is noticed
// between reads. End of input returns nil.
func (t *TTY) ReadTokens(ctx context.Context, fn func(token string) error) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := t.in.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			escaped := false
			if t.escape != 0 {
				for i, c := range chunk {
					if c == t.escape {
						chunk, escaped = chunk[:i], true
						break
					}
				}
			}
			for _, tok := range Tokenize(chunk) {
				if ferr := fn(tok); ferr != nil {
					return ferr
				}
			}
			if escaped {
				return ErrEscape
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
