// Package terminal adapts a local terminal to the session surface: output,
// geometry, raw mode and keystroke tokens.
package terminal

import (
	"io"
	"sync"

	"golang.org/x/term"

	"github.com/dimitrmo/phirepass-widgets/pkg/logger"
)

const (
	defaultCols = 80
	defaultRows = 24

	// DefaultEscapeByte is Ctrl-].
	DefaultEscapeByte byte = 0x1d
)

const (
	// resetSequence clears the screen and turns off modes a remote program may
	// have enabled and not disabled, since tunnel output is not interpreted
	// locally.
	//
	// DECSTR + RIS are included because emulator-level keyboard protocols are
	// not controlled by termios and must be reset explicitly.
	resetSequence = "" +
		"\x1b[!p" + // DECSTR (soft reset)
		"\x1bc" + // RIS (hard reset)
		"\x1b[0m" + // reset attributes
		"\x1b[?25h" + // show cursor
		"\x1b[?2004l" + // bracketed paste off
		"\x1b[>0u" + // kitty keyboard protocol off (best-effort)
		"\x1b[>1;0m" + // modifyOtherKeys off (xterm)
		"\x1b[?1000l" + // mouse reporting off
		"\x1b[?1002l" + // mouse button-event off
		"\x1b[?1003l" + // mouse any-event off
		"\x1b[?1006l" // SGR mouse mode off

	showCursor = "\x1b[?25h"
)

type fder interface {
	Fd() uintptr
}

// TTY is a session surface backed by a local terminal. Output is written
// verbatim; nothing is interpreted.
type TTY struct {
	in     io.Reader
	out    io.Writer
	escape byte

	mu    sync.Mutex
	cols  int
	rows  int
	raw   *term.State
	rawFD int
}

// Option configures a TTY.
type Option func(*TTY)

// WithEscapeByte sets the byte that ends ReadTokens. Zero disables it.
func WithEscapeByte(b byte) Option {
	return func(t *TTY) { t.escape = b }
}

// New returns a TTY reading keystrokes from in and drawing on out.
func New(in io.Reader, out io.Writer, opts ...Option) *TTY {
	t := &TTY{
		in:     in,
		out:    out,
		escape: DefaultEscapeByte,
		cols:   defaultCols,
		rows:   defaultRows,
		rawFD:  -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsTerminal reports whether the input side is a terminal.
func (t *TTY) IsTerminal() bool {
	fd, ok := fdOf(t.in)
	return ok && term.IsTerminal(fd)
}

// MakeRaw puts the input terminal in raw mode. It is a no-op when the input
// is not a terminal or is already raw.
func (t *TTY) MakeRaw() error {
	fd, ok := fdOf(t.in)
	if !ok || !term.IsTerminal(fd) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.raw != nil {
		return nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	t.raw = state
	t.rawFD = fd
	return nil
}

// Restore undoes MakeRaw.
func (t *TTY) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.raw == nil {
		return nil
	}
	err := term.Restore(t.rawFD, t.raw)
	t.raw = nil
	t.rawFD = -1
	return err
}

// Reset clears the screen and terminal modes.
func (t *TTY) Reset() {
	t.writeString(resetSequence)
}

// Write writes raw bytes.
func (t *TTY) Write(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.out.Write(p); err != nil {
		logger.Debugf("terminal write: %v", err)
	}
}

// Writeln writes text followed by CRLF.
func (t *TTY) Writeln(text string) {
	t.writeString(text + "\r\n")
}

// Focus makes the cursor visible.
func (t *TTY) Focus() {
	t.writeString(showCursor)
}

// Fit re-reads the terminal size. A surface that is not a terminal keeps
// 80x24.
func (t *TTY) Fit() {
	cols, rows := defaultCols, defaultRows
	if fd, ok := t.sizeFD(); ok {
		if w, h, err := term.GetSize(fd); err == nil && w > 0 && h > 0 {
			cols, rows = w, h
		}
	}
	t.mu.Lock()
	t.cols, t.rows = cols, rows
	t.mu.Unlock()
}

// Cols returns the width recorded by the last Fit.
func (t *TTY) Cols() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cols
}

// Rows returns the height recorded by the last Fit.
func (t *TTY) Rows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rows
}

func (t *TTY) writeString(s string) {
	t.Write([]byte(s))
}

func (t *TTY) sizeFD() (int, bool) {
	for _, side := range []any{t.out, t.in} {
		if fd, ok := fdOf(side); ok && term.IsTerminal(fd) {
			return fd, true
		}
	}
	return 0, false
}

func fdOf(v any) (int, bool) {
	f, ok := v.(fder)
	if !ok {
		return 0, false
	}
	return int(f.Fd()), true
}
