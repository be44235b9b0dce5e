package fortran

import (
	"bufio"
	"fmt"
	"io"
)

// eof is returned by cursor.read at end of input.
const eof = -1

// historyDepth bounds how many consecutive bytes can be pushed back.
const historyDepth = 4

// mark records a byte that was read and the position before reading it.
type mark struct {
	b         int
	line, col int
}

// cursor is a byte reader with line/column bookkeeping and a small pushback
// buffer. Only the most recently read bytes may be pushed back, in reverse
// order, and doing so restores the position they were read from.
type cursor struct {
	in *bufio.Reader

	line int // 1-based line of the next byte
	col  int // bytes consumed on the current line

	hist     [historyDepth]mark // ring of recently read bytes
	histHead int                // index of the next free slot
	histLen  int

	pushback []int // stack; last element is read next
	atEOF    bool
}

func newCursor(r io.Reader) *cursor {
	return &cursor{
		in:       bufio.NewReader(r),
		line:     1,
		pushback: make([]int, 0, historyDepth),
	}
}

// read returns the next byte or eof.
func (c *cursor) read() (int, error) {
	var b int
	if n := len(c.pushback); n > 0 {
		b = c.pushback[n-1]
		c.pushback = c.pushback[:n-1]
	} else {
		if c.atEOF {
			return eof, nil
		}
		raw, err := c.in.ReadByte()
		if err == io.EOF {
			c.atEOF = true
			return eof, nil
		}
		if err != nil {
			return eof, err
		}
		b = int(raw)
	}

	c.hist[c.histHead] = mark{b: b, line: c.line, col: c.col}
	c.histHead = (c.histHead + 1) % historyDepth
	if c.histLen < historyDepth {
		c.histLen++
	}

	if b == '\n' {
		c.line++
		c.col = 0
	} else {
		c.col++
	}
	return b, nil
}

// unget pushes b back. b must be the last byte returned by read that has not
// already been pushed back. Pushing back eof is a no-op.
func (c *cursor) unget(b int) error {
	if b == eof {
		return nil
	}
	if c.histLen == 0 {
		return fmt.Errorf("%w: %q with nothing read", ErrInvalidUnget, rune(b))
	}
	top := (c.histHead - 1 + historyDepth) % historyDepth
	m := c.hist[top]
	if m.b != b {
		return fmt.Errorf("%w: %q, last read %q", ErrInvalidUnget, rune(b), rune(m.b))
	}
	c.histHead = top
	c.histLen--
	c.line, c.col = m.line, m.col
	c.pushback = append(c.pushback, b)
	return nil
}

// peek returns the next byte without consuming it.
func (c *cursor) peek() (int, error) {
	b, err := c.read()
	if err != nil || b == eof {
		return b, err
	}
	return b, c.unget(b)
}

// position returns the current line and the column of the last byte read on it
// (0 right after a newline).
func (c *cursor) position() (line, col int) {
	return c.line, c.col
}
