package fortran

import (
	"errors"
	"strings"
	"testing"
)

func TestCursorUngetRestoresPosition(t *testing.T) {
	src := "ab\ncd\n\nx"
	c := newCursor(strings.NewReader(src))

	for i := 0; i < len(src); i++ {
		line, col := c.position()

		b, err := c.read()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if b != int(src[i]) {
			t.Fatalf("read %d = %q, want %q", i, rune(b), rune(src[i]))
		}

		if err := c.unget(b); err != nil {
			t.Fatalf("unget %q: %v", rune(b), err)
		}
		if gotLine, gotCol := c.position(); gotLine != line || gotCol != col {
			t.Errorf("after unget %q: position = (%d,%d), want (%d,%d)", rune(b), gotLine, gotCol, line, col)
		}

		again, err := c.read()
		if err != nil {
			t.Fatalf("re-read %d: %v", i, err)
		}
		if again != b {
			t.Errorf("re-read %d = %q, want %q", i, rune(again), rune(b))
		}
	}

	b, err := c.read()
	if err != nil || b != eof {
		t.Fatalf("read at end = %d, %v; want eof", b, err)
	}
	if err := c.unget(eof); err != nil {
		t.Errorf("unget(eof) = %v, want nil", err)
	}
}

func TestCursorNewlineUnget(t *testing.T) {
	c := newCursor(strings.NewReader("ab\nc"))
	for i := 0; i < 3; i++ {
		if _, err := c.read(); err != nil {
			t.Fatal(err)
		}
	}
	if line, col := c.position(); line != 2 || col != 0 {
		t.Fatalf("after newline position = (%d,%d), want (2,0)", line, col)
	}
	if err := c.unget('\n'); err != nil {
		t.Fatal(err)
	}
	if line, col := c.position(); line != 1 || col != 2 {
		t.Errorf("after unget newline position = (%d,%d), want (1,2)", line, col)
	}
}

func TestCursorMultipleUnget(t *testing.T) {
	c := newCursor(strings.NewReader("wxyz!"))
	read := make([]int, 0, historyDepth)
	for i := 0; i < historyDepth; i++ {
		b, err := c.read()
		if err != nil {
			t.Fatal(err)
		}
		read = append(read, b)
	}
	for i := len(read) - 1; i >= 0; i-- {
		if err := c.unget(read[i]); err != nil {
			t.Fatalf("unget %q: %v", rune(read[i]), err)
		}
	}
	if line, col := c.position(); line != 1 || col != 0 {
		t.Errorf("position = (%d,%d), want (1,0)", line, col)
	}

	var sb strings.Builder
	for {
		b, err := c.read()
		if err != nil {
			t.Fatal(err)
		}
		if b == eof {
			break
		}
		sb.WriteByte(byte(b))
	}
	if sb.String() != "wxyz!" {
		t.Errorf("re-read = %q, want %q", sb.String(), "wxyz!")
	}
}

func TestCursorInvalidUnget(t *testing.T) {
	t.Run("nothing read", func(t *testing.T) {
		c := newCursor(strings.NewReader("a"))
		if err := c.unget('a'); !errors.Is(err, ErrInvalidUnget) {
			t.Errorf("unget before read = %v, want ErrInvalidUnget", err)
		}
	})

	t.Run("wrong byte", func(t *testing.T) {
		c := newCursor(strings.NewReader("a"))
		if _, err := c.read(); err != nil {
			t.Fatal(err)
		}
		if err := c.unget('b'); !errors.Is(err, ErrInvalidUnget) {
			t.Errorf("unget wrong byte = %v, want ErrInvalidUnget", err)
		}
	})

	t.Run("beyond history", func(t *testing.T) {
		c := newCursor(strings.NewReader("a"))
		b, err := c.read()
		if err != nil {
			t.Fatal(err)
		}
		if err := c.unget(b); err != nil {
			t.Fatal(err)
		}
		if err := c.unget(b); !errors.Is(err, ErrInvalidUnget) {
			t.Errorf("second unget = %v, want ErrInvalidUnget", err)
		}
	})
}

func TestCursorPeek(t *testing.T) {
	c := newCursor(strings.NewReader("q"))
	b, err := c.peek()
	if err != nil || b != 'q' {
		t.Fatalf("peek = %q, %v", rune(b), err)
	}
	if _, col := c.position(); col != 0 {
		t.Errorf("peek moved column to %d", col)
	}
	b, err = c.read()
	if err != nil || b != 'q' {
		t.Fatalf("read after peek = %q, %v", rune(b), err)
	}
	if b, _ := c.peek(); b != eof {
		t.Errorf("peek at end = %q, want eof", rune(b))
	}
}
