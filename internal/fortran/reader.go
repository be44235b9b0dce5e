// Package fortran reads Fortran sources as logical statements and extracts
// the MODULE and USE references build tooling needs to order compilation.
//
// The reader understands fixed and free source form, continuation lines,
// character-context continuation, comments, the 72/132 column limits and the
// "!dir$ fixed" / "!dir$ free" directives. It does not parse Fortran beyond
// statement boundaries.
package fortran

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"fortdeps/internal/slogutil"
)

// Statement is one logical statement: comments removed, continuation lines
// joined, blanks outside character context dropped.
type Statement struct {
	Text string
	// Line is the physical line holding the statement's first character.
	Line int
}

type readerState int

const (
	stateStartOfLine readerState = iota
	stateEndOfLine
	stateStartOfStatement
	stateInStatement
	stateEndOfStatement
	stateInComment
	stateInQuote
	stateGotEOF
)

var stateNames = [...]string{
	stateStartOfLine:      "StartOfLine",
	stateEndOfLine:        "EndOfLine",
	stateStartOfStatement: "StartOfStatement",
	stateInStatement:      "InStatement",
	stateEndOfStatement:   "EndOfStatement",
	stateInComment:        "InComment",
	stateInQuote:          "InQuote",
	stateGotEOF:           "GotEOF",
}

func (s readerState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("readerState(%d)", int(s))
}

// Reader produces logical statements from a Fortran source.
// A Reader is not safe for concurrent use.
type Reader struct {
	name   string
	cur    *cursor
	closer io.Closer
	opts   Options
	logger *slog.Logger

	state readerState
	err   error // sticky terminal error

	buf      []byte
	stmtLine int

	quote        int  // open quote character while in character context
	ampPending   bool // free form: '&' seen, not yet known to end the line
	contFree     bool // free form: previous line ended with '&'
	pendingFlush bool // fixed form: a new statement began, flush before appending
	terminated   bool // a newline followed the last buffered character
}

// Open opens the source at path. Extension defaults are applied first and
// then overridden by options ("-free", "-fixed", "-e", "-fpp").
// The returned error matches ErrSourceNotFound when the file cannot be opened.
func Open(path, options string, logger *slog.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}

	opts, unknown := ResolveOptions(path, options)
	r := NewReader(f, path, opts, logger)
	r.closer = f

	if !opts.KnownExtension {
		r.logger.Debug("Unrecognized Fortran extension, using default form",
			"file", path,
			"format", opts.Format.String(),
		)
	}
	if len(unknown) > 0 {
		r.logger.Debug("Ignoring unknown reader options",
			"file", path,
			"options", strings.Join(unknown, " "),
		)
	}
	return r, nil
}

// NewReader reads statements from src. name is used in diagnostics only.
// A nil logger discards diagnostics.
func NewReader(src io.Reader, name string, opts Options, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Reader{
		name:   name,
		cur:    newCursor(src),
		opts:   opts,
		logger: logger,
		state:  stateStartOfLine,
		buf:    make([]byte, 0, 256),
	}
}

// Close releases the underlying file when the reader opened it.
func (r *Reader) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Name returns the source name given at construction.
func (r *Reader) Name() string { return r.name }

// Format returns the current source form, including directive changes.
func (r *Reader) Format() SourceFormat { return r.opts.Format }

// Options returns the options currently in effect.
func (r *Reader) Options() Options { return r.opts }

// Next returns the next logical statement. It returns io.EOF at the end of
// input and an error matching ErrUnexpectedEOF when input ends inside a
// statement.
func (r *Reader) Next() (Statement, error) {
	if r.err != nil {
		return Statement{}, r.err
	}
	for {
		emit, err := r.step()
		if err != nil {
			r.err = err
			return Statement{}, err
		}
		if emit {
			if stmt, ok := r.flush(); ok {
				return stmt, nil
			}
		}
	}
}

// step runs the transition for the current state. It reports whether the
// buffered statement is complete.
func (r *Reader) step() (bool, error) {
	switch r.state {
	case stateStartOfLine:
		return r.startOfLine()
	case stateEndOfLine:
		return r.endOfLine()
	case stateStartOfStatement:
		r.state = stateInStatement
		return false, nil
	case stateInStatement:
		return r.inStatement()
	case stateEndOfStatement:
		return r.endOfStatement()
	case stateInComment:
		return false, r.inComment()
	case stateInQuote:
		return r.inQuote()
	case stateGotEOF:
		return r.gotEOF()
	}
	return false, fmt.Errorf("%s: reader in unknown state %v", r.name, r.state)
}

func (r *Reader) flush() (Statement, bool) {
	text := strings.TrimSpace(string(r.buf))
	r.buf = r.buf[:0]
	r.terminated = false
	if text == "" {
		return Statement{}, false
	}
	return Statement{Text: text, Line: r.stmtLine}, true
}

func (r *Reader) startOfLine() (bool, error) {
	c, err := r.cur.read()
	if err != nil {
		return false, err
	}
	switch {
	case c == eof:
		r.state = stateGotEOF
		return false, nil
	case c == '\n':
		return false, nil
	case c == '#':
		// preprocessor line
		r.state = stateInComment
		return false, nil
	case r.isCommentMarker(c):
		return false, r.commentLine(c)
	}
	if r.opts.Format == Free {
		return false, r.freeLineStart(c)
	}
	return false, r.fixedLineStart(c)
}

func (r *Reader) isCommentMarker(c int) bool {
	if c == '!' {
		return true
	}
	if r.opts.Format == Fixed {
		switch c {
		case 'c', 'C', 'd', 'D', '*':
			return true
		}
	}
	return false
}

// commentLine consumes a full-line comment whose marker has been read and
// applies a source-form directive if the comment carries one.
func (r *Reader) commentLine(marker int) error {
	var sb strings.Builder
	sb.WriteByte(byte(marker))
	for {
		c, err := r.cur.read()
		if err != nil {
			return err
		}
		if c == eof {
			r.state = stateGotEOF
			break
		}
		if c == '\n' {
			if err := r.cur.unget(c); err != nil {
				return err
			}
			r.state = stateEndOfLine
			break
		}
		sb.WriteByte(byte(c))
	}

	if format, ok := directiveFormat(sb.String()); ok && format != r.opts.Format {
		line, _ := r.cur.position()
		r.logger.Debug("Source form directive",
			"file", r.name,
			"line", line,
			"from", r.opts.Format.String(),
			"to", format.String(),
		)
		r.opts.Format = format
		if format == Free && len(r.buf) > 0 && !r.contFree {
			r.pendingFlush = true
		}
	}
	return nil
}

// directiveFormat recognizes "!dir$ fixed" and "!dir$ free", optionally
// preceded by further comment markers.
func directiveFormat(line string) (SourceFormat, bool) {
	s := strings.ToLower(line)
	s = strings.TrimLeft(s, "!*c")
	if !strings.HasPrefix(s, "dir$") {
		return Fixed, false
	}
	s = strings.TrimLeft(s[len("dir$"):], " \t")
	switch {
	case strings.HasPrefix(s, "fixed"):
		return Fixed, true
	case strings.HasPrefix(s, "free"):
		return Free, true
	}
	return Fixed, false
}

func (r *Reader) freeLineStart(c int) error {
	if !r.contFree {
		if len(r.buf) > 0 {
			// left over from fixed form before a directive
			r.pendingFlush = true
		}
		r.state = stateStartOfStatement
		return r.cur.unget(c)
	}

	var err error
	for c == ' ' || c == '\t' || c == '\r' {
		if c, err = r.cur.read(); err != nil {
			return err
		}
	}
	switch c {
	case eof:
		r.state = stateGotEOF
		return nil
	case '\n':
		// blank line inside a continuation
		return nil
	case '!':
		r.state = stateInComment
		return nil
	}

	r.contFree = false
	r.state = stateInStatement
	if r.quote != 0 {
		r.state = stateInQuote
	}
	if c == '&' {
		return nil
	}
	return r.cur.unget(c)
}

// fixedLineStart reads the label field and continuation column. c is the
// character in column 1.
func (r *Reader) fixedLineStart(c int) error {
	cont := false
	col := 1
	for {
		if c == eof {
			r.state = stateGotEOF
			return nil
		}
		if c == '\n' {
			// nothing beyond the label field
			return r.cur.unget(c)
		}
		if c == '\t' {
			next, err := r.cur.read()
			if err != nil {
				return err
			}
			if next >= '1' && next <= '9' {
				cont = true
			} else if err := r.cur.unget(next); err != nil {
				return err
			}
			break
		}
		if c == '!' && col < 6 {
			r.state = stateInComment
			return nil
		}
		if col == 6 {
			cont = c != ' ' && c != '0'
			break
		}
		var err error
		if c, err = r.cur.read(); err != nil {
			return err
		}
		col++
	}

	r.contFree = false
	r.ampPending = false
	if cont {
		// a blank line may have marked a flush; the statement goes on
		r.pendingFlush = false
		r.state = stateInStatement
		if r.quote != 0 {
			r.state = stateInQuote
		}
		return nil
	}
	if len(r.buf) > 0 {
		r.pendingFlush = true
	}
	r.quote = 0
	r.state = stateInStatement
	return nil
}

func (r *Reader) endOfLine() (bool, error) {
	if _, err := r.cur.read(); err != nil {
		return false, err
	}
	r.state = stateStartOfLine
	if r.ampPending {
		r.ampPending = false
		r.contFree = true
	}
	if len(r.buf) > 0 {
		r.terminated = true
	}
	if r.opts.Format == Free && !r.contFree {
		r.quote = 0
		r.pendingFlush = false
		return len(r.buf) > 0, nil
	}
	return false, nil
}

func (r *Reader) endOfStatement() (bool, error) {
	if _, err := r.cur.read(); err != nil {
		return false, err
	}
	r.ampPending = false
	r.pendingFlush = false
	r.state = stateStartOfStatement
	return len(r.buf) > 0, nil
}

func (r *Reader) inComment() error {
	for {
		c, err := r.cur.read()
		if err != nil {
			return err
		}
		switch c {
		case eof:
			r.state = stateGotEOF
			return nil
		case '\n':
			r.state = stateEndOfLine
			return r.cur.unget(c)
		}
	}
}

// beforeAppend prepares the buffer for c. It reports true when the buffered
// statement must be returned first; c is then pushed back.
func (r *Reader) beforeAppend(c int) (bool, error) {
	if r.pendingFlush {
		r.pendingFlush = false
		if len(r.buf) > 0 {
			return true, r.cur.unget(c)
		}
	}
	if r.ampPending {
		r.ampPending = false
		r.appendByte('&')
	}
	return false, nil
}

func (r *Reader) appendByte(c int) {
	if len(r.buf) == 0 {
		r.stmtLine, _ = r.cur.position()
	}
	r.buf = append(r.buf, byte(c))
	r.terminated = false
}

func (r *Reader) inStatement() (bool, error) {
	limit := r.opts.LineLimit()
	for {
		c, err := r.cur.read()
		if err != nil {
			return false, err
		}
		switch c {
		case eof:
			r.state = stateGotEOF
			return false, nil
		case '\n':
			r.state = stateEndOfLine
			return false, r.cur.unget(c)
		}
		if _, col := r.cur.position(); col > limit {
			r.state = stateInComment
			return false, nil
		}

		switch {
		case c == '!':
			r.state = stateInComment
			return false, nil
		case c == ';':
			r.state = stateEndOfStatement
			return false, r.cur.unget(c)
		case c == ' ' || c == '\t' || c == '\r':
			continue
		case c == '&' && r.opts.Format == Free:
			if r.ampPending {
				r.appendByte('&')
			}
			r.ampPending = true
			continue
		}

		flush, err := r.beforeAppend(c)
		if err != nil || flush {
			return flush, err
		}
		r.appendByte(c)
		if c == '\'' || c == '"' {
			r.quote = c
			r.state = stateInQuote
			return false, nil
		}
	}
}

func (r *Reader) inQuote() (bool, error) {
	limit := r.opts.LineLimit()
	q := r.quote
	for {
		c, err := r.cur.read()
		if err != nil {
			return false, err
		}
		switch c {
		case eof:
			r.state = stateGotEOF
			return false, nil
		case '\r':
			continue
		case '\n':
			r.state = stateEndOfLine
			return false, r.cur.unget(c)
		}
		if _, col := r.cur.position(); col > limit {
			r.state = stateInComment
			return false, nil
		}

		if c == q {
			next, err := r.cur.peek()
			if err != nil {
				return false, err
			}
			if next == q {
				if _, err := r.cur.read(); err != nil {
					return false, err
				}
				r.appendByte(q)
				r.appendByte(q)
				continue
			}
			r.appendByte(q)
			r.quote = 0
			r.state = stateInStatement
			return false, nil
		}

		if c == '&' && r.opts.Format == Free {
			cont, err := r.quoteContinues(limit)
			if err != nil || cont {
				return false, err
			}
			continue
		}
		r.appendByte(c)
	}
}

// quoteContinues is called after '&' inside a free-form string. It reports
// whether only blanks remain before the newline or the line limit, and then
// moves to the end of the line. Otherwise the '&' and the blanks are kept as
// string content.
func (r *Reader) quoteContinues(limit int) (bool, error) {
	var blanks []byte
	for {
		c, err := r.cur.read()
		if err != nil {
			return false, err
		}
		if c == '\n' {
			r.ampPending = true
			r.state = stateEndOfLine
			return true, r.cur.unget(c)
		}
		if _, col := r.cur.position(); c != eof && col > limit {
			r.ampPending = true
			r.state = stateInComment
			return true, nil
		}
		switch c {
		case ' ', '\t', '\r':
			blanks = append(blanks, byte(c))
			continue
		}
		r.appendByte('&')
		r.buf = append(r.buf, blanks...)
		return false, r.cur.unget(c)
	}
}

func (r *Reader) gotEOF() (bool, error) {
	if strings.TrimSpace(string(r.buf)) == "" {
		r.buf = r.buf[:0]
		return false, io.EOF
	}
	if r.terminated && !r.contFree && !r.ampPending {
		return true, nil
	}
	line, col := r.cur.position()
	return false, fmt.Errorf("%s:%d:%d: %w", r.name, line, col, ErrUnexpectedEOF)
}
