package parser

import (
	"github.com/ajitpratap0/pulsar/pkg/errors"
	strpool "github.com/ajitpratap0/pulsar/pkg/strings"
)

// fieldToken is one scanned field: a zero-copy view of its raw content plus
// the flags the tape descriptor needs.
type fieldToken struct {
	view    strpool.View
	quoted  bool
	escaped bool
	last    bool // terminated by newline or end of range, not a delimiter
}

// scanner walks one byte range of the shared input buffer field by field.
// It owns no memory; every token is a view into buf.
type scanner struct {
	buf []byte
	pos int
	end int
	o   *Options
}

func newScanner(buf []byte, start, end int, o *Options) *scanner {
	return &scanner{buf: buf, pos: start, end: end, o: o}
}

func (s *scanner) atEnd() bool { return s.pos >= s.end }

// next scans one field starting at the current position. A malformed quoted
// field (unterminated quote, or a closing quote followed by anything other
// than a delimiter, newline or end of input) is a hard error: the byte
// stream cannot be reliably resynchronized past it.
func (s *scanner) next() (fieldToken, error) {
	if s.pos >= s.end {
		return fieldToken{last: true, view: strpool.View{Off: s.pos}}, nil
	}
	if s.buf[s.pos] == s.o.OpenQuote {
		return s.nextQuoted()
	}
	return s.nextBare(), nil
}

func (s *scanner) nextBare() fieldToken {
	start := s.pos
	i := s.pos
	for i < s.end {
		c := s.buf[i]
		if c == s.o.Delim || c == '\n' || c == '\r' {
			break
		}
		i++
	}
	tok := fieldToken{view: strpool.View{Off: start, Len: i - start}}
	s.pos = i
	tok.last = s.consumeTerminator()
	return tok
}

func (s *scanner) nextQuoted() (fieldToken, error) {
	openAt := s.pos
	i := s.pos + 1
	start := i
	escaped := false
	closed := false
	var contentEnd int

	for i < s.end {
		c := s.buf[i]
		switch {
		case s.o.Escape == s.o.CloseQuote && c == s.o.CloseQuote:
			if i+1 < s.end && s.buf[i+1] == s.o.CloseQuote {
				// doubled quote is an escaped quote
				escaped = true
				i += 2
				continue
			}
			contentEnd = i
			i++
			closed = true
		case s.o.Escape != s.o.CloseQuote && c == s.o.Escape:
			if i+1 >= s.end {
				return fieldToken{}, errors.New(errors.ErrorTypeParse,
					"escape character at end of input").WithDetail("offset", i)
			}
			escaped = true
			i += 2
			continue
		case c == s.o.CloseQuote:
			contentEnd = i
			i++
			closed = true
		default:
			i++
			continue
		}
		break
	}

	if !closed {
		return fieldToken{}, errors.New(errors.ErrorTypeParse,
			"unterminated quoted field").WithDetail("offset", openAt)
	}

	tok := fieldToken{
		view:    strpool.View{Off: start, Len: contentEnd - start},
		quoted:  true,
		escaped: escaped,
	}
	s.pos = i

	if s.pos >= s.end {
		tok.last = true
		return tok, nil
	}
	switch s.buf[s.pos] {
	case s.o.Delim, '\n', '\r':
		tok.last = s.consumeTerminator()
		return tok, nil
	default:
		return fieldToken{}, errors.New(errors.ErrorTypeParse,
			"closing quote not followed by delimiter or newline").
			WithDetail("offset", s.pos)
	}
}

// consumeTerminator eats the byte(s) that ended a field and reports whether
// they ended the row.
func (s *scanner) consumeTerminator() bool {
	if s.pos >= s.end {
		return true
	}
	switch s.buf[s.pos] {
	case s.o.Delim:
		s.pos++
		return false
	case '\n':
		s.pos++
		return true
	case '\r':
		s.pos++
		if s.pos < s.end && s.buf[s.pos] == '\n' {
			s.pos++
		}
		return true
	}
	return false
}

// skipLine discards input up to and including the next newline. Used for
// comment lines and long-row truncation.
func (s *scanner) skipLine() {
	for s.pos < s.end {
		c := s.buf[s.pos]
		s.pos++
		if c == '\n' {
			return
		}
		if c == '\r' {
			if s.pos < s.end && s.buf[s.pos] == '\n' {
				s.pos++
			}
			return
		}
	}
}

// atBlankLine reports whether the current position sits on an empty line.
func (s *scanner) atBlankLine() bool {
	if s.pos >= s.end {
		return false
	}
	return s.buf[s.pos] == '\n' || s.buf[s.pos] == '\r'
}

// atComment reports whether the current line starts with the comment prefix.
func (s *scanner) atComment() bool {
	if len(s.o.Comment) == 0 || s.pos+len(s.o.Comment) > s.end {
		return false
	}
	for i, c := range s.o.Comment {
		if s.buf[s.pos+i] != c {
			return false
		}
	}
	return true
}

// unescape materializes the unescaped content of an escaped quoted field.
// Unescaped fields never need this; the tape records the escaped flag so
// readers know when to call it.
func unescape(raw []byte, o *Options) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if o.Escape == o.CloseQuote {
			if c == o.CloseQuote && i+1 < len(raw) && raw[i+1] == o.CloseQuote {
				out = append(out, c)
				i++
				continue
			}
		} else if c == o.Escape && i+1 < len(raw) {
			out = append(out, raw[i+1])
			i++
			continue
		}
		out = append(out, c)
	}
	return out
}
