package engine

import "strings"

// toZygo rewrites .vtree source into zygomys syntax. Keywords become marker
// strings that parseArgs recognizes, kebab-case names become snake_case
// since zygomys reads a bare hyphen as subtraction, and ; comments become
// // comments. String literals pass through unchanged.
func toZygo(source string) string {
	sc := scanner{src: source}
	sc.out.Grow(len(source) + len(source)/4)
	for !sc.done() {
		switch c := sc.peek(); {
		case c == '"':
			sc.literal('"', true)
		case c == '`':
			sc.literal('`', false)
		case c == ';':
			sc.comment()
		case c == ':' && isLetter(sc.at(1)):
			sc.keyword()
		case isLetter(c):
			sc.name()
		default:
			sc.copy(1)
		}
	}
	return sc.out.String()
}

// scanner walks .vtree source one token at a time.
type scanner struct {
	src string
	pos int
	out strings.Builder
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte { return s.at(0) }

// at returns the byte off positions ahead, or 0 past the end.
func (s *scanner) at(off int) byte {
	if i := s.pos + off; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func (s *scanner) copy(n int) {
	s.out.WriteString(s.src[s.pos : s.pos+n])
	s.pos += n
}

// literal copies a quoted literal through its closing quote, or to the end
// of the source if it is unterminated. Backslash escapes only apply inside
// double quotes.
func (s *scanner) literal(quote byte, escapes bool) {
	end := s.pos + 1
	for end < len(s.src) && s.src[end] != quote {
		if escapes && s.src[end] == '\\' {
			end++
		}
		end++
	}
	if end < len(s.src) {
		end++
	}
	s.copy(min(end, len(s.src)) - s.pos)
}

// comment replaces a run of semicolons with // and keeps the rest of the
// line.
func (s *scanner) comment() {
	for s.peek() == ';' {
		s.pos++
	}
	s.out.WriteString("//")
	n := strings.IndexByte(s.src[s.pos:], '\n')
	if n < 0 {
		n = len(s.src) - s.pos
	}
	s.copy(n)
}

// keyword turns :relative-positions into "__kw_relative-positions".
func (s *scanner) keyword() {
	s.pos++
	start := s.pos
	for !s.done() && isKeywordChar(s.peek()) {
		s.pos++
	}
	s.out.WriteString(`"` + kwPrefix + s.src[start:s.pos] + `"`)
}

// name copies an identifier, joining kebab-case parts with underscores. A
// hyphen only joins when a letter follows it, so x-1 keeps its minus.
func (s *scanner) name() {
	for !s.done() {
		switch c := s.peek(); {
		case isLetter(c) || isDigit(c) || c == '_':
			s.out.WriteByte(c)
		case c == '-' && isLetter(s.at(1)):
			s.out.WriteByte('_')
		default:
			return
		}
		s.pos++
	}
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func isKeywordChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}
