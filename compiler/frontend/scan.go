package frontend

import "strconv"

// scanner is a byte-position cursor over a single source file, in the
// same spirit as the teacher's parse.State: a []byte plus an int
// index, every read returning ok/not-ok rather than panicking.
type scanner struct {
	name string
	src  []byte
	pos  int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// skipSpace skips whitespace and #-to-end-of-line comments, the same
// two skip classes the teacher's Spaces type recognizes plus comments.
func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]

		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			s.pos++
			continue
		}

		if c == '#' {
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}

			continue
		}

		break
	}
}

func (s *scanner) eof() bool {
	s.skipSpace()
	return s.pos >= len(s.src)
}

func (s *scanner) ident() (string, bool) {
	s.skipSpace()

	st := s.pos
	if st >= len(s.src) || !isIdentStart(s.src[st]) {
		return "", false
	}

	i := st + 1
	for i < len(s.src) && isIdentCont(s.src[i]) {
		i++
	}

	s.pos = i

	return string(s.src[st:i]), true
}

func (s *scanner) number() (uint64, bool) {
	s.skipSpace()

	st := s.pos

	if st+1 < len(s.src) && s.src[st] == '0' && (s.src[st+1] == 'x' || s.src[st+1] == 'X') {
		i := st + 2
		j := i

		for j < len(s.src) && isHex(s.src[j]) {
			j++
		}

		if j == i {
			return 0, false
		}

		v, err := strconv.ParseUint(string(s.src[i:j]), 16, 64)
		if err != nil {
			return 0, false
		}

		s.pos = j

		return v, true
	}

	i := st
	for i < len(s.src) && isDigit(s.src[i]) {
		i++
	}

	if i == st {
		return 0, false
	}

	v, err := strconv.ParseUint(string(s.src[st:i]), 10, 64)
	if err != nil {
		return 0, false
	}

	s.pos = i

	return v, true
}

func (s *scanner) consumeByte(c byte) bool {
	s.skipSpace()

	if s.pos < len(s.src) && s.src[s.pos] == c {
		s.pos++
		return true
	}

	return false
}

func (s *scanner) consumeToken(tok string) bool {
	s.skipSpace()

	end := s.pos + len(tok)
	if end <= len(s.src) && string(s.src[s.pos:end]) == tok {
		s.pos = end
		return true
	}

	return false
}

// consumeKeyword consumes an identifier only if it exactly matches
// kw, restoring position otherwise (so callers can try several
// keywords in sequence without consuming a mismatched identifier).
func (s *scanner) consumeKeyword(kw string) bool {
	save := s.pos

	id, ok := s.ident()
	if ok && id == kw {
		return true
	}

	s.pos = save

	return false
}
