package imap

import (
	"bytes"
	"strconv"
)

// Constants

// States an argument builder can report.
const (
	ParseMalformed ParseState = iota
	ParseIncomplete
	ParseComplete
)

// Interfaces

// ArgBuilder turns the remainder of a request line into
// the structured argument list. It is called again with
// every further chunk until it reports completion.
type ArgBuilder interface {
	Build(s *Session, chunk []byte) ArgResult
}

// Structs

// ParseState signals how far argument parsing got.
type ParseState int

// ArgResult is what an ArgBuilder returns. Need holds the
// number of literal bytes to read next when State is
// ParseIncomplete; zero then means "read the next line".
type ArgResult struct {
	State ParseState
	Args  []string
	Need  int
}

// IMAPArgs is the default ArgBuilder. It splits atoms,
// quoted strings and literals, flattens parenthesized
// lists into "(" and ")" tokens and keeps bracketed
// sections such as BODY[HEADER.FIELDS (FROM)] in one atom.
type IMAPArgs struct{}

// Functions

func malformed(s *Session) ArgResult {

	s.partial = nil
	s.literal = nil
	s.depth = 0

	return ArgResult{State: ParseMalformed}
}

// Build implements ArgBuilder.
func (IMAPArgs) Build(s *Session, chunk []byte) ArgResult {

	// Raw literal bytes.
	if s.literalRemaining > 0 {

		if len(chunk) > s.literalRemaining {
			return malformed(s)
		}

		s.literal = append(s.literal, chunk...)
		remaining := s.literalRemaining - len(chunk)

		if remaining > 0 {
			return ArgResult{State: ParseIncomplete, Need: remaining}
		}

		s.partial = append(s.partial, string(s.literal))
		s.literal = nil

		// The request continues on the next line.
		return ArgResult{State: ParseIncomplete}
	}

	line := trimEOL(chunk)

	for i := 0; i < len(line); {

		switch line[i] {

		case ' ':
			i++

		case '(':
			s.partial = append(s.partial, "(")
			s.depth++
			i++

		case ')':
			if s.depth == 0 {
				return malformed(s)
			}
			s.partial = append(s.partial, ")")
			s.depth--
			i++

		case '"':
			str, n, ok := quoted(line[i:])
			if !ok {
				return malformed(s)
			}
			s.partial = append(s.partial, str)
			i += n

		case '{':
			size, sync, ok := literalSpec(line[i:])
			if !ok || size > s.engine.MaxLiteralSize {
				return malformed(s)
			}

			if sync {
				s.Printf("+ OK\r\n")
			}

			if size == 0 {
				s.partial = append(s.partial, "")
			}

			return ArgResult{State: ParseIncomplete, Need: size}

		default:
			n := atom(line[i:])
			if n == 0 {
				return malformed(s)
			}
			s.partial = append(s.partial, string(line[i:(i+n)]))
			i += n
		}
	}

	if s.depth != 0 {
		return malformed(s)
	}

	args := s.partial
	if args == nil {
		args = []string{}
	}

	s.partial = nil

	return ArgResult{State: ParseComplete, Args: args}
}

// quoted parses a quoted string at the start of b and
// returns its unescaped value and the bytes consumed.
func quoted(b []byte) (string, int, bool) {

	var buf bytes.Buffer

	for i := 1; i < len(b); i++ {

		switch b[i] {
		case '\\':
			if i+1 >= len(b) {
				return "", 0, false
			}
			i++
			buf.WriteByte(b[i])
		case '"':
			return buf.String(), (i + 1), true
		default:
			buf.WriteByte(b[i])
		}
	}

	return "", 0, false
}

// literalSpec parses "{n}" or "{n+}", which has to end
// the line.
func literalSpec(b []byte) (int, bool, bool) {

	if len(b) < 3 || b[len(b)-1] != '}' {
		return 0, false, false
	}

	spec := b[1:(len(b) - 1)]

	sync := true
	if bytes.HasSuffix(spec, []byte("+")) {
		spec = spec[:(len(spec) - 1)]
		sync = false
	}

	size, err := strconv.Atoi(string(spec))
	if err != nil || size < 0 {
		return 0, false, false
	}

	return size, sync, true
}

// atom returns the length of the atom at the start of b.
// Spaces inside brackets belong to the atom.
func atom(b []byte) int {

	brackets := 0

	for i := 0; i < len(b); i++ {

		switch b[i] {
		case '[':
			brackets++
		case ']':
			if brackets > 0 {
				brackets--
			}
		case ' ', '(', ')':
			if brackets == 0 {
				return i
			}
		case '"', '{':
			if brackets == 0 && i == 0 {
				return 0
			}
		}
	}

	return len(b)
}
