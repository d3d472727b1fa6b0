package imap

import (
	"bytes"
	"strings"

	"github.com/go-kit/kit/log/level"
)

// Constants

// AcceptedTagChars lists every character a client may
// use in a tag.
const AcceptedTagChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	"!@#$%^&-=_`~\\|'\";:,.<>/?"

// Structs

// Request holds tag and command name of the request
// currently being processed. Both are always set together.
type Request struct {
	Tag     string
	Command string
}

// Functions

// ValidTag reports whether tag consists of accepted
// tag characters only.
func ValidTag(tag string) bool {

	for i := 0; i < len(tag); i++ {

		if strings.IndexByte(AcceptedTagChars, tag[i]) < 0 {
			return false
		}
	}

	return true
}

// trimEOL strips one trailing LF or CRLF.
func trimEOL(b []byte) []byte {

	b = bytes.TrimSuffix(b, []byte("\n"))

	return bytes.TrimSuffix(b, []byte("\r"))
}

// tokenize consumes one chunk of input. If no request
// is pending it parses tag and command first, the rest
// is always handed to the argument builder. It returns
// false if the chunk did not start or continue a request,
// in which case the caller waits for the next line.
func (s *Session) tokenize(chunk []byte) bool {

	if len(chunk) == 0 {
		return false
	}

	rest := chunk

	if s.req == nil {

		line := trimEOL(chunk)
		if len(line) == 0 {
			return false
		}

		s.parserState = false
		level.Info(s.logger).Log("msg", "received command", "line", string(line))

		// Tag.
		i := bytes.IndexByte(line, ' ')
		if i < 0 {

			if ValidTag(string(line)) {
				s.send("%s BAD No command specified\r\n", line)
			} else {
				s.send("* BAD Invalid tag specified\r\n")
			}

			s.errorCount++
			s.engine.Metrics.Faults.Add(1)
			s.commandState = CommandDone

			return false
		}

		tag := string(line[:i])
		if tag == "" || !ValidTag(tag) {

			s.send("* BAD Invalid tag specified\r\n")
			s.errorCount++
			s.engine.Metrics.Faults.Add(1)
			s.commandState = CommandDone

			return false
		}

		// Command.
		line = line[(i + 1):]

		j := bytes.IndexByte(line, ' ')
		if j < 0 {
			j = len(line)
		}

		s.req = &Request{
			Tag:     tag,
			Command: string(line[:j]),
		}

		rest = line[j:]
	}

	res := s.engine.Args.Build(s, rest)

	switch res.State {

	case ParseComplete:
		s.args = res.Args
		if s.args == nil {
			s.args = []string{}
		}
		s.literalRemaining = 0
		s.parserState = true

	case ParseIncomplete:
		s.literalRemaining = res.Need
		s.parserState = false

	default:
		s.args = nil
		s.literalRemaining = 0
		s.parserState = true
	}

	level.Debug(s.logger).Log("msg", "tokenized", "parser_state", s.parserState, "literal", s.literalRemaining)

	return true
}
