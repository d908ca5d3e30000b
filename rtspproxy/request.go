package rtspproxy

import (
	"bufio"
	"errors"
	"regexp"
	"strings"
)

// MethodKind is the closed set of methods the relay dispatches on. Every
// method outside the set is proxied through the generic path, never rejected.
type MethodKind int

const (
	MethodGeneric MethodKind = iota
	MethodOptions
	MethodDescribe
	MethodSetup
	MethodPlay
	MethodTeardown
)

var methodKinds = map[string]MethodKind{
	"OPTIONS":  MethodOptions,
	"DESCRIBE": MethodDescribe,
	"SETUP":    MethodSetup,
	"PLAY":     MethodPlay,
	"TEARDOWN": MethodTeardown,
}

// ErrMalformedStartLine is returned when the request line cannot be parsed.
// The caller must answer with a bare 403 and must not parse headers.
var ErrMalformedStartLine = errors.New("malformed RTSP request line")

var (
	startLineRegexp = regexp.MustCompile(`^(\S+)[ \t]+(\S+)(?:[ \t]+(\S+))?$`)
	protocolRegexp  = regexp.MustCompile(`(?i)^RTSP/1\.[0-9]$`)
	headerRegexp    = regexp.MustCompile(`^([A-Za-z0-9-]+)[ \t]*:[ \t]*(.*)$`)
)

// Request is one parsed downstream RTSP request. Header keys are stored
// exactly as received; duplicate names within one request last-write-wins.
type Request struct {
	Method string
	URI    string
	Proto  string
	Header map[string]string
}

func (r *Request) Kind() MethodKind {
	kind, existed := methodKinds[r.Method]
	if !existed {
		return MethodGeneric
	}
	return kind
}

// ReadRequest consumes terminator-delimited lines from br until one request
// is fully formed or the stream ends. A terminator-only line before any
// start line is the idle keep-alive path: the empty request is discarded
// silently and (nil, nil) is returned. Header lines that do not parse are
// dropped without aborting the request.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, nil
	}

	fields := startLineRegexp.FindStringSubmatch(line)
	if fields == nil || !protocolRegexp.MatchString(fields[3]) {
		return nil, ErrMalformedStartLine
	}

	req := &Request{
		Method: strings.ToUpper(fields[1]),
		URI:    fields[2],
		Proto:  fields[3],
		Header: make(map[string]string),
	}

	for {
		line, err = readLine(br)
		if err != nil {
			// Stream ended before the terminating blank line; the
			// incomplete request is discarded.
			return nil, err
		}
		if line == "" {
			break
		}

		if header := headerRegexp.FindStringSubmatch(line); header != nil {
			req.Header[header[1]] = header[2]
		}
	}

	return req, nil
}

// DrainRequest discards the remainder of a rejected request, reading lines
// until the terminating blank line or the end of the stream. Nothing is
// parsed; the lines are thrown away.
func DrainRequest(br *bufio.Reader) error {
	for {
		line, err := readLine(br)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		// A trailing fragment without its terminator is discarded with
		// the rest of the incomplete request.
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
