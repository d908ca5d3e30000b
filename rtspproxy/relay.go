package rtspproxy

import "strconv"

// UpstreamClient is the upstream RTSP capability the relay drives. Command
// operations report success as a boolean and never return errors; their
// outcome is read back through the status and header accessors.
type UpstreamClient interface {
	Open() bool
	Connected() bool
	Reset()
	Close() error

	Setup() bool
	Describe() []byte
	Options() bool
	Teardown() bool
	Do(method string) bool

	AddRequestHeader(name, value string)
	Status() int
	StatusMessage() string
	Header(name string) []string
}

// Header names copied from the downstream request into the upstream one.
// Everything else is dropped, never forwarded.
var passRequestHeaders = []string{
	"Accept",
	"Bandwidth",
	"Accept-Language",
	"ClientChallenge",
	"PlayerStarttime",
	"RegionData",
	"GUID",
	"ClientID",
	"Transport",
	"Session",
	"x-retransmit",
	"x-dynamic-rate",
	"x-transport-options",
}

// Header names copied from the upstream response back downstream.
var passResponseHeaders = []string{
	"Content-Type",
	"Content-Base",
	"Public",
	"Allow",
	"Transport",
	"Session",
}

// Sequence header name variants echoed back verbatim; peers do not agree on
// the casing of CSeq, so each variant present is echoed under its own name.
var cseqHeaderNames = []string{"CSeq", "Cseq", "cseq"}

// upstreamOps maps each method variant to its upstream operation. Only
// DESCRIBE produces a response body.
var upstreamOps = map[MethodKind]func(UpstreamClient, *Request) []byte{
	MethodSetup:    func(c UpstreamClient, r *Request) []byte { c.Setup(); return nil },
	MethodDescribe: func(c UpstreamClient, r *Request) []byte { return c.Describe() },
	MethodOptions:  func(c UpstreamClient, r *Request) []byte { c.Options(); return nil },
	MethodTeardown: func(c UpstreamClient, r *Request) []byte { c.Teardown(); return nil },
	MethodPlay:     func(c UpstreamClient, r *Request) []byte { c.Do(r.Method); return nil },
	MethodGeneric:  func(c UpstreamClient, r *Request) []byte { c.Do(r.Method); return nil },
}

// Relay proxies one parsed request through the session's upstream client
// and builds the downstream response. The session's client state is mutated
// as a side effect: the upstream connection may be opened, and accumulated
// request/response state is reset around certain methods.
func Relay(req *Request, session *Session) *Response {
	client := session.Client
	kind := req.Kind()

	// Players commonly issue PLAY right after SETUP; state left over from
	// the previous command must not leak into playback.
	if kind == MethodPlay {
		client.Reset()
	}

	if !client.Connected() && !client.Open() {
		resp := &Response{Code: statusCodeUnreachable, Message: statusMsgNotFound}
		echoSequenceHeaders(req, resp)
		return resp
	}

	for _, name := range passRequestHeaders {
		if value, existed := req.Header[name]; existed {
			client.AddRequestHeader(name, value)
		}
	}

	body := upstreamOps[kind](client, req)

	code, message := client.Status(), client.StatusMessage()
	if code == 0 {
		code, message = statusCodeNoStatus, statusMsgBadRequest
	}

	resp := &Response{Code: code, Message: message}
	for _, name := range passResponseHeaders {
		for _, value := range client.Header(name) {
			resp.AddHeader(name, value)
		}
	}
	echoSequenceHeaders(req, resp)

	if len(body) > 0 {
		resp.AddHeader("Content-Length", strconv.Itoa(len(body)))
		resp.Body = body
	}

	// The TCP connection stays warm for the next command, but each command
	// must start from a clean upstream request/response context.
	switch kind {
	case MethodSetup, MethodDescribe, MethodTeardown:
		client.Reset()
	}

	return resp
}

func echoSequenceHeaders(req *Request, resp *Response) {
	for _, name := range cseqHeaderNames {
		if value, existed := req.Header[name]; existed {
			resp.AddHeader(name, value)
		}
	}
}
