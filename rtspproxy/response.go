package rtspproxy

import (
	"fmt"
	"io"
	"strings"
)

// The upstream never explains itself through errors, only through status
// codes; these are the proxy's own answers for the cases where no upstream
// status exists.
const (
	statusCodeMalformed   = 403
	statusCodeUnreachable = 404
	statusCodeNoStatus    = 405

	statusMsgBadRequest = "Bad request"
	statusMsgNotFound   = "Resource not found"
)

// Response is one downstream RTSP response. Headers keep their append
// order; the same name may appear more than once.
type Response struct {
	Code    int
	Message string
	Body    []byte

	headerNames  []string
	headerValues []string
}

func (r *Response) AddHeader(name, value string) {
	r.headerNames = append(r.headerNames, name)
	r.headerValues = append(r.headerValues, value)
}

// Header returns every value recorded under name, in append order.
func (r *Response) Header(name string) []string {
	var values []string
	for i, headerName := range r.headerNames {
		if headerName == name {
			values = append(values, r.headerValues[i])
		}
	}
	return values
}

// Bytes serializes the response into its wire form, ready for one write.
func (r *Response) Bytes() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "RTSP/1.0 %d %s\r\n", r.Code, r.Message)
	for i, name := range r.headerNames {
		fmt.Fprintf(&b, "%s: %s\r\n", name, r.headerValues[i])
	}
	b.WriteString("\r\n")
	if len(r.Body) > 0 {
		b.Write(r.Body)
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}

// writeBareStatus answers a request whose start line could not be parsed.
// No session exists yet, so the full response path is bypassed.
func writeBareStatus(w io.Writer, code int, message string) error {
	_, err := fmt.Fprintf(w, "%d %s\r\n\r\n", code, message)
	return err
}
