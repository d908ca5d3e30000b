package rtspclient

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/djwackey/gitea/log"

	"github.com/djwackey/dorps/config"
	gs "github.com/djwackey/dorps/groupsock"
)

const mediaClientVersion = "1.0.0.3"

// RTSPClient is a blocking upstream RTSP client bound to one media URI and
// one upstream configuration. One command at a time: build the request,
// write it, read the full response, record status and headers. Request
// headers and recorded response state accumulate until Reset.
type RTSPClient struct {
	baseURL            string
	serverAddress      string
	serverPort         int
	userAgentHeaderStr string
	transport          string
	rtpPortMin         int
	rtpPortMax         int
	options            map[string]string
	cseq               int
	tcpConn            *net.TCPConn
	reader             *bufio.Reader

	requestHeaderNames  []string
	requestHeaderValues []string

	statusCode    int
	statusMessage string

	respHeaderNames  []string
	respHeaderValues []string
}

// New binds a client to rtspURL and cfg without connecting. When the
// configuration names an upstream address, it overrides the URL's host and
// path; otherwise the URL itself is authoritative.
func New(rtspURL string, cfg *config.UpstreamConf) *RTSPClient {
	c := new(RTSPClient)

	appName := "dorps"
	libName := "Dor Streaming Media v"
	c.userAgentHeaderStr = fmt.Sprintf("User-Agent: %s (%s%s)\r\n", appName, libName, mediaClientVersion)

	c.baseURL = rtspURL
	if parsed, result := parseRTSPURL(rtspURL); result {
		c.serverAddress = parsed.address
		c.serverPort = parsed.port
	}

	if cfg != nil {
		c.transport = cfg.Transport
		c.rtpPortMin = cfg.RtpPortMin
		c.rtpPortMax = cfg.RtpPortMax
		c.options = cfg.Options

		if cfg.Address != "" {
			c.serverAddress = cfg.Address
			c.serverPort = cfg.Port
			if c.serverPort == 0 {
				c.serverPort = 554
			}
			if cfg.MediaPath != "" {
				c.baseURL = fmt.Sprintf("rtsp://%s:%d/%s",
					cfg.Address, c.serverPort, strings.TrimPrefix(cfg.MediaPath, "/"))
			}
		}
	}

	return c
}

// Open dials the upstream server. It reports failure instead of returning
// an error; the relay answers such failures at the protocol level.
func (c *RTSPClient) Open() bool {
	if c.serverAddress == "" {
		log.Error(4, "no upstream address to connect to for %s", c.baseURL)
		return false
	}

	conn, err := gs.DialTCP(c.serverAddress, c.serverPort)
	if err != nil {
		log.Error(4, "failed to connect to upstream %s:%d.%s", c.serverAddress, c.serverPort, err.Error())
		return false
	}

	log.Info("upstream connection opened to %s:%d.", c.serverAddress, c.serverPort)
	c.tcpConn = conn
	c.reader = bufio.NewReader(conn)
	return true
}

func (c *RTSPClient) Connected() bool {
	return c.tcpConn != nil
}

// Reset clears the accumulated request headers and the recorded response
// state. The TCP connection stays open for the next command.
func (c *RTSPClient) Reset() {
	c.requestHeaderNames = nil
	c.requestHeaderValues = nil
	c.statusCode = 0
	c.statusMessage = ""
	c.respHeaderNames = nil
	c.respHeaderValues = nil
}

func (c *RTSPClient) Close() error {
	if c.tcpConn == nil {
		return nil
	}
	err := c.tcpConn.Close()
	c.tcpConn = nil
	c.reader = nil
	return err
}

// AddRequestHeader schedules one header line for the next command.
func (c *RTSPClient) AddRequestHeader(name, value string) {
	c.requestHeaderNames = append(c.requestHeaderNames, name)
	c.requestHeaderValues = append(c.requestHeaderValues, value)
}

func (c *RTSPClient) Setup() bool {
	return c.command("SETUP")
}

func (c *RTSPClient) Options() bool {
	return c.command("OPTIONS")
}

func (c *RTSPClient) Teardown() bool {
	return c.command("TEARDOWN")
}

func (c *RTSPClient) Do(method string) bool {
	return c.command(method)
}

// Describe issues a DESCRIBE and returns the response body, normally an SDP
// session description.
func (c *RTSPClient) Describe() []byte {
	body, ok := c.commandWithBody("DESCRIBE")
	if !ok {
		return nil
	}
	if len(body) > 0 {
		c.logDescription(body)
	}
	return body
}

func (c *RTSPClient) Status() int {
	return c.statusCode
}

func (c *RTSPClient) StatusMessage() string {
	return c.statusMessage
}

// Header returns every value the upstream recorded under name, in wire
// order. Header names compare case-insensitively.
func (c *RTSPClient) Header(name string) []string {
	var values []string
	for i, headerName := range c.respHeaderNames {
		if strings.EqualFold(headerName, name) {
			values = append(values, c.respHeaderValues[i])
		}
	}
	return values
}

// Option exposes the opaque upstream option bag, passed through unmodified
// from the configuration.
func (c *RTSPClient) Option(key string) string {
	return c.options[key]
}

func (c *RTSPClient) command(method string) bool {
	_, ok := c.commandWithBody(method)
	return ok
}

func (c *RTSPClient) commandWithBody(method string) ([]byte, bool) {
	// Forget the previous command's outcome before anything can fail: a
	// failed command must leave no recorded status or headers behind.
	c.statusCode = 0
	c.statusMessage = ""
	c.respHeaderNames = nil
	c.respHeaderValues = nil

	if c.tcpConn == nil {
		return nil, false
	}

	c.cseq++
	cmd := fmt.Sprintf("%s %s RTSP/1.0\r\nCSeq: %d\r\n%s%s%s\r\n",
		method, c.baseURL, c.cseq, c.userAgentHeaderStr, c.extraHeaders(method), c.headerLines())

	if _, err := c.tcpConn.Write([]byte(cmd)); err != nil {
		log.Error(4, "failed to send %s request.%s", method, err.Error())
		return nil, false
	}

	return c.readResponse()
}

// extraHeaders supplies per-method defaults the downstream did not provide.
func (c *RTSPClient) extraHeaders(method string) string {
	switch method {
	case "DESCRIBE":
		if !c.hasRequestHeader("Accept") {
			return "Accept: application/sdp\r\n"
		}
	case "SETUP":
		if !c.hasRequestHeader("Transport") {
			return c.defaultTransportHeader()
		}
	}
	return ""
}

// defaultTransportHeader builds a Transport header from the configured
// transport protocol and RTP port range.
func (c *RTSPClient) defaultTransportHeader() string {
	if strings.EqualFold(c.transport, "tcp") {
		return "Transport: RTP/AVP/TCP;unicast;interleaved=0-1\r\n"
	}

	rtpPort := c.rtpPortMin
	if rtpPort == 0 {
		return ""
	}
	return fmt.Sprintf("Transport: RTP/AVP;unicast;client_port=%d-%d\r\n", rtpPort, rtpPort+1)
}

func (c *RTSPClient) hasRequestHeader(name string) bool {
	for _, headerName := range c.requestHeaderNames {
		if strings.EqualFold(headerName, name) {
			return true
		}
	}
	return false
}

func (c *RTSPClient) headerLines() string {
	var b strings.Builder
	for i, name := range c.requestHeaderNames {
		fmt.Fprintf(&b, "%s: %s\r\n", name, c.requestHeaderValues[i])
	}
	return b.String()
}

// readResponse reads one full upstream response: status line, headers until
// the blank line, then a body of Content-Length bytes.
func (c *RTSPClient) readResponse() ([]byte, bool) {
	line, err := c.readLine()
	if err != nil {
		log.Error(4, "failed to read upstream response.%s", err.Error())
		return nil, false
	}

	code, message, result := parseResponseLine(line)
	if !result {
		log.Error(4, "could not parse upstream response line: %s", line)
		return nil, false
	}

	var contentLength int
	for {
		line, err = c.readLine()
		if err != nil {
			log.Error(4, "failed to read upstream response header.%s", err.Error())
			return nil, false
		}
		if line == "" {
			break
		}

		name, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		if strings.EqualFold(name, "Content-Length") {
			contentLength, _ = strconv.Atoi(value)
		}
		c.respHeaderNames = append(c.respHeaderNames, name)
		c.respHeaderValues = append(c.respHeaderValues, value)
	}

	var body []byte
	if contentLength > 0 {
		body = make([]byte, contentLength)
		if _, err = io.ReadFull(c.reader, body); err != nil {
			log.Error(4, "failed to read upstream response body.%s", err.Error())
			return nil, false
		}
	}

	c.statusCode, c.statusMessage = code, message
	return body, code == 200
}

func (c *RTSPClient) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseResponseLine(line string) (code int, message string, result bool) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "RTSP/") {
		return 0, "", false
	}

	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", false
	}
	if len(parts) == 3 {
		message = parts[2]
	}
	return code, message, true
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	index := strings.Index(line, ":")
	if index <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:index]), strings.TrimSpace(line[index+1:]), true
}

type rtspURL struct {
	streamName string
	address    string
	port       int
}

// parseRTSPURL parses "rtsp://<server-address-or-name>[:<port>][/<stream-name>]".
// Credentials in the URL are not supported; the proxy does not authenticate.
func parseRTSPURL(url string) (*rtspURL, bool) {
	parsed := new(rtspURL)
	var result bool
	for {
		prefix := "rtsp://"
		if !strings.HasPrefix(url, prefix) {
			log.Error(4, "URL is not of the form \"%s\": %s", prefix, url)
			break
		}

		substrings := strings.Split(url[len(prefix):], "/")
		if len(substrings) > 1 {
			parsed.streamName = strings.Join(substrings[1:], "/")
		}

		substrings = strings.Split(substrings[0], ":")
		if len(substrings) > 1 {
			parsed.port, _ = strconv.Atoi(substrings[1])
			if parsed.port < 1 || parsed.port > 65535 {
				log.Error(4, "bad port number in URL: %s", url)
				break
			}
		} else {
			parsed.port = 554 // default
		}

		parsed.address = substrings[0]
		if parsed.address == "" {
			break
		}
		result = true
		break
	}
	return parsed, result
}
