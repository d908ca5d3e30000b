package rtspclient

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/djwackey/gitea/log"
	"github.com/stretchr/testify/require"

	"github.com/djwackey/dorps/config"
)

func TestMain(m *testing.M) {
	log.NewLogger(0, "console", `{"level":1,"filename":"test.log"}`)
	os.Exit(m.Run())
}

// stubUpstream is a canned RTSP server: it reads one request at a time and
// answers by method, recording every request it saw.
type stubUpstream struct {
	listener net.Listener
	port     int
	requests chan string
}

func startStubUpstream(t *testing.T) *stubUpstream {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	addr := listener.Addr().String()
	port, err := strconv.Atoi(addr[strings.LastIndex(addr, ":")+1:])
	require.NoError(t, err)

	s := &stubUpstream{listener: listener, port: port, requests: make(chan string, 16)}
	go s.serve()
	return s
}

func (s *stubUpstream) serve() {
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	br := bufio.NewReader(conn)
	for {
		request, method, cseq, ok := readStubRequest(br)
		if !ok {
			return
		}
		s.requests <- request

		switch method {
		case "DESCRIBE":
			body := "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=Test Stream\r\nt=0 0\r\nm=video 0 RTP/AVP 96\r\n"
			fmt.Fprintf(conn, "RTSP/1.0 200 OK\r\nCSeq: %s\r\n"+
				"Content-Type: application/sdp\r\nContent-Length: %d\r\n\r\n%s", cseq, len(body), body)
		case "OPTIONS":
			fmt.Fprintf(conn, "RTSP/1.0 200 OK\r\nCSeq: %s\r\n"+
				"Public: OPTIONS\r\nPublic: DESCRIBE\r\n\r\n", cseq)
		case "PAUSE":
			fmt.Fprintf(conn, "RTSP/1.0 455 Method Not Valid in This State\r\nCSeq: %s\r\n\r\n", cseq)
		default:
			fmt.Fprintf(conn, "RTSP/1.0 200 OK\r\nCSeq: %s\r\nSession: E1155C20\r\n\r\n", cseq)
		}
	}
}

func readStubRequest(br *bufio.Reader) (request, method, cseq string, ok bool) {
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return "", "", "", false
		}
		request += line

		trimmed := strings.TrimRight(line, "\r\n")
		if method == "" {
			method = strings.SplitN(trimmed, " ", 2)[0]
			continue
		}
		if strings.HasPrefix(trimmed, "CSeq:") {
			cseq = strings.TrimSpace(trimmed[5:])
		}
		if trimmed == "" {
			return request, method, cseq, true
		}
	}
}

func newTestClient(t *testing.T, s *stubUpstream, cfg *config.UpstreamConf) *RTSPClient {
	t.Helper()
	if cfg == nil {
		cfg = &config.UpstreamConf{}
	}
	cfg.Address = "127.0.0.1"
	cfg.Port = s.port
	if cfg.MediaPath == "" {
		cfg.MediaPath = "stream"
	}

	c := New("rtsp://127.0.0.1/stream", cfg)
	require.True(t, c.Open())
	require.True(t, c.Connected())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientOptions(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, nil)

	require.True(t, c.Options())
	require.Equal(t, 200, c.Status())
	require.Equal(t, "OK", c.StatusMessage())
	require.Equal(t, []string{"OPTIONS", "DESCRIBE"}, c.Header("Public"))
	require.Equal(t, []string{"OPTIONS", "DESCRIBE"}, c.Header("public"))
}

func TestClientDescribe(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, nil)

	body := c.Describe()
	require.NotEmpty(t, body)
	require.True(t, strings.HasPrefix(string(body), "v=0\r\n"))
	require.Equal(t, []string{"application/sdp"}, c.Header("Content-Type"))

	request := <-s.requests
	require.Contains(t, request, "DESCRIBE rtsp://127.0.0.1:"+strconv.Itoa(s.port)+"/stream RTSP/1.0\r\n")
	require.Contains(t, request, "Accept: application/sdp\r\n")
}

func TestClientForwardedHeaders(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, nil)

	c.AddRequestHeader("Transport", "RTP/AVP;unicast;client_port=37175-37176")
	c.AddRequestHeader("Session", "E1155C20")
	require.True(t, c.Setup())

	request := <-s.requests
	require.Contains(t, request, "Transport: RTP/AVP;unicast;client_port=37175-37176\r\n")
	require.Contains(t, request, "Session: E1155C20\r\n")
	// the forwarded Transport suppresses the configured default
	require.Equal(t, 1, strings.Count(request, "Transport:"))
}

func TestClientDefaultSetupTransport(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, &config.UpstreamConf{RtpPortMin: 45000, RtpPortMax: 45100, Transport: "udp"})

	require.True(t, c.Setup())

	request := <-s.requests
	require.Contains(t, request, "Transport: RTP/AVP;unicast;client_port=45000-45001\r\n")
}

func TestClientReset(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, nil)

	c.AddRequestHeader("Session", "E1155C20")
	require.True(t, c.Options())
	require.NotEmpty(t, c.Header("Public"))

	c.Reset()
	require.Zero(t, c.Status())
	require.Empty(t, c.StatusMessage())
	require.Empty(t, c.Header("Public"))
	require.True(t, c.Connected())

	// the cleared Session header is not sent again
	require.True(t, c.Teardown())
	<-s.requests
	request := <-s.requests
	require.NotContains(t, request, "Session: E1155C20\r\n")
}

func TestClientWriteFailureClearsStatus(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, nil)

	require.True(t, c.Options())
	require.Equal(t, 200, c.Status())
	require.NotEmpty(t, c.Header("Public"))

	// no further writes reach the upstream
	require.NoError(t, c.tcpConn.CloseWrite())

	// the failed command must not answer with the previous command's
	// recorded status and headers
	require.False(t, c.Do("PAUSE"))
	require.Zero(t, c.Status())
	require.Empty(t, c.StatusMessage())
	require.Empty(t, c.Header("Public"))
}

func TestClientNonOKStatusRecorded(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, nil)

	require.False(t, c.Do("PAUSE"))
	require.Equal(t, 455, c.Status())
	require.Equal(t, "Method Not Valid in This State", c.StatusMessage())
}

func TestClientCSeqIncrements(t *testing.T) {
	s := startStubUpstream(t)
	c := newTestClient(t, s, nil)

	require.True(t, c.Options())
	require.True(t, c.Do("GET_PARAMETER"))

	first := <-s.requests
	second := <-s.requests
	require.Contains(t, first, "CSeq: 1\r\n")
	require.Contains(t, second, "CSeq: 2\r\n")
}

func TestClientOpenFailure(t *testing.T) {
	c := New("rtsp://127.0.0.1/stream", &config.UpstreamConf{Address: "127.0.0.1", Port: 1})
	require.False(t, c.Connected())
	// port 1 should refuse immediately
	require.False(t, c.Open())
}

func TestParseRTSPURL(t *testing.T) {
	parsed, result := parseRTSPURL("rtsp://192.168.1.105:8554/test.264/track1")
	require.True(t, result)
	require.Equal(t, "192.168.1.105", parsed.address)
	require.Equal(t, 8554, parsed.port)
	require.Equal(t, "test.264/track1", parsed.streamName)

	parsed, result = parseRTSPURL("rtsp://camera.local/stream")
	require.True(t, result)
	require.Equal(t, 554, parsed.port)

	_, result = parseRTSPURL("http://camera.local/stream")
	require.False(t, result)
}
