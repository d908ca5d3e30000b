package rtspproxy

import (
	"bufio"
	"io"
	"net"
	"strings"

	"github.com/djwackey/gitea/log"
	"github.com/google/uuid"
)

// RTSPClientConnection handles one downstream connection. Requests are
// processed strictly in order: read one request, relay it upstream, write
// one response, repeat until the stream closes.
type RTSPClientConnection struct {
	id         string
	socket     net.Conn
	reader     *bufio.Reader
	localPort  string
	remotePort string
	localAddr  string
	remoteAddr string
	registry   Registry
	server     *RTSPProxyServer
}

func newRTSPClientConnection(server *RTSPProxyServer, socket net.Conn) *RTSPClientConnection {
	localAddr := strings.Split(socket.LocalAddr().String(), ":")
	remoteAddr := strings.Split(socket.RemoteAddr().String(), ":")
	return &RTSPClientConnection{
		id:         uuid.NewString(),
		server:     server,
		socket:     socket,
		reader:     bufio.NewReader(socket),
		localAddr:  localAddr[0],
		localPort:  localAddr[1],
		remoteAddr: remoteAddr[0],
		remotePort: remoteAddr[1],
	}
}

func (c *RTSPClientConnection) destroy() error {
	if session := c.registry.Session(); session != nil {
		session.Client.Close()
	}
	return c.socket.Close()
}

func (c *RTSPClientConnection) incomingRequestHandler() {
	defer c.destroy()

	for {
		req, err := ReadRequest(c.reader)
		switch {
		case err == ErrMalformedStartLine:
			// Reject without creating or touching a session. Header
			// parsing is skipped entirely for this request; the rest
			// of its lines are discarded so one bad request draws
			// exactly one rejection.
			if err = writeBareStatus(c.socket, statusCodeMalformed, statusMsgBadRequest); err != nil {
				log.Error(4, "failed to send response buffer: %v", err)
				return
			}
			if err = DrainRequest(c.reader); err != nil {
				log.Info("end connection[%s:%s].", c.remoteAddr, c.remotePort)
				return
			}
			continue
		case err != nil:
			if err != io.EOF {
				log.Error(4, "failed to read request: %v", err)
			}
			log.Info("end connection[%s:%s].", c.remoteAddr, c.remotePort)
			return
		case req == nil:
			// Terminator-only line between requests: idle keep-alive.
			continue
		}

		log.Info("received a complete %s request for %s.", req.Method, req.URI)

		session, err := c.registry.GetOrCreate(c.server.upstream, req.URI, c.server.dial)
		if err != nil {
			log.Error(4, "cannot create upstream session: %v", err)
			return
		}

		resp := Relay(req, session)
		if _, err = c.socket.Write(resp.Bytes()); err != nil {
			log.Error(4, "failed to send response buffer: %v", err)
			return
		}

		c.server.logAccess(c, req, resp)
	}
}
