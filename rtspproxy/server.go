package rtspproxy

import (
	"errors"
	"fmt"
	"log"
	"net"
	"path/filepath"

	lg "github.com/djwackey/gitea/log"
	"github.com/libp2p/go-reuseport"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/djwackey/dorps/config"
	gs "github.com/djwackey/dorps/groupsock"
	"github.com/djwackey/dorps/rtspclient"
	"github.com/djwackey/dorps/utils"
)

// RTSPProxyServer accepts downstream RTSP connections and relays each one
// to the configured upstream source. Concurrency exists only across
// connections; within a connection everything is sequential.
type RTSPProxyServer struct {
	urlPrefix  string
	rtspPort   int
	rtspListen net.Listener
	upstream   *config.UpstreamConf
	dial       DialFunc
	accessLog  *log.Logger
	accessOut  *lumberjack.Logger
}

func New(conf *config.Config) *RTSPProxyServer {
	s := &RTSPProxyServer{
		upstream: conf.Upstream,
		dial: func(uri string, cfg *config.UpstreamConf) UpstreamClient {
			return rtspclient.New(uri, cfg)
		},
	}
	s.setupAccessLog(&conf.Log)
	return s
}

func (s *RTSPProxyServer) Destroy() {
	if s.rtspListen != nil {
		s.rtspListen.Close()
	}
	if s.accessOut != nil {
		s.accessOut.Close()
	}
}

func (s *RTSPProxyServer) Listen(portNum int) error {
	s.rtspPort = portNum

	var err error
	s.rtspListen, err = reuseport.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", portNum))
	return err
}

func (s *RTSPProxyServer) Start() {
	go s.incomingConnectionHandler(s.rtspListen)
}

func (s *RTSPProxyServer) RtspURLPrefix() string {
	s.urlPrefix, _ = gs.OurIPAddress()
	return fmt.Sprintf("rtsp://%s:%d/", s.urlPrefix, s.rtspPort)
}

func (s *RTSPProxyServer) incomingConnectionHandler(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			lg.Error(0, "failed to accept client.%s", err.Error())
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetReadBuffer(50 * 1024)
		}

		// Create a new object for handling this downstream connection:
		go s.newClientConnection(conn)
	}
}

func (s *RTSPProxyServer) newClientConnection(conn net.Conn) {
	c := newRTSPClientConnection(s, conn)
	if c != nil {
		c.incomingRequestHandler()
	}
}

func (s *RTSPProxyServer) setupAccessLog(conf *config.LogConf) {
	if conf.AccessFileName == "" {
		return
	}

	if err := utils.DirExist(filepath.Dir(conf.AccessFileName), true); err != nil {
		lg.Error(0, "failed to create access log directory.%s", err.Error())
		return
	}

	s.accessOut = &lumberjack.Logger{
		Filename:   conf.AccessFileName,
		MaxSize:    conf.AccessFileSize,
		MaxBackups: conf.AccessFileNum,
		MaxAge:     conf.AccessSaveDay,
	}
	s.accessLog = log.New(s.accessOut, "", log.Ldate|log.Lmicroseconds)
}

func (s *RTSPProxyServer) logAccess(c *RTSPClientConnection, req *Request, resp *Response) {
	if s.accessLog == nil {
		return
	}
	s.accessLog.Printf("%s %s:%s %s %s %d %s",
		c.id, c.remoteAddr, c.remotePort, req.Method, req.URI, resp.Code, resp.Message)
}
