package groupsock

import (
	"errors"
	"fmt"
	"net"
)

// OurIPAddress returns the first non-loopback IPv4 address of this host.
func OurIPAddress() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	var ip string
	err = errors.New("ip address not found")
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				ip, err = ipnet.IP.String(), nil
			}
		}
	}
	return ip, err
}

// DialTCP opens a stream socket to host:port.
func DialTCP(host string, port int) (*net.TCPConn, error) {
	tcpAddr := fmt.Sprintf("%s:%d", host, port)
	addr, err := net.ResolveTCPAddr("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}

	return net.DialTCP("tcp", nil, addr)
}
