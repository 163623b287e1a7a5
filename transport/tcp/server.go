package tcp

import (
	"fmt"
	"net"
	"strconv"

	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/base"
	"github.com/ValentinKolb/msgt/transport/common"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(port int) (net.Listener, error) {
	// an empty host listens on all IPv4 and IPv6 addresses
	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.TransportConfig) error {
	return upgradeTCP(conn, config)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport(config common.ServerConfig) transport.IServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, config)
}
