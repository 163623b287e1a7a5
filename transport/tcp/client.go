package tcp

import (
	"context"
	"net"
	"strconv"

	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/base"
	"github.com/ValentinKolb/msgt/transport/common"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct {
	dialer net.Dialer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(ctx context.Context, host string, port int) (net.Conn, error) {
	// host names are resolved by the dialer, which tries all addresses in turn
	return c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.TransportConfig) error {
	return upgradeTCP(conn, config)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport(config common.ClientConfig) transport.IClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, config)
}
