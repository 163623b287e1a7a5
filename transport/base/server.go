package base

import (
	"errors"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/net/netutil"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener on all local addresses for the given port
	Listen(port int) (net.Listener, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// serverTransport implements the core server transport functionality
type serverTransport struct {
	*engine
	connector IServerConnector
	config    common.ServerConfig

	// connections by id. Inserted by the accept loop, removed by the connection's own
	// receive goroutine, read by Send & co.
	clients *xsync.MapOf[int, *connection]

	// last issued connection id
	counter atomic.Int64

	// mu serializes Start, Stop and the registration of accepted connections
	mu       sync.Mutex
	listener net.Listener
	stopCh   chan struct{}
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, ...)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with the specified connector
func NewBaseServerTransport(connector IServerConnector, config common.ServerConfig) transport.IServerTransport {
	return &serverTransport{
		engine:    newEngine(config.Transport),
		connector: connector,
		config:    config,
		clients:   xsync.NewMapOf[int, *connection](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (s *serverTransport) Start(port int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// not if already started
	if s.listener != nil {
		return false
	}

	listener, err := s.connector.Listen(port)
	if err != nil {
		Logger.Errorf("Server: failed to listen on port %d: %v", port, err)
		return false
	}

	// socket options are applied below the connection limit, whose wrapper hides the
	// concrete connection type
	listener = &upgradeListener{Listener: listener, connector: s.connector, config: s.config.Transport}
	if s.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.config.MaxConnections)
	}

	// clear old messages so the caller doesn't receive data from last time. Stop doesn't
	// do this because the caller may still want to process the latest messages.
	s.inbound.Clear()

	s.listener = listener
	s.stopCh = make(chan struct{})

	Logger.Infof("Server: listening on %s using %s transport", listener.Addr(), s.connector.GetName())
	go s.acceptLoop(listener, s.stopCh)
	return true
}

func (s *serverTransport) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// only if started
	if s.listener == nil {
		return
	}

	Logger.Infof("Server: stopping...")

	// stop listening first so that no one can connect while we close the connections
	if err := s.listener.Close(); err != nil {
		Logger.Debugf("Server: closing listener: %v", err)
	}
	close(s.stopCh)
	s.listener = nil

	// the connection goroutines finish in the background
	s.clients.Range(func(_ int, c *connection) bool {
		c.close()
		return true
	})
	s.clients.Clear()

	// clients get ids starting from 1 again after a restart
	s.counter.Store(0)
}

func (s *serverTransport) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

func (s *serverTransport) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *serverTransport) Send(connectionID int, data []byte) bool {
	// respect max message size to avoid allocation attacks
	if !s.checkMessageSize("Server", len(data)) {
		return false
	}

	c, ok := s.clients.Load(connectionID)
	if !ok {
		// Sending to an unknown id is expected: a client may have disconnected while the
		// caller has not processed the Disconnected event yet. Don't spam the log.
		Logger.Debugf("Server.Send: unknown connection id %d", connectionID)
		return false
	}
	return s.send(c, data)
}

func (s *serverTransport) Disconnect(connectionID int) bool {
	c, ok := s.clients.Load(connectionID)
	if !ok {
		return false
	}

	// the receive loop takes care of the rest
	c.close()
	Logger.Infof("Server.Disconnect: connection %d", connectionID)
	return true
}

func (s *serverTransport) GetClientAddress(connectionID int) string {
	c, ok := s.clients.Load(connectionID)
	if !ok {
		return ""
	}

	addr := c.conn.RemoteAddr()
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func (s *serverTransport) NextConnectionId() int {
	id := s.counter.Add(1)

	// Even with one new connection per second this takes 68 years. If it happens anyway
	// the caller must stop accepting clients, ids would no longer be unique.
	if id >= math.MaxInt32 {
		Logger.Panicf("connection id limit reached: %d", id)
	}
	return int(id)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// acceptLoop accepts connections until the listener is closed
func (s *serverTransport) acceptLoop(listener net.Listener, stopCh chan struct{}) {
	var delay time.Duration

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-stopCh:
				Logger.Debugf("Server: accept loop stopped")
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}

			// back off on errors like "too many open files" instead of spinning
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			Logger.Warningf("Server: accept error: %v; retrying in %v", err, delay)

			select {
			case <-time.After(delay):
			case <-stopCh:
				return
			}
			continue
		}
		delay = 0

		c, ok := s.register(conn, stopCh)
		if !ok {
			_ = conn.Close()
			return
		}

		Logger.Debugf("Server: accepted connection %d from %s", c.id, conn.RemoteAddr())

		// one goroutine per direction, so a blocked send never stalls receiving and a
		// slow peer only blocks its own goroutines
		go s.sendLoop(c)
		go s.handleConnection(c)
	}
}

// register assigns the next id to an accepted connection and adds it to the table.
// It runs under the lifecycle lock, so Stop either sees the connection or the accept
// loop sees the stop signal.
func (s *serverTransport) register(conn net.Conn, stopCh chan struct{}) (*connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-stopCh:
		return nil, false
	default:
	}

	c := newConnection(s.NextConnectionId(), conn)
	s.clients.Store(c.id, c)
	return c, true
}

// handleConnection runs the receive loop and removes the connection afterward
func (s *serverTransport) handleConnection(c *connection) {
	s.receiveLoop(c)

	// After Stop and Start the same id may belong to a new connection, so only
	// delete the entry if it still is this one.
	s.clients.Compute(c.id, func(old *connection, loaded bool) (*connection, bool) {
		return old, !loaded || old == c
	})
}

// upgradeListener applies the connector's socket options to every accepted connection
type upgradeListener struct {
	net.Listener
	connector IServerConnector
	config    common.TransportConfig
}

func (l *upgradeListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		if err := l.connector.UpgradeConnection(conn, l.config); err != nil {
			Logger.Warningf("Server: failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}
		return conn, nil
	}
}
