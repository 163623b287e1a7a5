package base

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/common"
)

// clientConnectionID is the id of the client's only connection
const clientConnectionID = 0

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection. It must give up when ctx is done.
	Connect(ctx context.Context, host string, port int) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientSession is one connect attempt and, if it succeeds, the resulting connection
type clientSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	// conn is nil while connecting (guarded by clientTransport.mu)
	conn *connection

	// finished is closed when the session's goroutine has returned, i.e. the dial was
	// given up or the receive loop enqueued its Disconnected event
	finished chan struct{}
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium
type clientTransport struct {
	*engine
	connector IClientConnector
	config    common.ClientConfig

	mu      sync.Mutex
	session *clientSession
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, ...)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, config common.ClientConfig) transport.IClientTransport {
	return &clientTransport{
		engine:    newEngine(config.Transport),
		connector: connector,
		config:    config,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(host string, port int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old := t.session; old != nil {
		// not if already connecting or connected
		if old.conn == nil || !old.conn.isClosed() {
			Logger.Warningf("Client.Connect: already connecting or connected")
			return
		}

		// The old connection is closed, its receive loop is only enqueueing the final
		// Disconnected event. Wait for it so it can't end up in the new session.
		<-old.finished
	}

	// clear old messages so the caller doesn't receive data from last time
	t.inbound.Clear()

	ctx, cancel := context.WithCancel(context.Background())
	sess := &clientSession{
		ctx:      ctx,
		cancel:   cancel,
		finished: make(chan struct{}),
	}
	t.session = sess

	Logger.Infof("Client: connecting to %s using %s transport", net.JoinHostPort(host, strconv.Itoa(port)), t.connector.GetName())
	go t.run(sess, host, port)
}

func (t *clientTransport) Disconnect() {
	t.mu.Lock()
	sess := t.session
	t.session = nil
	var c *connection
	if sess != nil {
		c = sess.conn
	}
	t.mu.Unlock()

	if sess == nil {
		return
	}

	// cancel a pending dial or close the socket, both end the session's goroutine
	sess.cancel()
	if c != nil {
		c.close()
	}

	// Returning only after the goroutine finished guarantees that the Disconnected event
	// is queued before a following Connect clears the queue.
	<-sess.finished
	Logger.Infof("Client: disconnected")
}

func (t *clientTransport) Connecting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil && t.session.conn == nil
}

func (t *clientTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil && t.session.conn != nil && !t.session.conn.isClosed()
}

func (t *clientTransport) Send(data []byte) bool {
	t.mu.Lock()
	var c *connection
	if t.session != nil {
		c = t.session.conn
	}
	t.mu.Unlock()

	if c == nil || c.isClosed() {
		Logger.Warningf("Client.Send: not connected")
		return false
	}

	// respect max message size to avoid allocation attacks
	if !t.checkMessageSize("Client", len(data)) {
		return false
	}
	return t.send(c, data)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// run dials the server and, on success, runs the send and receive loops
func (t *clientTransport) run(sess *clientSession, host string, port int) {
	defer close(sess.finished)
	defer sess.cancel()

	dialCtx := sess.ctx
	if timeout := t.config.ConnectTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(sess.ctx, timeout)
		defer cancel()
	}

	conn, err := t.connector.Connect(dialCtx, host, port)
	if err == nil {
		if err = t.connector.UpgradeConnection(conn, t.config.Transport); err != nil {
			_ = conn.Close()
		}
	}

	t.mu.Lock()
	current := t.session == sess
	if err != nil {
		if current {
			t.session = nil
		}
		t.mu.Unlock()

		// a cancelled attempt was ended by Disconnect, the caller knows about it
		if !current {
			return
		}

		// tell the caller that the connect failed, otherwise they would never know
		Logger.Infof("Client: failed to connect to %s: %v", net.JoinHostPort(host, strconv.Itoa(port)), err)
		t.inbound.Enqueue(common.NewDisconnectedMessage(clientConnectionID))
		return
	}
	if !current {
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	c := newConnection(clientConnectionID, conn)
	sess.conn = c
	t.mu.Unlock()

	Logger.Infof("Client: connected to %s", conn.RemoteAddr())

	go t.sendLoop(c)
	t.receiveLoop(c)
}
