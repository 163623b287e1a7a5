package base

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/msgt/lib/util"
	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// maxPooledBufferSize caps the batch buffers kept in the pool, so one huge burst does not
// pin its buffer forever
const maxPooledBufferSize = 1024 * 1024

// -----------------------------------------------------------
// Connection record
// -----------------------------------------------------------

// connection is a single established socket together with its send queue.
// It is shared by the receive loop and the send loop for its whole lifetime.
type connection struct {
	id        int
	conn      net.Conn
	sendQueue *util.Queue[[]byte]

	// sendPending is a binary gate: a buffered token means "has pending work"
	sendPending chan struct{}

	// done is closed exactly once when the connection is torn down. It is the
	// cancellation signal for a send loop waiting on sendPending.
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(id int, conn net.Conn) *connection {
	return &connection{
		id:          id,
		conn:        conn,
		sendQueue:   util.NewQueue[[]byte](),
		sendPending: make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// close closes the socket and wakes both loops. Safe to call any number of times.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			Logger.Debugf("Closing connection %d: %v", c.id, err)
		}
	})
}

// isClosed reports whether close was called
func (c *connection) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// setPending marks that there is work for the send loop (never blocks)
func (c *connection) setPending() {
	select {
	case c.sendPending <- struct{}{}:
	default:
	}
}

// resetPending clears the gate (never blocks)
func (c *connection) resetPending() {
	select {
	case <-c.sendPending:
	default:
	}
}

// -----------------------------------------------------------
// Engine (shared by server and client)
// -----------------------------------------------------------

// engine contains the logic shared by the server and the client: the inbound queue,
// the receive and send loops and the batch buffer pool
type engine struct {
	config     common.TransportConfig
	inbound    *util.Queue[common.Message]
	bufferPool *util.Pool[[]byte]
}

func newEngine(config common.TransportConfig) *engine {
	return &engine{
		config:  config,
		inbound: util.NewQueue[common.Message](),
		bufferPool: util.NewPool(func() []byte {
			return make([]byte, 0, headerSize+config.MaxMessageSize)
		}),
	}
}

// GetNextMessage removes and returns the oldest message of the inbound queue.
// There is deliberately no connected check: the Disconnected event must still be
// readable after a disconnect.
func (e *engine) GetNextMessage() (common.Message, bool) {
	return e.inbound.TryDequeue()
}

// ReceiveQueueCount returns the number of queued inbound messages
func (e *engine) ReceiveQueueCount() int {
	return e.inbound.Count()
}

// receiveLoop reads frames until the connection fails or the inbound queue reaches the
// queue limit. It always closes the connection and then enqueues exactly one
// Disconnected event. The event comes after the close, so a caller that reconnects when
// it sees Disconnected never races with the old socket.
func (e *engine) receiveLoop(c *connection) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Receive loop of connection %d panicked: %v", c.id, r)
		}

		c.close()
		connectionsClosed.Inc()
		e.inbound.Enqueue(common.NewDisconnectedMessage(c.id))
	}()

	connectionsOpened.Inc()
	e.inbound.Enqueue(common.NewConnectedMessage(c.id))

	header := make([]byte, headerSize)
	for {
		// blocks until a full frame arrived or the connection failed
		data, err := readFrame(c.conn, header, e.config.MaxMessageSize)
		if err != nil {
			logReceiveError(c.id, err)
			return
		}

		messagesReceived.Inc()
		bytesReceived.Add(len(data))
		messageSize.Update(float64(len(data)))
		e.inbound.Enqueue(common.NewDataMessage(c.id, data))

		// Disconnect instead of growing the queue forever when messages come in faster
		// than they are processed. The queue is cleared so that the Disconnected event is
		// processed immediately instead of after thousands of stale messages.
		if e.inbound.Count() >= e.config.QueueLimit {
			Logger.Warningf("Receive queue reached limit of %d. This can happen if network messages come in way faster than we manage to process them. Disconnecting connection %d for load balancing.",
				e.config.QueueLimit, c.id)
			inboundLoadShed.Inc()
			e.inbound.Clear()
			return
		}
	}
}

// sendLoop writes everything queued for the connection, batching all pending messages
// into a single write. It ends on the first write error or when the connection is closed.
func (e *engine) sendLoop(c *connection) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Send loop of connection %d panicked: %v", c.id, r)
		}

		// a failed write must also end the receive loop, otherwise the connection would
		// stay alive forever even though we can't send anymore
		c.close()
	}()

	var batch [][]byte
	for {
		// Reset before draining: a Send that happens after the drain sets the gate again
		// and is picked up in the next round instead of being missed.
		c.resetPending()

		if c.sendQueue.TryDequeueAll(&batch) {
			if err := e.writeBatch(c, batch); err != nil {
				if !c.isClosed() {
					Logger.Infof("Send loop of connection %d stopped: %v", c.id, err)
				}
				return
			}
			clear(batch)
			batch = batch[:0]
		}

		select {
		case <-c.sendPending:
		case <-c.done:
			return
		}
	}
}

// writeBatch encodes the batch into a pooled buffer and writes it with the send timeout
func (e *engine) writeBatch(c *connection, batch [][]byte) error {
	buf := encodeFrames(e.bufferPool.Take()[:0], batch)
	defer func() {
		if cap(buf) <= maxPooledBufferSize {
			e.bufferPool.Return(buf[:0])
		}
	}()

	if c.isClosed() {
		return ErrConnectionClosed
	}

	// a blocked write would stall forever if the network is cut off
	if timeout := e.config.SendTimeout(); timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	if err := writeFull(c.conn, buf); err != nil {
		return err
	}

	batchesSent.Inc()
	messagesSent.Add(len(batch))
	bytesSent.Add(len(buf))
	return nil
}

// send copies data into the connection's send queue and wakes the send loop.
// Callers check the message size. If the queue is full the connection is closed instead
// of blocking the caller; the loops take care of the rest of the teardown.
func (e *engine) send(c *connection, data []byte) bool {
	if c.isClosed() {
		return false
	}

	// Disconnect if the send queue gets too big. The send loop always grabs the whole
	// queue, but a single blocked write can still take long enough for it to fill up.
	if c.sendQueue.Count() >= e.config.QueueLimit {
		Logger.Warningf("Send queue of connection %d reached limit of %d. This can happen if we call send faster than the network can process messages. Disconnecting this connection for load balancing.",
			c.id, e.config.QueueLimit)
		outboundLoadShed.Inc()
		c.close()
		return false
	}

	// the caller's buffer may be reused as soon as we return
	payload := make([]byte, len(data))
	copy(payload, data)

	c.sendQueue.Enqueue(payload)
	c.setPending()
	return true
}

// checkMessageSize logs and counts messages that cannot be sent. Empty messages are
// rejected too, the peer would treat a zero length header as a protocol violation.
func (e *engine) checkMessageSize(side string, size int) bool {
	if size == 0 {
		Logger.Errorf("%s.Send: message is empty", side)
		sendsRejected.Inc()
		return false
	}
	if size > e.config.MaxMessageSize {
		Logger.Errorf("%s.Send: message too big: %d. Limit: %d", side, size, e.config.MaxMessageSize)
		sendsRejected.Inc()
		return false
	}
	return true
}

// logReceiveError logs why a receive loop ended.
// Protocol violations are warnings, everything else is normal connection churn.
func logReceiveError(id int, err error) {
	switch {
	case errors.Is(err, ErrInvalidFrameSize):
		framesRejected.Inc()
		Logger.Warningf("Connection %d sent an invalid frame: %v", id, err)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		Logger.Debugf("Connection %d closed: %v", id, err)
	default:
		Logger.Infof("Receive loop of connection %d finished: %v", id, err)
	}
}
