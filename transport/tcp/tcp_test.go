package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------
// Helper
// -----------------------------------------------------------

type messageSource interface {
	GetNextMessage() (common.Message, bool)
}

// nextMessage polls until a message arrives or the timeout expires
func nextMessage(t *testing.T, src messageSource) common.Message {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := src.GetNextMessage(); ok {
			return msg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("the message did not arrive")
	return common.Message{}
}

// nextMessages polls until n messages arrived
func nextMessages(t *testing.T, src messageSource, n int) []common.Message {
	t.Helper()

	msgs := make([]common.Message, 0, n)
	for len(msgs) < n {
		msgs = append(msgs, nextMessage(t, src))
	}
	return msgs
}

// startServer starts a server on a random port and stops it when the test ends
func startServer(t *testing.T, config common.ServerConfig) (transport.IServerTransport, int) {
	t.Helper()

	server := NewTCPServerTransport(config)
	require.True(t, server.Start(0))
	t.Cleanup(server.Stop)

	return server, server.LocalAddr().(*net.TCPAddr).Port
}

func newClient(t *testing.T) transport.IClientTransport {
	t.Helper()

	client := NewTCPClientTransport(common.DefaultClientConfig())
	t.Cleanup(client.Disconnect)
	return client
}

// -----------------------------------------------------------
// Tests
// -----------------------------------------------------------

// TestNextConnectionId tests that ids start at 1, 0 is the client's id
func TestNextConnectionId(t *testing.T) {
	server, _ := startServer(t, common.DefaultServerConfig())
	assert.Equal(t, 1, server.NextConnectionId())
}

// TestDisconnectImmediate tests that a pending connect can be cancelled right away
func TestDisconnectImmediate(t *testing.T) {
	_, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	client.Disconnect()

	assert.False(t, client.Connected())
	assert.False(t, client.Connecting())
}

// TestSpamConnect tests many connect / disconnect cycles with one client
func TestSpamConnect(t *testing.T) {
	_, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	for i := 0; i < 1000; i++ {
		client.Connect("127.0.0.1", port)
		assert.True(t, client.Connecting() || client.Connected())

		client.Disconnect()
		assert.False(t, client.Connected())
		assert.False(t, client.Connecting())
	}
}

// TestSpamSend tests sending many large messages as fast as possible
func TestSpamSend(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	require.Equal(t, common.Connected, nextMessage(t, client).EventType)
	require.True(t, client.Connected())
	require.Equal(t, common.Connected, nextMessage(t, server).EventType)

	data := make([]byte, common.DefaultMaxMessageSize)
	for i := 0; i < 1000; i++ {
		require.True(t, client.Send(data))
	}

	for i := 0; i < 1000; i++ {
		msg := nextMessage(t, server)
		require.Equal(t, common.Data, msg.EventType)
		require.Len(t, msg.Data, common.DefaultMaxMessageSize)
	}

	client.Disconnect()
	assert.False(t, client.Connected())
	assert.False(t, client.Connecting())
}

// TestReconnect tests that a client can connect again after disconnecting
func TestReconnect(t *testing.T) {
	_, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	require.Equal(t, common.Connected, nextMessage(t, client).EventType)

	client.Disconnect()
	assert.False(t, client.Connected())
	assert.False(t, client.Connecting())

	// connecting clears the old Disconnected event
	client.Connect("127.0.0.1", port)
	assert.Equal(t, common.Connected, nextMessage(t, client).EventType)

	client.Disconnect()
	assert.False(t, client.Connected())
	assert.False(t, client.Connecting())
}

// TestServer tests the events a server sees for a client
func TestServer(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)

	// we should first receive a connected message
	assert.Equal(t, common.Connected, nextMessage(t, server).EventType)

	// then we should receive the data
	require.Eventually(t, client.Connected, 5*time.Second, time.Millisecond)
	require.True(t, client.Send([]byte("Hello world")))
	msg := nextMessage(t, server)
	assert.Equal(t, common.Data, msg.EventType)
	assert.Equal(t, "Hello world", string(msg.Data))

	// finally when the client disconnects, we should get a disconnected message
	client.Disconnect()
	assert.Equal(t, common.Disconnected, nextMessage(t, server).EventType)
}

// TestClient tests the events a client sees for a server
func TestClient(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)

	serverConnected := nextMessage(t, server)
	require.Equal(t, common.Connected, serverConnected.EventType)
	require.Equal(t, common.Connected, nextMessage(t, client).EventType)

	require.True(t, server.Send(serverConnected.ConnectionID, []byte("Hello world")))
	msg := nextMessage(t, client)
	assert.Equal(t, common.Data, msg.EventType)
	assert.Equal(t, "Hello world", string(msg.Data))

	// if the server stops, the client gets disconnected
	server.Stop()
	assert.Equal(t, common.Disconnected, nextMessage(t, client).EventType)
}

// TestClientKickedCleanup tests that a kicked client is able to reconnect
func TestClientKickedCleanup(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	require.Equal(t, common.Connected, nextMessage(t, client).EventType)

	serverConnected := nextMessage(t, server)
	require.True(t, server.Disconnect(serverConnected.ConnectionID))

	assert.Equal(t, common.Disconnected, nextMessage(t, client).EventType)
	assert.False(t, client.Connecting())
	assert.False(t, client.Connected())

	// the kicked client connects again and gets the next id
	client.Connect("127.0.0.1", port)
	require.Equal(t, common.Connected, nextMessage(t, client).EventType)

	assert.ElementsMatch(t, []common.Message{
		common.NewDisconnectedMessage(serverConnected.ConnectionID),
		common.NewConnectedMessage(serverConnected.ConnectionID + 1),
	}, nextMessages(t, server, 2))
}

// TestGetClientAddress tests the reported address of a client
func TestGetClientAddress(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)

	msg := nextMessage(t, server)
	require.Equal(t, common.Connected, msg.EventType)
	assert.Equal(t, "127.0.0.1", server.GetClientAddress(msg.ConnectionID))
}

// TestConnectAddresses tests host names, IPv4 and IPv4-mapped IPv6 addresses
func TestConnectAddresses(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1", "::ffff:127.0.0.1"} {
		t.Run(host, func(t *testing.T) {
			server, port := startServer(t, common.DefaultServerConfig())
			client := newClient(t)

			client.Connect(host, port)
			assert.Equal(t, common.Connected, nextMessage(t, server).EventType)
		})
	}
}

// TestLargeMessage tests the largest allowed message
func TestLargeMessage(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	require.Equal(t, common.Connected, nextMessage(t, server).EventType)
	require.Eventually(t, client.Connected, 5*time.Second, time.Millisecond)

	require.True(t, client.Send(make([]byte, common.DefaultMaxMessageSize)))
	msg := nextMessage(t, server)
	assert.Equal(t, common.Data, msg.EventType)
	assert.Len(t, msg.Data, common.DefaultMaxMessageSize)

	// one byte more is rejected by the sender
	assert.False(t, client.Send(make([]byte, common.DefaultMaxMessageSize+1)))
}

// TestAllocationAttack tests that a frame above the server's limit disconnects the sender
func TestAllocationAttack(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())

	// allow the client to send messages the server doesn't accept
	config := common.DefaultClientConfig()
	config.Transport.MaxMessageSize = 2 * common.DefaultMaxMessageSize
	client := NewTCPClientTransport(config)
	defer client.Disconnect()

	client.Connect("127.0.0.1", port)
	require.Equal(t, common.Connected, nextMessage(t, server).EventType)
	require.Eventually(t, client.Connected, 5*time.Second, time.Millisecond)

	require.True(t, client.Send(make([]byte, 2*common.DefaultMaxMessageSize)))
	assert.Equal(t, common.Disconnected, nextMessage(t, server).EventType)
}

// TestServerReceiveQueueLimit tests that flooding the server disconnects the client
func TestServerReceiveQueueLimit(t *testing.T) {
	// barely enough for Connected + Data
	config := common.DefaultServerConfig()
	config.Transport.QueueLimit = 2
	server, port := startServer(t, config)
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	connected := nextMessage(t, server)
	require.Equal(t, common.Connected, connected.EventType)
	require.Eventually(t, client.Connected, 5*time.Second, time.Millisecond)

	for i := 0; i < config.Transport.QueueLimit; i++ {
		client.Send([]byte{0x01, 0x02})
	}

	// wait until the connection is gone before looking at the queue, the queue was
	// cleared and only the Disconnected event is left
	require.Eventually(t, func() bool {
		return server.GetClientAddress(connected.ConnectionID) == ""
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, common.Disconnected, nextMessage(t, server).EventType)
}

// TestClientReceiveQueueLimit tests that flooding the client disconnects it
func TestClientReceiveQueueLimit(t *testing.T) {
	server, port := startServer(t, common.DefaultServerConfig())

	config := common.DefaultClientConfig()
	config.Transport.QueueLimit = 2
	client := NewTCPClientTransport(config)
	defer client.Disconnect()

	client.Connect("127.0.0.1", port)
	require.Equal(t, common.Connected, nextMessage(t, client).EventType)
	connected := nextMessage(t, server)

	for i := 0; i < config.Transport.QueueLimit; i++ {
		server.Send(connected.ConnectionID, []byte{0x01, 0x02})
	}

	require.Eventually(t, func() bool { return !client.Connected() }, 5*time.Second, time.Millisecond)
	assert.Equal(t, common.Disconnected, nextMessage(t, client).EventType)
}

// TestServerSendQueueLimit tests that sending faster than the network disconnects
func TestServerSendQueueLimit(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Transport.QueueLimit = 2
	server, port := startServer(t, config)
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	connected := nextMessage(t, server)
	require.Equal(t, common.Connected, connected.EventType)

	// the send loop drains the queue in the background, so send way more than the limit
	for i := 0; i < config.Transport.QueueLimit*1000; i++ {
		server.Send(connected.ConnectionID, []byte{0x01, 0x02})
	}

	assert.Equal(t, common.Disconnected, nextMessage(t, server).EventType)
}

// TestServerStartStopRepeated tests restarting on the same port
func TestServerStartStopRepeated(t *testing.T) {
	port := func() int {
		server, port := startServer(t, common.DefaultServerConfig())
		server.Stop()
		return port
	}()

	server := NewTCPServerTransport(common.DefaultServerConfig())
	for i := 0; i < 10; i++ {
		require.True(t, server.Start(port))
		assert.True(t, server.Active())
		server.Stop()
		assert.False(t, server.Active())
	}
}

// TestMaxConnections tests that connections above the limit wait for a free slot
func TestMaxConnections(t *testing.T) {
	config := common.DefaultServerConfig()
	config.MaxConnections = 1
	server, port := startServer(t, config)

	first := newClient(t)
	first.Connect("127.0.0.1", port)
	msg := nextMessage(t, server)
	require.Equal(t, common.Connected, msg.EventType)
	require.Equal(t, 1, msg.ConnectionID)

	// the second client is stuck in the backlog
	second := newClient(t)
	second.Connect("127.0.0.1", port)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, server.ReceiveQueueCount())

	// the slot is free as soon as the first connection is closed, so the events of
	// both connections may arrive in any order
	first.Disconnect()
	assert.ElementsMatch(t, []common.Message{
		common.NewDisconnectedMessage(1),
		common.NewConnectedMessage(2),
	}, nextMessages(t, server, 2))
}

// TestSocketOptions tests that the socket options are accepted by the OS
func TestSocketOptions(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Transport.TCPKeepAliveSec = 30
	config.Transport.TCPLingerSec = 0
	config.Transport.ReadBufferSize = 64 * 1024
	config.Transport.WriteBufferSize = 64 * 1024
	server, port := startServer(t, config)
	client := newClient(t)

	client.Connect("127.0.0.1", port)
	connected := nextMessage(t, server)
	require.Equal(t, common.Connected, connected.EventType)
	require.Equal(t, common.Connected, nextMessage(t, client).EventType)

	require.True(t, server.Send(connected.ConnectionID, []byte("Hello world")))
	assert.Equal(t, "Hello world", string(nextMessage(t, client).Data))
}
