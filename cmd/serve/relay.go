package serve

import (
	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/common"
)

const (
	modeEcho      = "echo"
	modeBroadcast = "broadcast"
)

// relay handles the events of a server, one batch per tick
type relay struct {
	server  transport.IServerTransport
	mode    string
	clients map[int]string
}

func newRelay(server transport.IServerTransport, mode string) *relay {
	return &relay{
		server:  server,
		mode:    mode,
		clients: make(map[int]string),
	}
}

// tick processes all events that are queued right now. Events arriving during the tick
// are handled in the next one, so a flood can't keep us in here forever.
func (r *relay) tick() int {
	n := r.server.ReceiveQueueCount()
	for i := 0; i < n; i++ {
		msg, ok := r.server.GetNextMessage()
		if !ok {
			return i
		}
		r.handle(msg)
	}
	return n
}

// handle processes a single event
func (r *relay) handle(msg common.Message) {
	switch msg.EventType {
	case common.Connected:
		address := r.server.GetClientAddress(msg.ConnectionID)
		r.clients[msg.ConnectionID] = address
		Logger.Infof("Client %d connected from %s", msg.ConnectionID, address)

	case common.Data:
		if r.mode == modeBroadcast {
			for id := range r.clients {
				r.server.Send(id, msg.Data)
			}
			return
		}
		r.server.Send(msg.ConnectionID, msg.Data)

	case common.Disconnected:
		delete(r.clients, msg.ConnectionID)
		Logger.Infof("Client %d disconnected", msg.ConnectionID)
	}
}

func (r *relay) clientCount() int {
	return len(r.clients)
}
