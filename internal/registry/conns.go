package registry

import (
	"sort"
	"sync"

	"github.com/hexfield/hexfield/internal/packets"
)

// SendToAll is the sentinel connection id meaning "every registered
// connection" when passed to Send.
const SendToAll = -1

// Conn is the transport handle the registry fans packets out to. Send must
// never block for long; implementations queue internally.
type Conn interface {
	Send(env *packets.Envelope)
}

// ConnRegistry maps connection ids to live transport handles. Sends to
// unknown ids are silently dropped: a send racing with a removal is an
// expected condition, not an error.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[int]Conn
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[int]Conn)}
}

func (r *ConnRegistry) Register(id int, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = c
}

func (r *ConnRegistry) Unregister(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Has reports whether a connection is currently registered under id.
func (r *ConnRegistry) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// Len returns the number of registered connections.
func (r *ConnRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send delivers the packet to the one connection registered under id, or to
// every connection when id is SendToAll. Unknown ids are a no-op.
func (r *ConnRegistry) Send(id int, env *packets.Envelope) {
	if id == SendToAll {
		r.Broadcast(env)
		return
	}

	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()

	if ok {
		c.Send(env)
	}
}

// Broadcast delivers the packet to every currently registered connection in
// ascending id order. The recipient set is snapshotted first so that
// registrations and removals may proceed while the fan-out runs.
func (r *ConnRegistry) Broadcast(env *packets.Envelope) {
	r.mu.RLock()
	ids := make([]int, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	targets := make([]Conn, len(ids))
	for i, id := range ids {
		targets[i] = r.conns[id]
	}
	r.mu.RUnlock()

	for _, c := range targets {
		c.Send(env)
	}
}
