package relay

import (
	"github.com/cloudmeet/signal/pkg/proto"
)

// registry holds the participant<->connection binding, both directions, plus
// the display name recorded at join. It has no lock of its own: the owning
// Server serializes every access.
type registry struct {
	conns map[proto.UID]*Conn
	uids  map[proto.CID]proto.UID
	names map[proto.UID]string
}

func newRegistry() *registry {
	return &registry{
		conns: make(map[proto.UID]*Conn),
		uids:  make(map[proto.CID]proto.UID),
		names: make(map[proto.UID]string),
	}
}

// bind associates a participant with a connection and records its display
// name. A participant already bound elsewhere is rebound here: the prior
// connection keeps its socket but is no longer addressable. A connection
// already bound to another participant drops that stale binding so the two
// maps stay mutually consistent.
func (r *registry) bind(uid proto.UID, c *Conn, name string) {
	if old, ok := r.conns[uid]; ok && old.cid != c.cid {
		delete(r.uids, old.cid)
	}
	if prev, ok := r.uids[c.cid]; ok && prev != uid {
		delete(r.conns, prev)
		delete(r.names, prev)
	}
	r.conns[uid] = c
	r.uids[c.cid] = uid
	r.names[uid] = name
}

// resolveConn returns the connection currently representing a participant
func (r *registry) resolveConn(uid proto.UID) (*Conn, bool) {
	c, ok := r.conns[uid]
	return c, ok
}

// resolveParticipant returns the participant a connection represents
func (r *registry) resolveParticipant(cid proto.CID) (proto.UID, bool) {
	uid, ok := r.uids[cid]
	return uid, ok
}

// unbind removes both directions of the mapping for whichever participant
// the connection represented and reports which one that was. Unbinding a
// connection that was never bound, or was orphaned by a takeover, is a
// no-op; that guards duplicate disconnect events.
func (r *registry) unbind(cid proto.CID) (proto.UID, bool) {
	uid, ok := r.uids[cid]
	if !ok {
		return "", false
	}
	delete(r.uids, cid)
	delete(r.conns, uid)
	delete(r.names, uid)
	return uid, true
}

func (r *registry) displayName(uid proto.UID) string {
	return r.names[uid]
}
