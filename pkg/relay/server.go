package relay

import (
	"fmt"
	"sync"
	"time"

	"github.com/cloudmeet/signal/pkg/log"
	"github.com/cloudmeet/signal/pkg/proto"
)

const (
	statCycle = time.Second * 3
)

// Server owns the whole session state: the participant<->connection registry
// and the room directory. Every event handler runs its mutations under one
// mutex, so each inbound event is atomic with respect to all others.
// Outbound fanout lists are computed inside that critical section from the
// membership at the instant of the event, then delivered after it.
type Server struct {
	mu       sync.Mutex
	registry *registry
	rooms    map[proto.RID]*room

	// joined indexes which rooms each participant is in, so disconnect
	// cleanup walks only those instead of scanning every room
	joined map[proto.UID]map[proto.RID]struct{}

	closed chan bool
}

// NewServer creates a relay server instance
func NewServer() *Server {
	s := &Server{
		registry: newRegistry(),
		rooms:    make(map[proto.RID]*room),
		joined:   make(map[proto.UID]map[proto.RID]struct{}),
		closed:   make(chan bool),
	}
	go s.stat()
	return s
}

// Close stops the server's background work
func (s *Server) Close() {
	close(s.closed)
}

// Join binds the connection to the claimed participant id, puts it in the
// room and tells the other members. The returned list is who was in the room
// before this join touched it, so a fresh joiner never sees itself.
// A join for an already-bound participant id is an identity takeover: the
// prior connection is silently orphaned, not closed.
func (s *Server) Join(c *Conn, msg proto.JoinMsg) []proto.MemberInfo {
	log.Infof("join uid=%s rid=%s connection=%s", msg.UID, msg.RID, c.cid)

	s.mu.Lock()
	existing := s.snapshot(msg.RID)

	s.registry.bind(msg.UID, c, msg.DisplayName)

	r := s.rooms[msg.RID]
	if r == nil {
		r = newRoom(msg.RID)
		s.rooms[msg.RID] = r
	}
	r.add(msg.UID)

	rids := s.joined[msg.UID]
	if rids == nil {
		rids = make(map[proto.RID]struct{})
		s.joined[msg.UID] = rids
	}
	rids[msg.RID] = struct{}{}

	others := s.memberConns(r, msg.UID)
	s.mu.Unlock()

	info := proto.MemberInfo{UID: msg.UID, DisplayName: msg.DisplayName}
	for _, pc := range others {
		pc.notify(proto.ClientOnMemberJoin, info)
	}

	return existing
}

// Relay forwards an opaque negotiation payload to one participant, stamping
// the sender's participant id as the origin. Signaling is best-effort: an
// unbound sender or an unresolvable target just drops the message.
func (s *Server) Relay(c *Conn, method string, msg proto.RelayMsg) {
	s.mu.Lock()
	from, bound := s.registry.resolveParticipant(c.cid)
	if !bound {
		s.mu.Unlock()
		log.Debugf("relay %s from unbound connection %s, ignored", method, c.cid)
		return
	}
	target, found := s.registry.resolveConn(msg.To)
	s.mu.Unlock()

	if !found {
		log.Debugf("relay %s from %s: target %s not here, dropped", method, from, msg.To)
		return
	}

	target.notify(method, proto.ToClientRelayMsg{Payload: msg.Payload, From: from})
}

// Leave tears down whatever participant the connection represents: unbind,
// remove it from every room it joined, drop rooms that empty and tell the
// remaining members of the others. Safe to call for both an explicit leave
// and the transport disconnect; the second call finds nothing bound and
// returns. After an explicit leave the connection may join again.
func (s *Server) Leave(c *Conn) {
	s.mu.Lock()
	uid, ok := s.registry.unbind(c.cid)
	if !ok {
		s.mu.Unlock()
		return
	}

	var notify []*Conn
	for rid := range s.joined[uid] {
		r := s.rooms[rid]
		if r == nil {
			continue
		}
		if r.del(uid) == 0 {
			delete(s.rooms, rid)
			log.Infof("room %s emptied, deleted", rid)
			continue
		}
		notify = append(notify, s.memberConns(r, uid)...)
	}
	delete(s.joined, uid)
	s.mu.Unlock()

	log.Infof("leave uid=%s connection=%s", uid, c.cid)
	left := proto.MemberLeaveMsg{UID: uid}
	for _, pc := range notify {
		pc.notify(proto.ClientOnMemberLeave, left)
	}
}

// Snapshot answers "who is in this room right now". Unknown rooms yield an
// empty list, never an error.
func (s *Server) Snapshot(rid proto.RID) []proto.MemberInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(rid)
}

// snapshot must be called with s.mu held. It always returns a non-nil slice
// so an empty room list reaches the client as [] rather than null.
func (s *Server) snapshot(rid proto.RID) []proto.MemberInfo {
	r := s.rooms[rid]
	if r == nil {
		return []proto.MemberInfo{}
	}
	members := make([]proto.MemberInfo, 0, r.count())
	for uid := range r.members {
		members = append(members, proto.MemberInfo{
			UID:         uid,
			DisplayName: s.registry.displayName(uid),
		})
	}
	return members
}

// memberConns must be called with s.mu held. It resolves every member of the
// room except one to its current connection; members whose connection was
// orphaned mid-takeover simply resolve to the new one or not at all.
func (s *Server) memberConns(r *room, except proto.UID) []*Conn {
	conns := make([]*Conn, 0, r.count())
	for uid := range r.members {
		if uid == except {
			continue
		}
		if pc, ok := s.registry.resolveConn(uid); ok {
			conns = append(conns, pc)
		}
	}
	return conns
}

// stat logs a room census periodically
func (s *Server) stat() {
	t := time.NewTicker(statCycle)
	defer t.Stop()
	for {
		select {
		case <-t.C:
		case <-s.closed:
			log.Infof("stop stat")
			return
		}

		var info string
		s.mu.Lock()
		for rid, r := range s.rooms {
			info += fmt.Sprintf("room: %s\npeers: %d\n", rid, r.count())
		}
		s.mu.Unlock()
		if len(info) > 0 {
			log.Infof("\n----------------signal-----------------\n" + info)
		}
	}
}
