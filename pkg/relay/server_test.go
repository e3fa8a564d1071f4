package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeet/signal/pkg/proto"
)

type event struct {
	method string
	data   interface{}
}

// testSender records outbound events in place of a websocket
type testSender struct {
	mu     sync.Mutex
	events []event
}

func (s *testSender) Notify(method string, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event{method, data})
	return nil
}

func (s *testSender) all() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event(nil), s.events...)
}

func join(s *Server, sender *testSender, cid proto.CID, uid proto.UID, rid proto.RID, name string) (*Conn, []proto.MemberInfo) {
	c := NewConn(cid, sender)
	members := s.Join(c, proto.JoinMsg{RID: rid, UID: uid, DisplayName: name})
	return c, members
}

func TestJoinSeesExistingMembers(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	_, members := join(s, alice, "c1", "p1", "r1", "Alice")
	assert.Empty(t, members)

	bob := &testSender{}
	_, members = join(s, bob, "c2", "p2", "r1", "Bob")
	assert.Equal(t, []proto.MemberInfo{{UID: "p1", DisplayName: "Alice"}}, members)

	// the new member never hears about its own join
	assert.Empty(t, bob.all())

	// the existing member gets an incremental push instead of a resend
	events := alice.all()
	require.Len(t, events, 1)
	assert.Equal(t, proto.ClientOnMemberJoin, events[0].method)
	assert.Equal(t, proto.MemberInfo{UID: "p2", DisplayName: "Bob"}, events[0].data)
}

func TestSnapshotCollapsesRepeatedJoins(t *testing.T) {
	s := NewServer()
	defer s.Close()

	sender := &testSender{}
	c := NewConn("c1", sender)
	for i := 0; i < 3; i++ {
		s.Join(c, proto.JoinMsg{RID: "r1", UID: "p1", DisplayName: "Alice"})
	}

	members := s.Snapshot("r1")
	require.Len(t, members, 1)
	assert.Equal(t, proto.UID("p1"), members[0].UID)
}

func TestSnapshotUnknownRoom(t *testing.T) {
	s := NewServer()
	defer s.Close()

	members := s.Snapshot("nope")
	assert.NotNil(t, members)
	assert.Empty(t, members)
}

func TestRelayTargeted(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	c1, _ := join(s, alice, "c1", "p1", "r1", "Alice")
	bob := &testSender{}
	join(s, bob, "c2", "p2", "r1", "Bob")

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	s.Relay(c1, proto.ClientOffer, proto.RelayMsg{To: "p2", Payload: payload})

	events := bob.all()
	require.Len(t, events, 1)
	assert.Equal(t, proto.ClientOffer, events[0].method)
	assert.Equal(t, proto.ToClientRelayMsg{Payload: payload, From: "p1"}, events[0].data)

	// nothing echoed to the sender
	assert.Len(t, alice.all(), 1) // only bob's memberJoined
}

func TestRelayUnresolvedTargetDropped(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	c1, _ := join(s, alice, "c1", "p1", "r1", "Alice")

	s.Relay(c1, proto.ClientAnswer, proto.RelayMsg{To: "ghost", Payload: json.RawMessage(`{}`)})

	assert.Empty(t, alice.all())
}

func TestRelayFromUnboundIgnored(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	join(s, alice, "c1", "p1", "r1", "Alice")

	stray := NewConn("c9", &testSender{})
	s.Relay(stray, proto.ClientCandidate, proto.RelayMsg{To: "p1", Payload: json.RawMessage(`{}`)})

	assert.Empty(t, alice.all())
}

func TestLeaveNotifiesAndCollectsRoom(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	c1, _ := join(s, alice, "c1", "p1", "r1", "Alice")
	bob := &testSender{}
	c2, _ := join(s, bob, "c2", "p2", "r1", "Bob")

	s.Leave(c1)

	events := bob.all()
	require.Len(t, events, 1)
	assert.Equal(t, proto.ClientOnMemberLeave, events[0].method)
	assert.Equal(t, proto.MemberLeaveMsg{UID: "p1"}, events[0].data)

	members := s.Snapshot("r1")
	require.Len(t, members, 1)
	assert.Equal(t, proto.UID("p2"), members[0].UID)

	// last one out deletes the room
	s.Leave(c2)
	assert.Empty(t, s.Snapshot("r1"))
}

func TestLeaveIdempotent(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	c1, _ := join(s, alice, "c1", "p1", "r1", "Alice")
	bob := &testSender{}
	join(s, bob, "c2", "p2", "r1", "Bob")

	// explicit leave then transport disconnect for the same connection
	s.Leave(c1)
	s.Leave(c1)

	events := bob.all()
	assert.Len(t, events, 1)
}

func TestRejoinAfterLeave(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	c1, _ := join(s, alice, "c1", "p1", "r1", "Alice")
	s.Leave(c1)

	members := s.Join(c1, proto.JoinMsg{RID: "r1", UID: "p1", DisplayName: "Alice"})
	assert.Empty(t, members)
	require.Len(t, s.Snapshot("r1"), 1)
}

func TestDuplicateJoinTakesOverConnection(t *testing.T) {
	s := NewServer()
	defer s.Close()

	bob := &testSender{}
	c2, _ := join(s, bob, "c2", "p2", "r1", "Bob")

	first := &testSender{}
	c1, _ := join(s, first, "c1", "p1", "r1", "Alice")
	second := &testSender{}
	join(s, second, "c9", "p1", "r1", "Alice")

	// traffic for p1 lands on the new connection only
	s.Relay(c2, proto.ClientOffer, proto.RelayMsg{To: "p1", Payload: json.RawMessage(`{}`)})
	relayed := second.all()
	require.Len(t, relayed, 1)
	assert.Equal(t, proto.ClientOffer, relayed[0].method)
	for _, e := range first.all() {
		assert.NotEqual(t, proto.ClientOffer, e.method)
	}

	// the orphaned connection's disconnect must not evict the participant
	s.Leave(c1)
	members := s.Snapshot("r1")
	assert.Len(t, members, 2)
}

func TestDisconnectSpansAllJoinedRooms(t *testing.T) {
	s := NewServer()
	defer s.Close()

	alice := &testSender{}
	c1, _ := join(s, alice, "c1", "p1", "r1", "Alice")
	s.Join(c1, proto.JoinMsg{RID: "r2", UID: "p1", DisplayName: "Alice"})

	bob := &testSender{}
	join(s, bob, "c2", "p2", "r1", "Bob")
	carol := &testSender{}
	join(s, carol, "c3", "p3", "r2", "Carol")

	s.Leave(c1)

	for _, sender := range []*testSender{bob, carol} {
		events := sender.all()
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, proto.ClientOnMemberLeave, last.method)
		assert.Equal(t, proto.MemberLeaveMsg{UID: "p1"}, last.data)
	}

	assert.Len(t, s.Snapshot("r1"), 1)
	assert.Len(t, s.Snapshot("r2"), 1)
}
