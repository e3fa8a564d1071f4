package relay

import (
	"github.com/cloudmeet/signal/pkg/proto"
)

// room is one named member set. Rooms come into existence on the first join
// that names them and the Server drops them the moment they empty, so a
// room value always has at least one member between events.
type room struct {
	id      proto.RID
	members map[proto.UID]struct{}
}

func newRoom(id proto.RID) *room {
	return &room{
		id:      id,
		members: make(map[proto.UID]struct{}),
	}
}

// add inserts a member; duplicates collapse
func (r *room) add(uid proto.UID) {
	r.members[uid] = struct{}{}
}

// del removes a member and returns how many remain
func (r *room) del(uid proto.UID) int {
	delete(r.members, uid)
	return len(r.members)
}

func (r *room) count() int {
	return len(r.members)
}
