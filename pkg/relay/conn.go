package relay

import (
	"github.com/cloudmeet/signal/pkg/log"
	"github.com/cloudmeet/signal/pkg/proto"
)

// Sender delivers an outbound event to one client connection
type Sender interface {
	Notify(method string, data interface{}) error
}

// Conn represents one live transport connection. The transport layer creates
// one per socket with a never-reused id; whether it currently represents a
// participant is tracked by the server's registry, not here.
type Conn struct {
	cid    proto.CID
	sender Sender
}

// NewConn creates a connection handle for the given transport sender
func NewConn(cid proto.CID, sender Sender) *Conn {
	return &Conn{
		cid:    cid,
		sender: sender,
	}
}

// CID connection id
func (c *Conn) CID() proto.CID {
	return c.cid
}

// notify sends best-effort: a failed write means the transport is going
// away and its own disconnect will clean up
func (c *Conn) notify(method string, data interface{}) {
	if err := c.sender.Notify(method, data); err != nil {
		log.Warnf("notify %s to connection %s error: %v", method, c.cid, err)
	}
}
