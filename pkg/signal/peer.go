package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	websocketjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"

	"github.com/cloudmeet/signal/pkg/log"
	"github.com/cloudmeet/signal/pkg/proto"
	"github.com/cloudmeet/signal/pkg/relay"
)

// Peer represents one connected client
type Peer struct {
	ctx   context.Context
	conn  *jsonrpc2.Conn
	relay *relay.Server
	rc    *relay.Conn
}

// newPeer wraps a freshly upgraded websocket. The connection id is minted
// here; it is never reused for a later socket.
func newPeer(ctx context.Context, c *websocket.Conn, rs *relay.Server) *Peer {
	p := &Peer{
		ctx:   ctx,
		relay: rs,
	}
	p.rc = relay.NewConn(proto.CID(uuid.New().String()), p)
	p.conn = jsonrpc2.NewConn(ctx, websocketjsonrpc2.NewObjectStream(c), p)
	return p
}

// Handle incoming events, implement jsonrpc2.Handler.
// join is answered with the list of members that were already in the room;
// everything else gets no reply. A bad message gets an error reply when the
// client asked for one and is otherwise absorbed.
func (p *Peer) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	replyError := func(err error) {
		log.Errorf("connection %s, method %s: %v", p.rc.CID(), req.Method, err)
		if req.Notif {
			return
		}
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    500,
			Message: fmt.Sprintf("%s", err),
		})
	}

	switch req.Method {
	case proto.ClientJoin:
		var msg proto.JoinMsg
		if err := p.unmarshal(req.Params, &msg); err != nil {
			replyError(err)
			break
		}
		members := p.relay.Join(p.rc, msg)
		if !req.Notif {
			_ = conn.Reply(ctx, req.ID, members)
		}

	case proto.ClientOffer, proto.ClientAnswer, proto.ClientCandidate:
		var msg proto.RelayMsg
		if err := p.unmarshal(req.Params, &msg); err != nil {
			replyError(err)
			break
		}
		p.relay.Relay(p.rc, req.Method, msg)
		if !req.Notif {
			_ = conn.Reply(ctx, req.ID, nil)
		}

	case proto.ClientLeave:
		// leave carries no payload
		p.relay.Leave(p.rc)
		if !req.Notif {
			_ = conn.Reply(ctx, req.ID, nil)
		}

	default:
		replyError(errors.New("unknown message"))
	}
}

// unmarshal message params
func (p *Peer) unmarshal(data *json.RawMessage, result interface{}) error {
	if data == nil {
		return errors.New("request without params")
	}
	return json.Unmarshal(*data, result)
}

// Notify sends a server-to-client event, implement relay.Sender
func (p *Peer) Notify(method string, data interface{}) error {
	return p.conn.Notify(p.ctx, method, data)
}

// DisconnectNotify reports transport teardown
func (p *Peer) DisconnectNotify() <-chan struct{} {
	return p.conn.DisconnectNotify()
}

// Close cleans up the peer's session state and closes the transport. The
// relay side is a no-op if an explicit leave already ran.
func (p *Peer) Close() {
	p.relay.Leave(p.rc)
	_ = p.conn.Close()
}
