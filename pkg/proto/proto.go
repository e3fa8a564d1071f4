package proto

// UID is the stable, client-asserted participant id
type UID string

// RID is the room id
type RID string

// CID is the transport connection id, assigned on connect and never reused
type CID string

const (
	// client to server
	ClientJoin      = "join"
	ClientOffer     = "offer"
	ClientAnswer    = "answer"
	ClientCandidate = "iceCandidate"
	ClientLeave     = "leave"

	// server to client
	ClientOnMemberJoin  = "memberJoined"
	ClientOnMemberLeave = "memberLeft"
)
