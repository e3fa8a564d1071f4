package proto

import "encoding/json"

/// Messages ///

// JoinMsg binds the sending connection to a participant and puts it in a room
type JoinMsg struct {
	RID         RID    `json:"roomId"`
	UID         UID    `json:"participantId"`
	DisplayName string `json:"displayName"`
}

// RelayMsg carries a negotiation payload to one participant.
// The payload is opaque: it is forwarded byte-for-byte, never parsed.
type RelayMsg struct {
	To      UID             `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// ToClientRelayMsg is the relayed payload with the sender's participant id
// substituted for its transport identity
type ToClientRelayMsg struct {
	Payload json.RawMessage `json:"payload"`
	From    UID             `json:"from"`
}

// MemberInfo describes one room member. It is the memberJoined payload and
// the element type of the existingMembers reply to join.
type MemberInfo struct {
	UID         UID    `json:"participantId"`
	DisplayName string `json:"displayName"`
}

// MemberLeaveMsg tells remaining members a participant is gone
type MemberLeaveMsg struct {
	UID UID `json:"participantId"`
}
