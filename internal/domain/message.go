// Package domain contains the signaling wire vocabulary: connection roles and
// the closed set of message kinds the relay understands.
package domain

import "encoding/json"

// Role is a connection's declared role. It is bound at most once for the
// lifetime of a connection.
type Role string

const (
	RoleUnknown Role = ""
	RoleSender  Role = "sender"
	RoleViewer  Role = "viewer"
)

// Kind discriminates the signaling message types.
type Kind string

const (
	// KindInvalid covers unparseable payloads and unknown type tags.
	// Messages of this kind are always dropped.
	KindInvalid Kind = ""

	KindRole      Kind = "role"
	KindOffer     Kind = "offer"
	KindAnswer    Kind = "answer"
	KindCandidate Kind = "ice-candidate"
)

// Server-originated notifications. These are the only frames the relay
// produces itself; everything else passes through verbatim.
var (
	SenderConnected    = []byte(`{"type":"sender-connected"}`)
	SenderDisconnected = []byte(`{"type":"sender-disconnected"}`)
)

// Message is a signaling frame parsed once at the relay boundary. Raw keeps
// the original bytes so relayed payloads stay untouched; only the type tag
// (and the role field of a declaration) is ever inspected.
type Message struct {
	Kind Kind
	Role Role
	Raw  []byte
}

// Parse classifies data into the closed message set. It never fails: a
// payload that is not valid JSON, carries an unknown type tag, or declares a
// role outside {sender, viewer} comes back as KindInvalid.
func Parse(data []byte) Message {
	var env struct {
		Type string `json:"type"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{Kind: KindInvalid}
	}

	switch Kind(env.Type) {
	case KindRole:
		role := Role(env.Role)
		if role != RoleSender && role != RoleViewer {
			return Message{Kind: KindInvalid}
		}
		return Message{Kind: KindRole, Role: role, Raw: data}
	case KindOffer, KindAnswer, KindCandidate:
		return Message{Kind: Kind(env.Type), Raw: data}
	default:
		return Message{Kind: KindInvalid}
	}
}
