// Package proto defines the JSON websocket messages exchanged between the
// host and the joining peer.
package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// Version tracks the wire-protocol revision expected by peers.
	Version = 1
)

// Message type identifiers.
const (
	TypeAction = "action"
	TypeSync   = "sync"
	TypePing   = "ping"
	TypePong   = "pong"
)

// ErrUnknownType is returned when a message carries an unrecognised type.
var ErrUnknownType = errors.New("unknown message type")

// Message is the envelope for every websocket payload. Only the fields
// relevant to Type are populated.
type Message struct {
	Ver      int    `json:"ver,omitempty"`
	Type     string `json:"type"`
	Tick     uint32 `json:"tick,omitempty"`
	Action   string `json:"action,omitempty"`
	Snapshot []byte `json:"snapshot,omitempty"`
	SentAt   int64  `json:"sentAt,omitempty"`
}

// ActionMessage builds an action payload.
func ActionMessage(tick uint32, action string) Message {
	return Message{Ver: Version, Type: TypeAction, Tick: tick, Action: action}
}

// SyncMessage builds a snapshot payload.
func SyncMessage(tick uint32, snapshot []byte) Message {
	return Message{Ver: Version, Type: TypeSync, Tick: tick, Snapshot: snapshot}
}

// PingMessage builds a round-trip probe stamped with sentAt (unix millis).
func PingMessage(sentAt int64) Message {
	return Message{Ver: Version, Type: TypePing, SentAt: sentAt}
}

// PongMessage echoes a ping's timestamp.
func PongMessage(sentAt int64) Message {
	return Message{Ver: Version, Type: TypePong, SentAt: sentAt}
}

// Encode renders msg as JSON, stamping the protocol version when missing.
func Encode(msg Message) ([]byte, error) {
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	return json.Marshal(msg)
}

// Decode converts a raw websocket payload into a Message.
func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported protocol version %d", msg.Ver)
	}
	switch msg.Type {
	case TypeAction, TypeSync, TypePing, TypePong:
	default:
		return msg, fmt.Errorf("%w %q", ErrUnknownType, msg.Type)
	}
	return msg, nil
}
