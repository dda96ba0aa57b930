// Package snapshot encodes the deterministic simulation state into the
// opaque buffer exchanged between host and peer.
//
// Layout: 4-byte magic, big-endian uint32 body length, msgpack body.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"duel-arena/server/internal/sim"
)

const headerSize = 8

var magic = [4]byte{'A', 'R', 'S', '1'}

var (
	// ErrTruncated reports a buffer shorter than its header or declared length.
	ErrTruncated = errors.New("snapshot truncated")
	// ErrBadMagic reports a buffer that does not start with the snapshot magic.
	ErrBadMagic = errors.New("snapshot magic mismatch")
	// ErrCorrupt reports a body that decodes to an impossible state.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// MaxBodySize bounds the declared body length accepted by Decode.
const MaxBodySize = 1 << 20

// Encode serializes the simulated data of s. Attachments are not encoded.
func Encode(s *sim.State) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("encode snapshot: state is nil")
	}
	var body bytes.Buffer
	enc := msgpack.NewEncoder(&body)
	enc.UseCompactInts(true)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	out := make([]byte, headerSize+body.Len())
	copy(out, magic[:])
	binary.BigEndian.PutUint32(out[4:headerSize], uint32(body.Len()))
	copy(out[headerSize:], body.Bytes())
	return out, nil
}

// Decode parses a buffer produced by Encode into a fresh state without
// attachments.
func Decode(data []byte) (*sim.State, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("decode snapshot: %w: %d bytes", ErrTruncated, len(data))
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("decode snapshot: %w", ErrBadMagic)
	}
	size := binary.BigEndian.Uint32(data[4:headerSize])
	if size > MaxBodySize {
		return nil, fmt.Errorf("decode snapshot: %w: body length %d", ErrCorrupt, size)
	}
	body := data[headerSize:]
	if uint32(len(body)) < size {
		return nil, fmt.Errorf("decode snapshot: %w: want %d body bytes, have %d", ErrTruncated, size, len(body))
	}
	if uint32(len(body)) > size {
		return nil, fmt.Errorf("decode snapshot: %w: %d trailing bytes", ErrCorrupt, uint32(len(body))-size)
	}

	var state sim.State
	if err := msgpack.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w: %v", ErrCorrupt, err)
	}
	if err := validate(&state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w: %v", ErrCorrupt, err)
	}
	if len(state.Objects) == 0 {
		state.Objects = nil
	}
	return &state, nil
}

func validate(s *sim.State) error {
	for i, h := range s.HARs {
		if h.Kind >= sim.HARKinds {
			return fmt.Errorf("player %d has unknown har %d", i+1, h.Kind)
		}
		if h.Facing != sim.FaceLeft && h.Facing != sim.FaceRight {
			return fmt.Errorf("player %d has invalid facing %d", i+1, h.Facing)
		}
	}
	for i, obj := range s.Objects {
		if int(obj.Owner) >= sim.Players {
			return fmt.Errorf("object %d has invalid owner %d", i, obj.Owner)
		}
	}
	return nil
}
