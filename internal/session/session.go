// Package session holds MQTT session state: connection parameters, the
// packet-id allocator, and the lifecycle state machine (spec component C4).
package session

import (
	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
)

// State is the session lifecycle (spec §3).
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
	Failed
)

// Will is the optional last-will message recorded on the session.
type Will struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Session carries the per-connection state the engine consults on every
// operation (spec §3). It is not safe for concurrent use - the contract is
// one active caller at a time (spec §5).
type Session struct {
	ClientID      string
	Username      string
	Password      string
	HasUsername   bool
	HasPassword   bool
	Will          *Will
	CleanSession  bool
	KeepAlive     uint16

	nextPacketID uint16
	lastPacketID uint16
	state        State
}

// New creates a session in the Disconnected state with the packet-id
// sequence starting at seq (default 1, spec §6 "sequence"; spec Property
// P2 calls this "the configured sequence").
func New(clientID string, seq uint16) *Session {
	if seq == 0 {
		seq = 1
	}
	return &Session{
		ClientID:     clientID,
		CleanSession: false,
		nextPacketID: seq,
		state:        Disconnected,
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) SetState(state State) { s.state = state }

// LastPacketID returns the id of the most recent in-flight packet, used to
// correlate acks (spec §3).
func (s *Session) LastPacketID() uint16 { return s.lastPacketID }

// AllocPacketID assigns next_packet_id, records it as last_packet_id, then
// advances the sequence, wrapping 0xFFFF to 1 - it never emits 0 (spec §3,
// §4.5, Property P2). Fails with InvalidState once the session is terminal.
func (s *Session) AllocPacketID() (uint16, error) {
	if s.state == Disconnecting || s.state == Failed {
		return 0, mqtterr.New(mqtterr.KindInvalidState, "session.AllocPacketID")
	}
	id := s.nextPacketID
	s.lastPacketID = id
	if s.nextPacketID == 0xFFFF {
		s.nextPacketID = 1
	} else {
		s.nextPacketID++
	}
	return id, nil
}

// RequireActive fails with InvalidState unless the session can still
// perform an operation (spec §4.5 "further operations fail with
// InvalidState").
func (s *Session) RequireActive(op string) error {
	if s.state == Disconnecting || s.state == Failed {
		return mqtterr.New(mqtterr.KindInvalidState, op)
	}
	return nil
}
