// Package mqtterr holds the typed error taxonomy the MQTT client surfaces.
// Every operation in internal/engine returns one of these kinds (wrapped in
// *Error) instead of an ad-hoc error string, so a CLI frontend can compute a
// numeric exit code mechanically.
package mqtterr

import "fmt"

// Kind identifies a class of failure the client can report.
type Kind int

const (
	// Transport
	KindSocketCreate Kind = iota + 1
	KindSocketOptions
	KindConnectFailed
	KindTransportClosed
	KindReadTimeout
	KindSendShort
	KindTransportError

	// Protocol framing
	KindMalformedVarInt
	KindUnexpectedPacket
	KindMessageTooLarge
	KindPayloadTooLarge

	// Handshake correlation
	KindQoS1AckUnexpected
	KindQoS1PacketIDMismatch
	KindQoS2RecUnexpected
	KindQoS2RecPacketIDMismatch
	KindQoS2CompUnexpected
	KindQoS2CompPacketIDMismatch
	KindSubAckUnexpected
	KindSubAckPacketIDMismatch

	// Broker refusal (CONNACK)
	KindSessionPresent
	KindUnacceptableProtocolVersion
	KindIdentifierRejected
	KindServerUnavailable
	KindBadCredentials
	KindNotAuthorized
	KindUnknownConnAck

	// Local I/O
	KindFileOpenError

	// Session
	KindInvalidState
)

var kindNames = map[Kind]string{
	KindSocketCreate:                "socket_create",
	KindSocketOptions:               "socket_options",
	KindConnectFailed:               "connect_failed",
	KindTransportClosed:             "transport_closed",
	KindReadTimeout:                 "read_timeout",
	KindSendShort:                   "send_short",
	KindTransportError:              "transport_error",
	KindMalformedVarInt:             "malformed_varint",
	KindUnexpectedPacket:            "unexpected_packet",
	KindMessageTooLarge:             "message_too_large",
	KindPayloadTooLarge:             "payload_too_large",
	KindQoS1AckUnexpected:           "qos1_ack_unexpected",
	KindQoS1PacketIDMismatch:        "qos1_packet_id_mismatch",
	KindQoS2RecUnexpected:           "qos2_rec_unexpected",
	KindQoS2RecPacketIDMismatch:     "qos2_rec_packet_id_mismatch",
	KindQoS2CompUnexpected:          "qos2_comp_unexpected",
	KindQoS2CompPacketIDMismatch:    "qos2_comp_packet_id_mismatch",
	KindSubAckUnexpected:            "suback_unexpected",
	KindSubAckPacketIDMismatch:      "suback_packet_id_mismatch",
	KindSessionPresent:              "session_present",
	KindUnacceptableProtocolVersion: "unacceptable_protocol_version",
	KindIdentifierRejected:          "identifier_rejected",
	KindServerUnavailable:           "server_unavailable",
	KindBadCredentials:              "bad_credentials",
	KindNotAuthorized:               "not_authorized",
	KindUnknownConnAck:              "unknown_connack",
	KindFileOpenError:               "file_open_error",
	KindInvalidState:                "invalid_state",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Warning reports whether this kind is advisory rather than fatal. The only
// warning-level kind is SessionPresent (spec §7): the caller may continue.
func (k Kind) Warning() bool {
	return k == KindSessionPresent
}

// ExitCode returns the process exit code for this kind, used by the CLI
// binaries. Spec §6: "Exit code is the numeric error kind (0 on success)."
func (k Kind) ExitCode() int {
	return int(k)
}

// Error wraps a Kind with the operation that produced it and, where
// available, the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// As reports whether err is an *Error of the given kind.
func As(err error, kind Kind) bool {
	me, ok := err.(*Error)
	return ok && me.Kind == kind
}
