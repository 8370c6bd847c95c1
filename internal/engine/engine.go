// Package engine implements the MQTT protocol state machines: CONNECT,
// PUBLISH (QoS 0/1/2), SUBSCRIBE, PINGREQ, DISCONNECT, and inbound
// delivery (spec component C5). Every operation is synchronous call/
// response: send, then block reading the expected acknowledgement, then
// return (spec §4.4, §5). Grounded on the teacher's client/mqtt.go
// MQTTClient, adapted from its channel-based async ack correlation
// (connackChan/pubackChan/subackChan fed by a background readLoop) to the
// spec's single-threaded, one-operation-in-flight synchronous engine: each
// method here reads its own ack directly off the transport instead of
// waiting on a channel fed by a separate goroutine.
package engine

import (
	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
	"github.com/mqtt-tools/go-mqtt-cli/internal/payload"
	"github.com/mqtt-tools/go-mqtt-cli/internal/session"
	"github.com/mqtt-tools/go-mqtt-cli/internal/transport"
	"github.com/mqtt-tools/go-mqtt-cli/internal/wire"
)

// Engine drives one Session over one Transport. Not reentrant: only one
// operation may be in flight at a time (spec §5).
type Engine struct {
	sess *session.Session
	t    transport.Transport
	r    *wire.Reader

	// MaxMessageSize bounds the frame reader (spec §4.3).
	MaxMessageSize uint32
}

// New builds an engine over the given session and transport.
func New(sess *session.Session, t transport.Transport, maxMessageSize uint32) *Engine {
	return &Engine{
		sess:           sess,
		t:              t,
		r:              wire.NewReader(readerAdapter{t}, maxMessageSize),
		MaxMessageSize: maxMessageSize,
	}
}

// readerAdapter satisfies io.Reader over a transport.Transport's Recv.
type readerAdapter struct{ t transport.Transport }

func (a readerAdapter) Read(p []byte) (int, error) { return a.t.Recv(p) }

func (e *Engine) send(op string, frame []byte) error {
	n, err := e.t.Send(frame)
	if err != nil {
		if merr, ok := err.(*mqtterr.Error); ok {
			return merr
		}
		return mqtterr.Wrap(mqtterr.KindTransportError, op, err)
	}
	if n < len(frame) {
		return mqtterr.New(mqtterr.KindSendShort, op)
	}
	return nil
}

// ConnectOptions and ConnectWill re-export their wire counterparts so
// callers don't need to import internal/wire directly.
type ConnectOptions = wire.ConnectOptions
type ConnectWill = wire.ConnectWill

// Connect sends CONNECT and reads CONNACK, classifying the return code
// per spec §4.4.1.
func (e *Engine) Connect(opt ConnectOptions) error {
	if err := e.sess.RequireActive("engine.Connect"); err != nil {
		return err
	}
	e.sess.SetState(session.Connecting)

	if err := e.send("engine.Connect", wire.BuildConnect(opt)); err != nil {
		e.sess.SetState(session.Failed)
		return err
	}

	f, err := e.r.ReadFrame()
	if err != nil {
		e.sess.SetState(session.Failed)
		return err
	}
	if f.Type != wire.TypeConnAck {
		e.sess.SetState(session.Failed)
		return mqtterr.New(mqtterr.KindUnexpectedPacket, "engine.Connect")
	}

	sessionPresent := len(f.Payload) > 0 && f.Payload[0]&0x01 == 1
	var returnCode byte
	if len(f.Payload) > 1 {
		returnCode = f.Payload[1]
	}

	switch wire.ConnAckReturnCode(returnCode) {
	case wire.ConnAckOk:
		e.sess.SetState(session.Connected)
		if sessionPresent {
			return mqtterr.New(mqtterr.KindSessionPresent, "engine.Connect")
		}
		return nil
	case wire.ConnAckUnacceptableProtocolVersion:
		e.sess.SetState(session.Failed)
		return mqtterr.New(mqtterr.KindUnacceptableProtocolVersion, "engine.Connect")
	case wire.ConnAckIdentifierRejected:
		e.sess.SetState(session.Failed)
		return mqtterr.New(mqtterr.KindIdentifierRejected, "engine.Connect")
	case wire.ConnAckServerUnavailable:
		e.sess.SetState(session.Failed)
		return mqtterr.New(mqtterr.KindServerUnavailable, "engine.Connect")
	case wire.ConnAckBadCredentials:
		e.sess.SetState(session.Failed)
		return mqtterr.New(mqtterr.KindBadCredentials, "engine.Connect")
	case wire.ConnAckNotAuthorized:
		e.sess.SetState(session.Failed)
		return mqtterr.New(mqtterr.KindNotAuthorized, "engine.Connect")
	default:
		e.sess.SetState(session.Failed)
		return mqtterr.New(mqtterr.KindUnknownConnAck, "engine.Connect")
	}
}

// Publish sends PUBLISH and, for QoS >= 1, drives the matching ack
// handshake (spec §4.4.2).
func (e *Engine) Publish(topic string, qos byte, retain bool, body []byte) error {
	if err := e.sess.RequireActive("engine.Publish"); err != nil {
		return err
	}

	var packetID uint16
	var err error
	if qos >= 1 {
		packetID, err = e.sess.AllocPacketID()
		if err != nil {
			return err
		}
	}

	frame := wire.BuildPublish(topic, packetID, qos, retain, body)
	if err := e.send("engine.Publish", frame); err != nil {
		return err
	}

	switch qos {
	case 0:
		return nil
	case 1:
		return e.awaitPubAck(packetID)
	case 2:
		return e.awaitQoS2(packetID)
	default:
		return mqtterr.New(mqtterr.KindUnexpectedPacket, "engine.Publish")
	}
}

// PublishChunk sends a single PUBLISH whose payload the caller has already
// framed into a chunk no larger than payload.DefaultChunkSize (spec
// §4.4.3). Protocol semantics are identical to Publish.
func (e *Engine) PublishChunk(topic string, qos byte, retain bool, chunk []byte) error {
	if len(chunk) > payload.DefaultChunkSize {
		return mqtterr.New(mqtterr.KindPayloadTooLarge, "engine.PublishChunk")
	}
	return e.Publish(topic, qos, retain, chunk)
}

func (e *Engine) awaitPubAck(packetID uint16) error {
	f, err := e.r.ReadFrame()
	if err != nil {
		return err
	}
	if f.Type != wire.TypePubAck {
		return mqtterr.New(mqtterr.KindQoS1AckUnexpected, "engine.Publish")
	}
	if wire.PacketIDFromAck(f.Payload) != packetID {
		return mqtterr.New(mqtterr.KindQoS1PacketIDMismatch, "engine.Publish")
	}
	return nil
}

func (e *Engine) awaitQoS2(packetID uint16) error {
	f, err := e.r.ReadFrame()
	if err != nil {
		return err
	}
	if f.Type != wire.TypePubRec {
		return mqtterr.New(mqtterr.KindQoS2RecUnexpected, "engine.Publish")
	}
	if wire.PacketIDFromAck(f.Payload) != packetID {
		return mqtterr.New(mqtterr.KindQoS2RecPacketIDMismatch, "engine.Publish")
	}

	if err := e.send("engine.Publish", wire.BuildPubRel(packetID)); err != nil {
		return err
	}

	f, err = e.r.ReadFrame()
	if err != nil {
		return err
	}
	if f.Type != wire.TypePubComp {
		return mqtterr.New(mqtterr.KindQoS2CompUnexpected, "engine.Publish")
	}
	if wire.PacketIDFromAck(f.Payload) != packetID {
		return mqtterr.New(mqtterr.KindQoS2CompPacketIDMismatch, "engine.Publish")
	}
	return nil
}

// Subscribe sends SUBSCRIBE at QoS 0 (spec §3: "the source client always
// requests QoS 0") and reads SUBACK (spec §4.4.4).
func (e *Engine) Subscribe(topic string) error {
	if err := e.sess.RequireActive("engine.Subscribe"); err != nil {
		return err
	}
	packetID, err := e.sess.AllocPacketID()
	if err != nil {
		return err
	}

	if err := e.send("engine.Subscribe", wire.BuildSubscribe(topic, packetID)); err != nil {
		return err
	}

	f, err := e.r.ReadFrame()
	if err != nil {
		return err
	}
	if f.Type != wire.TypeSubAck {
		return mqtterr.New(mqtterr.KindSubAckUnexpected, "engine.Subscribe")
	}
	if wire.PacketIDFromAck(f.Payload) != packetID {
		return mqtterr.New(mqtterr.KindSubAckPacketIDMismatch, "engine.Subscribe")
	}
	return nil
}

// Ping sends PINGREQ with no engine-side read - the PINGRESP arrives on
// the normal receive path (spec §4.4.5). The driver is responsible for
// never overlapping this with a Publish/Subscribe in flight (spec §5,
// SPEC_FULL.md §5).
func (e *Engine) Ping() error {
	if err := e.sess.RequireActive("engine.Ping"); err != nil {
		return err
	}
	return e.send("engine.Ping", wire.PingReq)
}

// Disconnect sends DISCONNECT and transitions the session to Disconnecting
// (spec §4.4.6). The caller is expected to close the transport.
func (e *Engine) Disconnect() error {
	if err := e.send("engine.Disconnect", wire.Disconnect); err != nil {
		return err
	}
	e.sess.SetState(session.Disconnecting)
	return nil
}

// InboundMessage is one delivered PUBLISH (spec §3 "Incoming message").
type InboundMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
}

// ReadInbound drives the frame reader and returns the next delivered
// PUBLISH, discarding everything else (PINGRESP, stray SUBACKs, etc. -
// spec §4.4.7). The client never emits PUBACK/PUBREC for incoming QoS>=1
// PUBLISHes; this is a documented limitation of the source preserved
// deliberately (spec §9, §4.4.7), not an oversight.
func (e *Engine) ReadInbound() (*InboundMessage, error) {
	for {
		f, err := e.r.ReadFrame()
		if err != nil {
			return nil, err
		}
		if f.Type != wire.TypePublish {
			continue
		}
		return decodePublish(f)
	}
}

func decodePublish(f *wire.Frame) (*InboundMessage, error) {
	if len(f.Payload) < 2 {
		return nil, mqtterr.New(mqtterr.KindUnexpectedPacket, "engine.ReadInbound")
	}
	topicLen := int(f.Payload[0])<<8 | int(f.Payload[1])
	if len(f.Payload) < 2+topicLen {
		return nil, mqtterr.New(mqtterr.KindUnexpectedPacket, "engine.ReadInbound")
	}
	topic := string(f.Payload[2 : 2+topicLen])
	rest := f.Payload[2+topicLen:]

	qos := (f.Flags >> 1) & 0x03
	if qos >= 1 {
		if len(rest) < 2 {
			return nil, mqtterr.New(mqtterr.KindUnexpectedPacket, "engine.ReadInbound")
		}
		rest = rest[2:] // skip packet-id (spec §4.4.7)
	}

	return &InboundMessage{Topic: topic, Payload: rest, QoS: qos}, nil
}
