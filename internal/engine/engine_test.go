package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqtt-tools/go-mqtt-cli/internal/engine"
	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
	"github.com/mqtt-tools/go-mqtt-cli/internal/session"
	"github.com/mqtt-tools/go-mqtt-cli/internal/transport"
)

// TestConnectAccept checks scenario S2's accept case, using an in-memory
// pipe transport double grounded on the pack's breezymind-gomqtt
// io.Reader/io.Writer transport-adapter pattern to play the broker's part.
func TestConnectAccept(t *testing.T) {
	client, broker := transport.NewPipePair()
	sess := session.New("mqtt", 1)
	sess.SetState(session.Disconnected)
	e := engine.New(sess, client, 0)

	done := make(chan error, 1)
	go func() { done <- e.Connect(engine.ConnectOptions{ClientID: "mqtt", KeepAlive: 300}) }()

	buf := make([]byte, 64)
	n, err := broker.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10}, buf[:1])
	_ = n

	_, err = broker.Send([]byte{0x20, 0x02, 0x00, 0x00})
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestConnectBadCredentials(t *testing.T) {
	client, broker := transport.NewPipePair()
	sess := session.New("mqtt", 1)
	e := engine.New(sess, client, 0)

	done := make(chan error, 1)
	go func() { done <- e.Connect(engine.ConnectOptions{ClientID: "mqtt", KeepAlive: 300}) }()

	buf := make([]byte, 64)
	_, err := broker.Recv(buf)
	require.NoError(t, err)
	_, err = broker.Send([]byte{0x20, 0x02, 0x00, 0x04})
	require.NoError(t, err)

	err = <-done
	require.Error(t, err)
	assert.True(t, mqtterr.As(err, mqtterr.KindBadCredentials))
}

func TestConnectSessionPresent(t *testing.T) {
	client, broker := transport.NewPipePair()
	sess := session.New("mqtt", 1)
	e := engine.New(sess, client, 0)

	done := make(chan error, 1)
	go func() { done <- e.Connect(engine.ConnectOptions{ClientID: "mqtt", KeepAlive: 300}) }()

	buf := make([]byte, 64)
	_, err := broker.Recv(buf)
	require.NoError(t, err)
	_, err = broker.Send([]byte{0x20, 0x02, 0x01, 0x00})
	require.NoError(t, err)

	err = <-done
	require.Error(t, err)
	assert.True(t, mqtterr.As(err, mqtterr.KindSessionPresent))
	assert.True(t, mqtterr.KindSessionPresent.Warning())
}

// TestPublishQoS1AckMismatch checks Property P4: a mismatched ack id
// yields the documented mismatch kind, never silent acceptance.
func TestPublishQoS1AckMismatch(t *testing.T) {
	client, broker := transport.NewPipePair()
	sess := session.New("mqtt", 1)
	sess.SetState(session.Connected)
	e := engine.New(sess, client, 0)

	done := make(chan error, 1)
	go func() { done <- e.Publish("t", 1, false, []byte("x")) }()

	buf := make([]byte, 64)
	_, err := broker.Recv(buf)
	require.NoError(t, err)
	_, err = broker.Send([]byte{0x40, 0x02, 0x00, 0x02}) // wrong id
	require.NoError(t, err)

	err = <-done
	require.Error(t, err)
	assert.True(t, mqtterr.As(err, mqtterr.KindQoS1PacketIDMismatch))
}

func TestPublishQoS1Accept(t *testing.T) {
	client, broker := transport.NewPipePair()
	sess := session.New("mqtt", 1)
	sess.SetState(session.Connected)
	e := engine.New(sess, client, 0)

	done := make(chan error, 1)
	go func() { done <- e.Publish("t", 1, false, []byte("x")) }()

	buf := make([]byte, 64)
	_, err := broker.Recv(buf)
	require.NoError(t, err)
	_, err = broker.Send([]byte{0x40, 0x02, 0x00, 0x01})
	require.NoError(t, err)

	require.NoError(t, <-done)
}

// TestPublishQoS2Round checks scenario S5's full handshake.
func TestPublishQoS2Round(t *testing.T) {
	client, broker := transport.NewPipePair()
	sess := session.New("mqtt", 1)
	sess.SetState(session.Connected)
	e := engine.New(sess, client, 0)

	done := make(chan error, 1)
	go func() { done <- e.Publish("t", 2, false, []byte("x")) }()

	buf := make([]byte, 64)
	n, err := broker.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x34), buf[0]) // PUBLISH first byte, QoS2
	_ = n

	_, err = broker.Send([]byte{0x50, 0x02, 0x00, 0x01}) // PUBREC
	require.NoError(t, err)

	n, err = broker.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x62, 0x02, 0x00, 0x01}, buf[:n]) // PUBREL

	_, err = broker.Send([]byte{0x70, 0x02, 0x00, 0x01}) // PUBCOMP
	require.NoError(t, err)

	require.NoError(t, <-done)
}

// TestSubscribeAndDeliver checks scenario S7 end-to-end.
func TestSubscribeAndDeliver(t *testing.T) {
	client, broker := transport.NewPipePair()
	sess := session.New("mqtt", 1)
	sess.SetState(session.Connected)
	e := engine.New(sess, client, 0)

	subDone := make(chan error, 1)
	go func() { subDone <- e.Subscribe("a") }()

	buf := make([]byte, 64)
	n, err := broker.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0x06, 0x00, 0x01, 0x00, 0x01, 0x61, 0x00}, buf[:n])

	_, err = broker.Send([]byte{0x90, 0x03, 0x00, 0x01, 0x00})
	require.NoError(t, err)
	require.NoError(t, <-subDone)

	msgDone := make(chan *engine.InboundMessage, 1)
	errDone := make(chan error, 1)
	go func() {
		msg, err := e.ReadInbound()
		msgDone <- msg
		errDone <- err
	}()

	_, err = broker.Send([]byte{0x30, 0x07, 0x00, 0x03, 0x61, 0x2F, 0x62, 0x68, 0x69})
	require.NoError(t, err)

	require.NoError(t, <-errDone)
	msg := <-msgDone
	require.NotNil(t, msg)
	assert.Equal(t, "a/b", msg.Topic)
	assert.Equal(t, []byte("hi"), msg.Payload)
	assert.Equal(t, byte(0), msg.QoS)
}
