// Package client is the public facade wiring session, engine, transport,
// and keep-alive into the shape the CLI binaries drive (SPEC_FULL.md A5).
// Grounded on the teacher's client.Client (the struct CLI actions depend
// on) and client/mqtt.go's MQTTClient (the connect/publish/subscribe
// surface it exposes), adapted from Instagram's MQTToT semantics to plain
// MQTT 3.1.1 per spec.md.
package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/mqtt-tools/go-mqtt-cli/internal/engine"
	"github.com/mqtt-tools/go-mqtt-cli/internal/keepalive"
	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
	"github.com/mqtt-tools/go-mqtt-cli/internal/session"
	"github.com/mqtt-tools/go-mqtt-cli/internal/transport"
)

// Will mirrors session.Will at the public surface.
type Will = session.Will

// InboundMessage mirrors engine.InboundMessage at the public surface.
type InboundMessage = engine.InboundMessage

// Options configures a new Client (spec §3 Session fields).
type Options struct {
	ClientID     string // empty => generated via uuid (SPEC_FULL.md §6.5)
	Username     string
	Password     string
	HasUsername  bool
	HasPassword  bool
	Will         *Will
	CleanSession bool
	KeepAlive    time.Duration
	Sequence     uint16
	MaxMessageSize uint32
}

// Client owns one Session, Engine, Transport, and keep-alive driver.
type Client struct {
	sess   *session.Session
	engine *engine.Engine
	kick   *keepalive.Driver
	opts   Options
}

// GenerateClientID returns a short opaque client identifier, grounded on
// the teacher's pervasive use of github.com/google/uuid for identifiers
// (there: device/session UUIDs; here: the default -i client-id, per
// SPEC_FULL.md §6.5).
func GenerateClientID() string {
	id := uuid.New().String()
	return "mqtt-" + id[:8]
}

// Dial connects to addr with a connect-wait budget matching the original
// source's persist_conn_time (SPEC_FULL.md §10): waitSeconds < 0 retries
// forever, 0 attempts once, >0 retries for that many seconds.
func Dial(addr string, waitSeconds int) (*transport.TCP, error) {
	deadline := time.Now().Add(time.Duration(waitSeconds) * time.Second)
	for {
		t, err := transport.DialTCP(addr, 5*time.Second)
		if err == nil {
			return t, nil
		}
		if waitSeconds == 0 {
			return nil, err
		}
		if waitSeconds > 0 && time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(time.Second)
	}
}

// New builds a Client over an already-dialed transport.
func New(t transport.Transport, opt Options) *Client {
	if opt.ClientID == "" {
		opt.ClientID = GenerateClientID()
	}
	sess := session.New(opt.ClientID, opt.Sequence)
	sess.Username, sess.Password = opt.Username, opt.Password
	sess.HasUsername, sess.HasPassword = opt.HasUsername, opt.HasPassword
	sess.Will = opt.Will
	sess.CleanSession = opt.CleanSession
	sess.KeepAlive = uint16(opt.KeepAlive.Seconds())

	e := engine.New(sess, t, opt.MaxMessageSize)
	c := &Client{sess: sess, engine: e, opts: opt}
	c.kick = keepalive.New(e, opt.KeepAlive)
	return c
}

// Connect performs the CONNECT/CONNACK handshake and, on success, starts
// the keep-alive driver (spec §4.4.1, §5).
func (c *Client) Connect() error {
	var will *engine.ConnectWill
	if c.sess.Will != nil {
		will = &engine.ConnectWill{
			Topic:   c.sess.Will.Topic,
			Payload: c.sess.Will.Payload,
			QoS:     c.sess.Will.QoS,
			Retain:  c.sess.Will.Retain,
		}
	}
	err := c.engine.Connect(engine.ConnectOptions{
		ClientID:     c.sess.ClientID,
		CleanSession: c.sess.CleanSession,
		KeepAlive:    c.sess.KeepAlive,
		Will:         will,
		Username:     c.sess.Username,
		Password:     c.sess.Password,
		HasUsername:  c.sess.HasUsername,
		HasPassword:  c.sess.HasPassword,
	})
	if err == nil || mqtterr.As(err, mqtterr.KindSessionPresent) {
		c.kick.Start()
	}
	return err
}

// Publish gates out the keep-alive ticker for the duration of the call so
// PINGREQ never interleaves mid-handshake (spec §5).
func (c *Client) Publish(topic string, qos byte, retain bool, body []byte) error {
	c.kick.Lock()
	defer c.kick.Unlock()
	return c.engine.Publish(topic, qos, retain, body)
}

// PublishChunk is Publish's chunked-payload counterpart (spec §4.4.3).
func (c *Client) PublishChunk(topic string, qos byte, retain bool, chunk []byte) error {
	c.kick.Lock()
	defer c.kick.Unlock()
	return c.engine.PublishChunk(topic, qos, retain, chunk)
}

// Subscribe gates the keep-alive ticker the same way Publish does.
func (c *Client) Subscribe(topic string) error {
	c.kick.Lock()
	defer c.kick.Unlock()
	return c.engine.Subscribe(topic)
}

// ReadInbound blocks for the next delivered PUBLISH. It intentionally does
// not gate the keep-alive ticker: PINGREQ sent mid-read is fine, since it
// lands on the wire independently of the in-progress recv (spec §5
// "exactly where the transport's send and recv block").
func (c *Client) ReadInbound() (*engine.InboundMessage, error) {
	return c.engine.ReadInbound()
}

// Disconnect stops the keep-alive driver and sends DISCONNECT (spec
// §4.4.6).
func (c *Client) Disconnect() error {
	c.kick.Stop()
	return c.engine.Disconnect()
}

// KeepAliveErrs surfaces asynchronous keep-alive failures (e.g. a dead
// connection detected by a failed PINGREQ send).
func (c *Client) KeepAliveErrs() <-chan error {
	return c.kick.Errs()
}
