// Package transport implements the byte-stream capability the engine
// requires: send, recv, set_recv_timeout, close (spec §6 "Transport
// contract"). The engine consumes only this capability, never net.Conn
// directly, per spec §9's note on replacing the source's function-pointer
// send with an explicit transport capability.
package transport

import (
	"net"
	"time"

	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
)

// Transport is the capability the protocol engine requires of a byte
// stream (spec §6).
type Transport interface {
	Send(b []byte) (int, error)
	Recv(buf []byte) (int, error)
	SetRecvTimeout(d time.Duration) error
	Close() error
}

// TCP is a net.Conn-backed Transport with TCP_NODELAY set, the reference
// realisation named in spec §6.
type TCP struct {
	conn        *net.TCPConn
	recvTimeout time.Duration
}

// DialTCP connects to addr with TCP_NODELAY enabled, grounded on the
// socket-tuning pattern in the pack's
// alibo-simple-mqtt-network-lab/go-backend/main.go custom dialer.
func DialTCP(addr string, timeout time.Duration) (*TCP, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, mqtterr.Wrap(mqtterr.KindConnectFailed, "transport.DialTCP", err)
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, mqtterr.New(mqtterr.KindSocketCreate, "transport.DialTCP")
	}
	if err := tcpConn.SetNoDelay(true); err != nil {
		tcpConn.Close()
		return nil, mqtterr.Wrap(mqtterr.KindSocketOptions, "transport.DialTCP", err)
	}
	return &TCP{conn: tcpConn}, nil
}

func (t *TCP) Send(b []byte) (int, error) {
	n, err := t.conn.Write(b)
	if err != nil {
		return n, mqtterr.Wrap(mqtterr.KindTransportError, "transport.Send", err)
	}
	if n < len(b) {
		return n, mqtterr.New(mqtterr.KindSendShort, "transport.Send")
	}
	return n, nil
}

func (t *TCP) Recv(buf []byte) (int, error) {
	if t.recvTimeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.recvTimeout)); err != nil {
			return 0, err
		}
	}
	n, err := t.conn.Read(buf)
	return n, err
}

// SetRecvTimeout maps to net.Conn's read deadline, the idiomatic Go
// equivalent of the source's SO_RCVTIMEO-based set_recv_timeout (spec
// §6): the deadline is re-armed before every Recv. A zero duration clears
// the deadline (no timeout).
func (t *TCP) SetRecvTimeout(d time.Duration) error {
	t.recvTimeout = d
	if d <= 0 {
		return t.conn.SetReadDeadline(time.Time{})
	}
	return t.conn.SetReadDeadline(time.Now().Add(d))
}

func (t *TCP) Close() error {
	return t.conn.Close()
}

// Read implements io.Reader so a *TCP can back a wire.Reader directly.
func (t *TCP) Read(p []byte) (int, error) { return t.Recv(p) }
