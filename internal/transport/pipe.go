package transport

import (
	"io"
	"net"
	"time"
)

// Pipe is an in-memory Transport test double backed by net.Pipe, grounded
// on the pack's breezymind-gomqtt websocket_conn.go pattern of adapting an
// io.Reader/io.Writer pair into the transport capability. Used by engine
// and client tests that need a real blocking, two-ended stream without a
// socket.
type Pipe struct {
	conn net.Conn
}

// NewPipePair returns two Transports, each end's writes visible to the
// other end's reads.
func NewPipePair() (*Pipe, *Pipe) {
	a, b := net.Pipe()
	return &Pipe{conn: a}, &Pipe{conn: b}
}

func (p *Pipe) Send(b []byte) (int, error) { return p.conn.Write(b) }

func (p *Pipe) Recv(buf []byte) (int, error) {
	n, err := p.conn.Read(buf)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

func (p *Pipe) SetRecvTimeout(d time.Duration) error {
	if d <= 0 {
		return p.conn.SetReadDeadline(time.Time{})
	}
	return p.conn.SetReadDeadline(time.Now().Add(d))
}

func (p *Pipe) Close() error { return p.conn.Close() }

func (p *Pipe) Read(b []byte) (int, error) { return p.Recv(b) }
