package wire

import (
	"errors"
	"io"
	"net"

	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
)

// Reader reads one full inbound MQTT packet at a time from an underlying
// byte stream (spec component C3). It never reads past a frame boundary,
// so handing it arbitrarily small chunks of a well-formed stream yields
// the same sequence of frames as handing it the whole stream at once
// (spec Property P5).
type Reader struct {
	r       io.Reader
	maxSize uint32
}

// NewReader wraps r with the given maximum accepted remaining-length
// (spec §4.3 "oversize packets fail with MessageTooLarge"). maxSize of 0
// selects DefaultMaxMessageSize.
func NewReader(r io.Reader, maxSize uint32) *Reader {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Reader{r: r, maxSize: maxSize}
}

// ReadFrame reads one fixed byte, decodes the remaining-length varint, then
// reads exactly that many more bytes, possibly across multiple underlying
// reads (spec §4.3).
func (rd *Reader) ReadFrame() (*Frame, error) {
	head := make([]byte, 1)
	n, err := io.ReadFull(rd.r, head)
	if n == 0 {
		if err == io.EOF {
			return nil, mqtterr.New(mqtterr.KindTransportClosed, "wire.ReadFrame")
		}
		return nil, classifyReadError(err, "wire.ReadFrame")
	}
	if err != nil {
		return nil, classifyReadError(err, "wire.ReadFrame")
	}

	remaining, err := DecodeVarInt(rd.r)
	if err != nil {
		return nil, err
	}
	if remaining > rd.maxSize {
		return nil, mqtterr.New(mqtterr.KindMessageTooLarge, "wire.ReadFrame")
	}

	payload := make([]byte, remaining)
	if remaining > 0 {
		if _, err := io.ReadFull(rd.r, payload); err != nil {
			return nil, classifyReadError(err, "wire.ReadFrame")
		}
	}

	return &Frame{
		Type:            head[0] >> 4,
		Flags:           head[0] & 0x0F,
		RemainingLength: remaining,
		Payload:         payload,
	}, nil
}

// classifyReadError maps a transport-level read failure to TransportClosed,
// ReadTimeout, or TransportError per spec §4.3.
func classifyReadError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return mqtterr.New(mqtterr.KindTransportClosed, op)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return mqtterr.Wrap(mqtterr.KindReadTimeout, op, err)
	}
	return mqtterr.Wrap(mqtterr.KindTransportError, op, err)
}
