package wire_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
	"github.com/mqtt-tools/go-mqtt-cli/internal/wire"
)

func TestReadFrameConnAck(t *testing.T) {
	r := wire.NewReader(bytes.NewReader([]byte{0x20, 0x02, 0x00, 0x00}), 0)
	f, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(wire.TypeConnAck), f.Type)
	assert.Equal(t, []byte{0x00, 0x00}, f.Payload)
}

func TestReadFrameClosed(t *testing.T) {
	r := wire.NewReader(bytes.NewReader(nil), 0)
	_, err := r.ReadFrame()
	require.Error(t, err)
	assert.True(t, mqtterr.As(err, mqtterr.KindTransportClosed))
}

func TestReadFrameTooLarge(t *testing.T) {
	body := wire.BuildPublish("t", 0, 0, false, make([]byte, 10))
	r := wire.NewReader(bytes.NewReader(body), 5)
	_, err := r.ReadFrame()
	require.Error(t, err)
	assert.True(t, mqtterr.As(err, mqtterr.KindMessageTooLarge))
}

// oneByteReader hands the reader one byte at a time regardless of the
// caller's buffer size, exercising the "arbitrary small chunks" clause of
// Property P5.
type oneByteReader struct {
	data []byte
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

// TestReadFrameStreamFraming checks Property P5: reading the same byte
// stream one byte at a time yields the same sequence of frames as reading
// it whole.
func TestReadFrameStreamFraming(t *testing.T) {
	whole := append(append([]byte{0x20, 0x02, 0x00, 0x00}, wire.PingResp...), wire.BuildSubscribe("a", 1)...)

	fromWhole := readAll(t, bytes.NewReader(whole))
	fromChunks := readAll(t, &oneByteReader{data: append([]byte{}, whole...)})

	require.Equal(t, len(fromWhole), len(fromChunks))
	for i := range fromWhole {
		assert.Equal(t, fromWhole[i].Type, fromChunks[i].Type)
		assert.Equal(t, fromWhole[i].Payload, fromChunks[i].Payload)
	}
}

func readAll(t *testing.T, r io.Reader) []*wire.Frame {
	t.Helper()
	reader := wire.NewReader(r, 0)
	var frames []*wire.Frame
	for {
		f, err := reader.ReadFrame()
		if err != nil {
			require.True(t, mqtterr.As(err, mqtterr.KindTransportClosed))
			break
		}
		frames = append(frames, f)
	}
	return frames
}
