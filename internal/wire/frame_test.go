package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mqtt-tools/go-mqtt-cli/internal/wire"
)

// hexBytes makes literal-byte scenario assertions easy to read.
func hexBytes(b ...byte) []byte { return b }

// TestBuildConnectMinimal checks scenario S1.
func TestBuildConnectMinimal(t *testing.T) {
	got := wire.BuildConnect(wire.ConnectOptions{
		ClientID:     "mqtt",
		CleanSession: false,
		KeepAlive:    300,
	})
	want := hexBytes(0x10, 0x10, 0x00, 0x04, 0x4D, 0x51, 0x54, 0x54, 0x04, 0x00, 0x01, 0x2C, 0x00, 0x04, 0x6D, 0x71, 0x74, 0x74)
	assert.Equal(t, want, got)
}

// TestBuildPublishQoS0 checks scenario S3.
func TestBuildPublishQoS0(t *testing.T) {
	got := wire.BuildPublish("a/b", 0, 0, false, []byte("hi"))
	want := hexBytes(0x30, 0x07, 0x00, 0x03, 0x61, 0x2F, 0x62, 0x68, 0x69)
	assert.Equal(t, want, got)
	assert.Len(t, got, 9)
}

// TestBuildPublishQoS1 checks scenario S4.
func TestBuildPublishQoS1(t *testing.T) {
	got := wire.BuildPublish("t", 1, 1, false, []byte("x"))
	want := hexBytes(0x32, 0x06, 0x00, 0x01, 0x74, 0x00, 0x01, 0x78)
	assert.Equal(t, want, got)
}

// TestBuildPublishQoS2FirstByte checks scenario S5's PUBLISH first byte.
func TestBuildPublishQoS2FirstByte(t *testing.T) {
	got := wire.BuildPublish("t", 1, 2, false, []byte("x"))
	assert.Equal(t, byte(0x34), got[0])
}

// TestBuildPublishLargeRemainingLength checks scenario S6: a 200-byte
// payload on a short topic forces a 2-byte remaining-length varint.
func TestBuildPublishLargeRemainingLength(t *testing.T) {
	payload := make([]byte, 200)
	got := wire.BuildPublish("t", 0, 0, false, payload)
	// body = topic(2+1) + payload(200) = 203 -> varint 2 bytes: 0xCB 0x01
	assert.Equal(t, byte(0x30), got[0])
	assert.Equal(t, []byte{0xCB, 0x01}, got[1:3])
}

// TestBuildSubscribe checks scenario S7's SUBSCRIBE frame.
func TestBuildSubscribe(t *testing.T) {
	got := wire.BuildSubscribe("a", 1)
	want := hexBytes(0x82, 0x06, 0x00, 0x01, 0x00, 0x01, 0x61, 0x00)
	assert.Equal(t, want, got)
}

func TestBuildPubRel(t *testing.T) {
	got := wire.BuildPubRel(7)
	assert.Equal(t, []byte{0x62, 0x02, 0x00, 0x07}, got)
}

func TestNakedPackets(t *testing.T) {
	assert.Equal(t, []byte{0xC0, 0x00}, wire.PingReq)
	assert.Equal(t, []byte{0xE0, 0x00}, wire.Disconnect)
}

// TestFrameLengthCorrectness checks Property P3 across a sample of built
// frames: remaining_length equals len(frame) - 1 - varint_bytes.
func TestFrameLengthCorrectness(t *testing.T) {
	frames := [][]byte{
		wire.BuildConnect(wire.ConnectOptions{ClientID: "x", KeepAlive: 60}),
		wire.BuildPublish("topic", 5, 1, true, []byte("payload")),
		wire.BuildSubscribe("a/b/c", 99),
	}
	for _, f := range frames {
		remaining, varintLen := decodeRemainingLength(t, f[1:])
		assert.Equal(t, len(f)-1-varintLen, int(remaining))
	}
}

func decodeRemainingLength(t *testing.T, b []byte) (uint32, int) {
	t.Helper()
	var value uint32
	var multiplier uint32 = 1
	for i, by := range b {
		value += uint32(by&0x7F) * multiplier
		if by&0x80 == 0 {
			return value, i + 1
		}
		multiplier *= 128
	}
	t.Fatal("varint did not terminate")
	return 0, 0
}
