package wire

import (
	"io"

	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
)

// MaxRemainingLength is the largest value the 4-byte varint can carry
// (spec §3: remaining_length u32, ≤ 2^28-1).
const MaxRemainingLength = 268_435_455

// EncodeVarInt encodes n (0 <= n <= MaxRemainingLength) as MQTT's
// remaining-length varint: repeatedly take n mod 128, set the continuation
// bit if more bytes follow, append, divide n by 128 (spec §4.1).
func EncodeVarInt(n uint32) []byte {
	if n > MaxRemainingLength {
		n = MaxRemainingLength
	}
	var out []byte
	for {
		b := byte(n % 128)
		n /= 128
		if n > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

// DecodeVarInt reads a remaining-length varint one byte at a time from r.
// A transport failure mid-varint (timeout, close) is classified the same
// way ReadFrame classifies one on the fixed header or payload (spec §4.3);
// KindMalformedVarInt is reserved for the genuine protocol defect of a
// continuation bit stream that runs past 4 bytes (spec §4.1).
func DecodeVarInt(r io.Reader) (uint32, error) {
	var value uint32
	var multiplier uint32 = 1
	buf := make([]byte, 1)
	for i := 0; i < 4; i++ {
		n, err := io.ReadFull(r, buf)
		if n == 0 || err != nil {
			return 0, classifyReadError(err, "wire.DecodeVarInt")
		}
		b := buf[0]
		value += uint32(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return value, nil
		}
		multiplier *= 128
	}
	return 0, mqtterr.New(mqtterr.KindMalformedVarInt, "wire.DecodeVarInt")
}
