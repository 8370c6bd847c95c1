package wire

import (
	"encoding/binary"
)

// appendString appends a 2-byte big-endian length prefix followed by the
// UTF-8 bytes of s (spec §4.2: "Length-prefixed strings").
func appendString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)>>8), byte(len(s)))
	return append(buf, s...)
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

// frame prepends the fixed header (type/flags byte + varint remaining
// length) to body, which already holds the variable header and payload.
func frame(firstByte byte, body []byte) []byte {
	out := make([]byte, 0, 1+4+len(body))
	out = append(out, firstByte)
	out = append(out, EncodeVarInt(uint32(len(body)))...)
	out = append(out, body...)
	return out
}

// ConnectWill carries the optional will topic/payload/qos/retain (spec §3).
type ConnectWill struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// ConnectOptions is the input to BuildConnect.
type ConnectOptions struct {
	ClientID      string
	CleanSession  bool
	KeepAlive     uint16
	Will          *ConnectWill
	Username      string
	Password      string
	HasUsername   bool
	HasPassword   bool
}

// BuildConnect assembles a CONNECT packet (spec §4.2). Fixed byte 0x10.
func BuildConnect(opt ConnectOptions) []byte {
	var flags byte
	if opt.HasUsername {
		flags |= ConnectFlagUsername
	}
	if opt.HasPassword {
		flags |= ConnectFlagPassword
	}
	if opt.Will != nil {
		flags |= ConnectFlagWill
		flags |= opt.Will.QoS << ConnectFlagWillQoSShift
		if opt.Will.Retain {
			flags |= ConnectFlagWillRetain
		}
	}
	if opt.CleanSession {
		flags |= ConnectFlagCleanSession
	}

	body := make([]byte, 0, 64)
	body = appendString(body, ProtocolName)
	body = append(body, ProtocolLevel)
	body = append(body, flags)
	body = appendUint16(body, opt.KeepAlive)

	body = appendString(body, opt.ClientID)
	if opt.Will != nil {
		body = appendString(body, opt.Will.Topic)
		body = appendString(body, string(opt.Will.Payload))
	}
	if opt.HasUsername {
		body = appendString(body, opt.Username)
	}
	if opt.HasPassword {
		body = appendString(body, opt.Password)
	}

	return frame(0x10, body)
}

// BuildPublish assembles a PUBLISH packet (spec §4.2). First byte
// 0x30 | (qos<<1) | retain. DUP is never set (spec §4.2, §9).
func BuildPublish(topic string, packetID uint16, qos byte, retain bool, payload []byte) []byte {
	first := byte(0x30) | (qos << 1)
	if retain {
		first |= 0x01
	}
	body := make([]byte, 0, 4+len(topic)+2+len(payload))
	body = appendString(body, topic)
	if qos >= 1 {
		body = appendUint16(body, packetID)
	}
	body = append(body, payload...)
	return frame(first, body)
}

// BuildSubscribe assembles a SUBSCRIBE packet (spec §4.2). First byte 0x82.
// The requested QoS is always 0 (spec §3 "Subscription request" -
// "the source client always requests QoS 0").
func BuildSubscribe(topic string, packetID uint16) []byte {
	body := make([]byte, 0, 2+2+len(topic)+1)
	body = appendUint16(body, packetID)
	body = appendString(body, topic)
	body = append(body, 0x00)
	return frame(0x82, body)
}

// BuildPubRel assembles the QoS2 PUBREL packet: 0x62 0x02 <id-hi> <id-lo>.
func BuildPubRel(packetID uint16) []byte {
	return []byte{0x62, 0x02, byte(packetID >> 8), byte(packetID)}
}

// PingReq is the literal PINGREQ packet.
var PingReq = []byte{0xC0, 0x00}

// PingResp is the literal PINGRESP packet, as sent by a broker.
var PingResp = []byte{0xD0, 0x00}

// Disconnect is the literal DISCONNECT packet.
var Disconnect = []byte{0xE0, 0x00}

// PacketIDFromAck extracts the 2-byte big-endian packet id from a 4-byte
// ack frame body (PUBACK/PUBREC/PUBCOMP/SUBACK's first two payload bytes).
func PacketIDFromAck(body []byte) uint16 {
	if len(body) < 2 {
		return 0
	}
	return binary.BigEndian.Uint16(body)
}
