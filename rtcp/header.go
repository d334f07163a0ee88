// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package rtcp implements encoding and decoding of RTCP packets
package rtcp

import (
	"encoding/binary"
	"fmt"
)

// PacketType specifies the type of an RTCP packet.
type PacketType uint8

// RTCP packet types registered with IANA, RFC 3550 and RFC 4585.
const (
	TypeSenderReport              PacketType = 200
	TypeReceiverReport            PacketType = 201
	TypeTransportSpecificFeedback PacketType = 205
)

// Transport-layer feedback message formats, RFC 4585 §6.2.
const (
	FormatTLN uint8 = 1
	FormatTCC uint8 = 15
)

func (p PacketType) String() string {
	switch p {
	case TypeSenderReport:
		return "SR"
	case TypeReceiverReport:
		return "RR"
	case TypeTransportSpecificFeedback:
		return "TSFB"
	default:
		return fmt.Sprintf("unknown packet type (%d)", int(p))
	}
}

const (
	headerLength = 4
	versionShift = 6
	versionMask  = 0x3
	paddingShift = 5
	paddingMask  = 0x1
	countShift   = 0
	countMask    = 0x1f
	countMax     = (1 << 5) - 1
	ssrcLength   = 4
	rtpVersion   = 2
	lengthOffset = 2
)

/*
Header represents the common RTCP packet header.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|V=2|P|    RC   |   PT=SR=200   |             length            |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type Header struct {
	// If the padding bit is set, this individual RTCP packet contains
	// some additional padding octets at the end which are not part of
	// the control information but are included in the length field.
	Padding bool
	// The number of reception reports, sources contained or FMT in this packet (depending on the Type)
	Count uint8
	// The RTCP packet type for this packet
	Type PacketType
	// The length of this RTCP packet in 32-bit words minus one,
	// including the header and any padding.
	Length uint16
}

// Marshal encodes the Header in binary.
func (h Header) Marshal() ([]byte, error) {
	rawPacket := make([]byte, headerLength)

	if h.Count > countMax {
		return nil, errInvalidHeader
	}

	rawPacket[0] |= rtpVersion << versionShift
	if h.Padding {
		rawPacket[0] |= 1 << paddingShift
	}
	rawPacket[0] |= h.Count << countShift
	rawPacket[1] = uint8(h.Type)

	binary.BigEndian.PutUint16(rawPacket[lengthOffset:], h.Length)

	return rawPacket, nil
}

// Unmarshal decodes the Header from binary.
func (h *Header) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < headerLength {
		return errPacketTooShort
	}

	version := rawPacket[0] >> versionShift & versionMask
	if version != rtpVersion {
		return errBadVersion
	}

	h.Padding = (rawPacket[0] >> paddingShift & paddingMask) > 0
	h.Count = rawPacket[0] >> countShift & countMask
	h.Type = PacketType(rawPacket[1])
	h.Length = binary.BigEndian.Uint16(rawPacket[lengthOffset:])

	return nil
}

// MarshalSize returns the size of the header once marshaled.
func (h *Header) MarshalSize() int {
	return headerLength
}
