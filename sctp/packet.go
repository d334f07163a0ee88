// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// CRC32c table (polynomial 0x1EDC6F41, reflected) used for the packet checksum.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli) // nolint:gochecknoglobals

// Zeroed once; substituted for the checksum field while summing.
var fourZeroes [4]byte // nolint:gochecknoglobals

/*
packet represents an SCTP packet (RFC 4960 section 3): a common header
followed by one or more chunks.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|     Source Port Number        |     Destination Port Number   |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                      Verification Tag                         |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                           Checksum                            |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                          Chunks 1..n                          |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type packet struct {
	sourcePort      uint16
	destinationPort uint16
	verificationTag uint32
	chunks          []chunk
}

const (
	packetHeaderSize = 12
)

// SCTP packet errors.
var (
	ErrPacketRawTooSmall           = errors.New("raw is smaller than the minimum length for a SCTP packet")
	ErrParseSCTPChunkNotEnoughData = errors.New("unable to parse SCTP chunk, not enough data for complete header")
	ErrUnmarshalUnknownChunkType   = errors.New("failed to unmarshal, contains unknown chunk type")
	ErrChecksumMismatch            = errors.New("checksum mismatch theirs")
)

func (p *packet) unmarshal(raw []byte) error { //nolint:cyclop
	if len(raw) < packetHeaderSize {
		return fmt.Errorf("%w: raw only %d bytes, %d is the minimum length",
			ErrPacketRawTooSmall, len(raw), packetHeaderSize)
	}

	theirChecksum := binary.LittleEndian.Uint32(raw[8:])
	ourChecksum := generatePacketChecksum(raw)
	if theirChecksum != ourChecksum {
		return fmt.Errorf("%w: %d ours: %d", ErrChecksumMismatch, theirChecksum, ourChecksum)
	}

	p.sourcePort = binary.BigEndian.Uint16(raw[0:])
	p.destinationPort = binary.BigEndian.Uint16(raw[2:])
	p.verificationTag = binary.BigEndian.Uint32(raw[4:])

	offset := packetHeaderSize
	for {
		// Exact match, no more chunks
		if offset == len(raw) {
			break
		} else if offset+chunkHeaderSize > len(raw) {
			return fmt.Errorf("%w: offset %d remaining %d", ErrParseSCTPChunkNotEnoughData, offset, len(raw))
		}

		var parsed chunk
		switch ct := chunkType(raw[offset]); ct {
		case ctInit:
			parsed = &chunkInit{}
		case ctInitAck:
			parsed = &chunkInitAck{}
		case ctAbort:
			parsed = &chunkAbort{}
		case ctCookieEcho:
			parsed = &chunkCookieEcho{}
		case ctCookieAck:
			parsed = &chunkCookieAck{}
		case ctHeartbeat:
			parsed = &chunkHeartbeat{}
		case ctHeartbeatAck:
			parsed = &chunkHeartbeatAck{}
		case ctPayloadData:
			parsed = &chunkPayloadData{}
		case ctSack:
			parsed = &chunkSelectiveAck{}
		case ctReconfig:
			parsed = &chunkReconfig{}
		case ctForwardTSN:
			parsed = &chunkForwardTSN{}
		case ctError:
			parsed = &chunkError{}
		case ctShutdown:
			parsed = &chunkShutdown{}
		case ctShutdownAck:
			parsed = &chunkShutdownAck{}
		case ctShutdownComplete:
			parsed = &chunkShutdownComplete{}
		default:
			// RFC 4960 section 3.2: the top two bits of an unknown chunk
			// type select the action. Skip variants continue parsing at
			// the next chunk; stop variants abort processing the packet.
			switch ct.unrecognizedAction() {
			case unrecognizedActionSkip, unrecognizedActionSkipAndReport:
				var hdr chunkHeader
				if err := hdr.unmarshal(raw[offset:]); err != nil {
					return err
				}
				offset += chunkHeaderSize + hdr.valueLength() + getPadding(hdr.valueLength())

				continue
			default:
				return fmt.Errorf("%w: %s", ErrUnmarshalUnknownChunkType, ct.String())
			}
		}

		if err := parsed.unmarshal(raw[offset:]); err != nil {
			return err
		}

		p.chunks = append(p.chunks, parsed)
		offset += chunkHeaderSize + parsed.valueLength() + getPadding(parsed.valueLength())
	}

	return nil
}

func (p *packet) marshal() ([]byte, error) {
	raw := make([]byte, packetHeaderSize)

	binary.BigEndian.PutUint16(raw[0:], p.sourcePort)
	binary.BigEndian.PutUint16(raw[2:], p.destinationPort)
	binary.BigEndian.PutUint32(raw[4:], p.verificationTag)

	for _, c := range p.chunks {
		chunkRaw, err := c.marshal()
		if err != nil {
			return nil, err
		}
		raw = append(raw, chunkRaw...) //nolint:makezero

		if padding := getPadding(len(raw)); padding != 0 {
			raw = append(raw, make([]byte, padding)...) //nolint:makezero
		}
	}

	// Checksum is computed over the whole packet with the checksum
	// field set to zero, then stored little-endian (RFC 4960 appendix B).
	binary.LittleEndian.PutUint32(raw[8:], generatePacketChecksum(raw))

	return raw, nil
}

func generatePacketChecksum(raw []byte) (sum uint32) {
	sum = crc32.Update(sum, castagnoliTable, raw[0:8])
	sum = crc32.Update(sum, castagnoliTable, fourZeroes[:])
	sum = crc32.Update(sum, castagnoliTable, raw[12:])

	return sum
}

// String makes packet printable.
func (p *packet) String() string {
	format := `Packet:
	sourcePort: %d
	destinationPort: %d
	verificationTag: %d
	`
	res := fmt.Sprintf(format,
		p.sourcePort,
		p.destinationPort,
		p.verificationTag,
	)
	for i, chunk := range p.chunks {
		res += fmt.Sprintf("Chunk %d:\n %s", i, chunk)
	}

	return res
}
