// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

/*
chunkHeader represents an SCTP Chunk header (RFC 4960 section 3.2).

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|   Chunk Type  |  Chunk Flags  |        Chunk Length           |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                          Chunk Value                          |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

Chunk Length covers the header and value, excluding trailing padding.
The sender pads the chunk to a 4-byte boundary with zero bytes.
*/
type chunkHeader struct {
	typ   chunkType
	flags byte
	raw   []byte
}

const (
	chunkHeaderSize = 4
)

// SCTP chunk header errors.
var (
	ErrChunkHeaderTooSmall       = errors.New("raw is too small for a SCTP chunk")
	ErrChunkHeaderNotEnoughSpace = errors.New("not enough data left in SCTP packet to satisfy requested length")
	ErrChunkHeaderInvalidLength  = errors.New("chunk length field smaller than header length")
	ErrChunkHeaderPaddingNonZero = errors.New("chunk padding is non-zero at offset")
)

func (c *chunkHeader) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: raw only %d bytes, %d is the minimum length",
			ErrChunkHeaderTooSmall, len(raw), chunkHeaderSize)
	}

	c.typ = chunkType(raw[0])
	c.flags = raw[1]
	length := binary.BigEndian.Uint16(raw[2:])

	if length < chunkHeaderSize {
		return fmt.Errorf("%w: length=%d", ErrChunkHeaderInvalidLength, length)
	}

	valueLength := int(length) - chunkHeaderSize
	lengthAfterValue := len(raw) - int(length)

	if lengthAfterValue < 0 {
		return fmt.Errorf("%w: remain %d req %d", ErrChunkHeaderNotEnoughSpace, len(raw)-chunkHeaderSize, valueLength)
	} else if lengthAfterValue < 4 {
		// The Chunk Length field does not count any chunk padding. Whatever
		// trails the value inside this chunk's slice must be zero pad bytes.
		for i, b := range raw[length:] {
			if b != 0 {
				return fmt.Errorf("%w: %d", ErrChunkHeaderPaddingNonZero, int(length)+i)
			}
		}
	}

	c.raw = raw[chunkHeaderSize:length]

	return nil
}

func (c *chunkHeader) marshal() ([]byte, error) {
	raw := make([]byte, chunkHeaderSize+len(c.raw))

	raw[0] = uint8(c.typ)
	raw[1] = c.flags
	binary.BigEndian.PutUint16(raw[2:], uint16(chunkHeaderSize+len(c.raw))) //nolint:gosec // G115
	copy(raw[chunkHeaderSize:], c.raw)

	return raw, nil
}

func (c *chunkHeader) valueLength() int {
	return len(c.raw)
}

// String makes chunkHeader printable.
func (c chunkHeader) String() string {
	return c.typ.String()
}
