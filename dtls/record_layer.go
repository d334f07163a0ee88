// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"encoding/binary"
	"fmt"
)

// protocolVersion enums.
type protocolVersion struct {
	major, minor uint8
}

var (
	protocolVersion1_0 = protocolVersion{0xfe, 0xff} //nolint:gochecknoglobals
	protocolVersion1_2 = protocolVersion{0xfe, 0xfd} //nolint:gochecknoglobals
)

type contentType uint8

const (
	contentTypeChangeCipherSpec contentType = 20
	contentTypeAlert            contentType = 21
	contentTypeHandshake        contentType = 22
	contentTypeApplicationData  contentType = 23
)

// Record layer content. Alerts, ChangeCipherSpec, handshake fragments and
// application data all flow through the same framing.
type content interface {
	contentType() contentType
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

const (
	recordLayerHeaderSize = 13
	maxSequenceNumber     = 0x0000FFFFFFFFFFFF
)

/*
recordLayerHeader is the fixed DTLS framing prepended to every record

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|  Content Type |     Version (major, minor)    |     Epoch     |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|     Epoch     |               Sequence Number                 |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|     Sequence Number           |            Length             |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type recordLayerHeader struct {
	contentType     contentType
	contentLen      uint16
	protocolVersion protocolVersion
	epoch           uint16
	sequenceNumber  uint64 // uint48 on the wire
}

func (h *recordLayerHeader) Marshal() ([]byte, error) {
	if h.sequenceNumber > maxSequenceNumber {
		return nil, ErrSequenceNumberOverflow
	}

	out := make([]byte, recordLayerHeaderSize)
	out[0] = byte(h.contentType)
	out[1] = h.protocolVersion.major
	out[2] = h.protocolVersion.minor
	binary.BigEndian.PutUint16(out[3:], h.epoch)
	putBigEndianUint48(out[5:], h.sequenceNumber)
	binary.BigEndian.PutUint16(out[recordLayerHeaderSize-2:], h.contentLen)

	return out, nil
}

func (h *recordLayerHeader) Unmarshal(data []byte) error {
	if len(data) < recordLayerHeaderSize {
		return ErrBufferTooSmall
	}

	h.contentType = contentType(data[0])
	h.protocolVersion.major = data[1]
	h.protocolVersion.minor = data[2]
	h.epoch = binary.BigEndian.Uint16(data[3:])
	h.sequenceNumber = bigEndianUint48(data[5:])
	h.contentLen = binary.BigEndian.Uint16(data[recordLayerHeaderSize-2:])

	if h.protocolVersion != protocolVersion1_0 && h.protocolVersion != protocolVersion1_2 {
		return fmt.Errorf("%w: %d.%d", ErrUnsupportedProtocolVersion, h.protocolVersion.major, h.protocolVersion.minor)
	}

	return nil
}

// recordLayer pairs a header with its parsed content.
type recordLayer struct {
	recordLayerHeader recordLayerHeader
	content           content
}

func (r *recordLayer) Marshal() ([]byte, error) {
	contentRaw, err := r.content.Marshal()
	if err != nil {
		return nil, err
	}

	r.recordLayerHeader.contentLen = uint16(len(contentRaw)) //nolint:gosec // G115
	r.recordLayerHeader.contentType = r.content.contentType()

	headerRaw, err := r.recordLayerHeader.Marshal()
	if err != nil {
		return nil, err
	}

	return append(headerRaw, contentRaw...), nil
}

func (r *recordLayer) Unmarshal(data []byte) error {
	if err := r.recordLayerHeader.Unmarshal(data); err != nil {
		return err
	}
	if len(data) < recordLayerHeaderSize+int(r.recordLayerHeader.contentLen) {
		return ErrBufferTooSmall
	}

	switch r.recordLayerHeader.contentType {
	case contentTypeChangeCipherSpec:
		r.content = &changeCipherSpec{}
	case contentTypeAlert:
		r.content = &alert{}
	case contentTypeHandshake:
		r.content = &handshake{}
	case contentTypeApplicationData:
		r.content = &applicationData{}
	default:
		return ErrInvalidContentType
	}

	return r.content.Unmarshal(data[recordLayerHeaderSize : recordLayerHeaderSize+int(r.recordLayerHeader.contentLen)])
}

// unpackDatagram extracts all records from a single datagram. Records are
// returned unparsed so the caller can decrypt before interpreting content.
func unpackDatagram(buf []byte) ([][]byte, error) {
	out := [][]byte{}

	for offset := 0; len(buf) != offset; {
		if len(buf)-offset <= recordLayerHeaderSize {
			return nil, ErrInvalidPacketLength
		}

		pktLen := recordLayerHeaderSize + int(binary.BigEndian.Uint16(buf[offset+recordLayerHeaderSize-2:]))
		if offset+pktLen > len(buf) {
			return nil, ErrInvalidPacketLength
		}

		out = append(out, buf[offset:offset+pktLen])
		offset += pktLen
	}

	return out, nil
}
