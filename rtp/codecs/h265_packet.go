// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codecs

import (
	"encoding/binary"
	"fmt"
)

/*
RFC 7798 payloads. The two byte H265 NAL unit header is carried through
every payload structure:

	+---------------+---------------+
	|0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|F|   Type    |  LayerID  | TID |
	+-------------+-----------------+
*/
const (
	h265NaluHeaderSize = 2

	h265NaluAggregationType   = 48
	h265NaluFragmentationType = 49
	h265NaluPACIType          = 50

	h265NaluVPSType = 32
	h265NaluSPSType = 33
	h265NaluPPSType = 34
	h265NaluAUDType = 35

	h265FuStartBitmask = 0x80
	h265FuEndBitmask   = 0x40
	h265FuTypeBitmask  = 0x3F
)

func h265NaluType(header byte) byte {
	return (header >> 1) & 0x3F
}

// H265Payloader payloads H265 packets. DONL fields are emitted when the
// stream signalled sprop-max-don-diff > 0.
type H265Payloader struct {
	AddDONL         bool
	SkipAggregation bool

	vpsNalu, spsNalu, ppsNalu []byte
	donl                      uint16
}

// Payload fragments a H265 packet across one or more byte arrays.
func (p *H265Payloader) Payload(mtu uint16, payload []byte) [][]byte { //nolint:cyclop,gocognit
	var payloads [][]byte
	if len(payload) == 0 || mtu == 0 {
		return payloads
	}

	bufferedNALUs := func() [][]byte {
		out := [][]byte{}
		if p.vpsNalu != nil {
			out = append(out, p.vpsNalu)
		}
		if p.spsNalu != nil {
			out = append(out, p.spsNalu)
		}
		if p.ppsNalu != nil {
			out = append(out, p.ppsNalu)
		}

		return out
	}

	flushParameterSets := func() {
		nalus := bufferedNALUs()
		p.vpsNalu, p.spsNalu, p.ppsNalu = nil, nil, nil
		if len(nalus) == 0 {
			return
		}
		if len(nalus) == 1 || p.SkipAggregation {
			for _, nalu := range nalus {
				payloads = append(payloads, p.singleOrFragment(mtu, nalu)...)
			}

			return
		}

		aggregated := p.aggregate(nalus)
		if len(aggregated) <= int(mtu) {
			payloads = append(payloads, aggregated)

			return
		}
		for _, nalu := range nalus {
			payloads = append(payloads, p.singleOrFragment(mtu, nalu)...)
		}
	}

	emitNalus(payload, func(nalu []byte) {
		if len(nalu) < h265NaluHeaderSize {
			return
		}

		switch h265NaluType(nalu[0]) {
		case h265NaluAUDType:
			return
		case h265NaluVPSType:
			p.vpsNalu = nalu

			return
		case h265NaluSPSType:
			p.spsNalu = nalu

			return
		case h265NaluPPSType:
			p.ppsNalu = nalu

			return
		}

		flushParameterSets()
		payloads = append(payloads, p.singleOrFragment(mtu, nalu)...)
	})
	flushParameterSets()

	return payloads
}

// aggregate packs parameter sets into one Aggregation Packet. The first
// aggregate carries a DONL when enabled, the rest a 1 byte DOND.
func (p *H265Payloader) aggregate(nalus [][]byte) []byte {
	out := []byte{h265NaluAggregationType << 1, 0x01}

	for i, nalu := range nalus {
		if p.AddDONL {
			if i == 0 {
				donl := make([]byte, 2)
				binary.BigEndian.PutUint16(donl, p.donl)
				p.donl++
				out = append(out, donl...)
			} else {
				out = append(out, 0x00)
			}
		}

		length := make([]byte, 2)
		binary.BigEndian.PutUint16(length, uint16(len(nalu))) //nolint:gosec // G115
		out = append(out, length...)
		out = append(out, nalu...)
	}

	return out
}

func (p *H265Payloader) singleOrFragment(mtu uint16, nalu []byte) [][]byte { //nolint:cyclop
	donlSize := 0
	if p.AddDONL {
		donlSize = 2
	}

	if len(nalu)+donlSize <= int(mtu) {
		out := make([]byte, 0, len(nalu)+donlSize)
		out = append(out, nalu[:h265NaluHeaderSize]...)
		if p.AddDONL {
			donl := make([]byte, 2)
			binary.BigEndian.PutUint16(donl, p.donl)
			p.donl++
			out = append(out, donl...)
		}
		out = append(out, nalu[h265NaluHeaderSize:]...)

		return [][]byte{out}
	}

	// Fragmentation Units carry the original type in the FU header, the
	// payload NAL header is dropped.
	fuHeaderSize := h265NaluHeaderSize + 1
	naluType := h265NaluType(nalu[0])
	data := nalu[h265NaluHeaderSize:]

	var payloads [][]byte
	first := true
	for len(data) > 0 {
		overhead := fuHeaderSize
		if first && p.AddDONL {
			overhead += 2
		}
		maxFragment := int(mtu) - overhead
		if maxFragment <= 0 {
			return nil
		}
		fragment := data
		if len(fragment) > maxFragment {
			fragment = fragment[:maxFragment]
		}
		data = data[len(fragment):]

		out := make([]byte, 0, overhead+len(fragment))
		out = append(out, (nalu[0]&0x81)|(h265NaluFragmentationType<<1), nalu[1])

		fuHeader := naluType
		if first {
			fuHeader |= h265FuStartBitmask
		}
		if len(data) == 0 {
			fuHeader |= h265FuEndBitmask
		}
		out = append(out, fuHeader)

		if first && p.AddDONL {
			donl := make([]byte, 2)
			binary.BigEndian.PutUint16(donl, p.donl)
			p.donl++
			out = append(out, donl...)
		}

		out = append(out, fragment...)
		payloads = append(payloads, out)
		first = false
	}

	return payloads
}

// H265Packet represents a depacketizer for H265 payloads, reassembling
// Annex-B NAL units.
type H265Packet struct {
	WithDONL bool

	fuBuffer []byte
}

// Unmarshal parses the passed byte slice and returns Annex-B framed NAL
// units. Fragmentation units return an empty slice until the final
// fragment arrives.
func (p *H265Packet) Unmarshal(payload []byte) ([]byte, error) { //nolint:cyclop
	if payload == nil {
		return nil, errNilPacket
	}
	if len(payload) <= h265NaluHeaderSize {
		return nil, fmt.Errorf("%w: %d <= %d", errShortPacket, len(payload), h265NaluHeaderSize)
	}

	switch naluType := h265NaluType(payload[0]); naluType {
	case h265NaluAggregationType:
		return p.unmarshalAggregation(payload)
	case h265NaluFragmentationType:
		return p.unmarshalFragmentation(payload)
	case h265NaluPACIType:
		return p.unmarshalPACI(payload)
	default:
		out := payload
		if p.WithDONL {
			if len(payload) < h265NaluHeaderSize+2 {
				return nil, errShortPacket
			}
			out = append([]byte{}, payload[:h265NaluHeaderSize]...)
			out = append(out, payload[h265NaluHeaderSize+2:]...)
		}

		return append(annexbNALUStartCode(), out...), nil
	}
}

func (p *H265Packet) unmarshalAggregation(payload []byte) ([]byte, error) {
	offset := h265NaluHeaderSize
	result := []byte{}

	first := true
	for offset < len(payload) {
		if p.WithDONL {
			if first {
				offset += 2
			} else {
				offset++
			}
		}
		first = false

		if offset+2 > len(payload) {
			return nil, errH265CorruptedPacket
		}
		naluSize := int(binary.BigEndian.Uint16(payload[offset:]))
		offset += 2

		if offset+naluSize > len(payload) {
			return nil, errH265CorruptedPacket
		}
		result = append(result, annexbNALUStartCode()...)
		result = append(result, payload[offset:offset+naluSize]...)
		offset += naluSize
	}
	if len(result) == 0 {
		return nil, errH265CorruptedPacket
	}

	return result, nil
}

func (p *H265Packet) unmarshalFragmentation(payload []byte) ([]byte, error) {
	if len(payload) <= h265NaluHeaderSize+1 {
		return nil, errShortPacket
	}

	fuHeader := payload[h265NaluHeaderSize]
	body := payload[h265NaluHeaderSize+1:]

	if fuHeader&h265FuStartBitmask != 0 {
		if p.WithDONL {
			if len(body) < 2 {
				return nil, errShortPacket
			}
			body = body[2:]
		}

		naluType := fuHeader & h265FuTypeBitmask
		p.fuBuffer = []byte{(payload[0] & 0x81) | (naluType << 1), payload[1]}
	}
	if p.fuBuffer == nil {
		// fragment without a preceding start fragment
		return nil, errH265CorruptedPacket
	}

	p.fuBuffer = append(p.fuBuffer, body...)

	if fuHeader&h265FuEndBitmask != 0 {
		nalu := p.fuBuffer
		p.fuBuffer = nil

		return append(annexbNALUStartCode(), nalu...), nil
	}

	return []byte{}, nil
}

// unmarshalPACI unwraps a PACI carried NAL unit, RFC 7798 §4.4.4.
func (p *H265Packet) unmarshalPACI(payload []byte) ([]byte, error) {
	if len(payload) < h265NaluHeaderSize+2 {
		return nil, errShortPacket
	}

	cType := (payload[2] >> 1) & 0x3F
	phsSize := int((payload[2]&0x01)<<4 | payload[3]>>4)

	offset := 4 + phsSize
	if len(payload) <= offset {
		return nil, errH265CorruptedPacket
	}

	nalu := []byte{(payload[0] & 0x81) | (cType << 1), payload[1]}
	nalu = append(nalu, payload[offset:]...)

	return append(annexbNALUStartCode(), nalu...), nil
}

// IsPartitionHead checks if this is the head of a packetized nalu stream.
func (*H265Packet) IsPartitionHead(payload []byte) bool {
	if len(payload) < h265NaluHeaderSize+1 {
		return false
	}

	if h265NaluType(payload[0]) == h265NaluFragmentationType {
		return payload[h265NaluHeaderSize]&h265FuStartBitmask != 0
	}

	return true
}

// IsPartitionTail checks if this is the tail of a packetized nalu stream.
func (*H265Packet) IsPartitionTail(marker bool, _ []byte) bool {
	return marker
}
