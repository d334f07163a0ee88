// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtcp

import (
	"encoding/binary"
	"fmt"
)

// Chunk types in a transport-wide congestion control feedback message,
// draft-holmer-rmcat-transport-wide-cc-extensions-01.
const (
	TypeTCCRunLengthChunk    = 0
	TypeTCCStatusVectorChunk = 1
)

// Packet status symbols.
const (
	TypeTCCPacketNotReceived uint16 = iota
	TypeTCCPacketReceivedSmallDelta
	TypeTCCPacketReceivedLargeDelta
	TypeTCCPacketReceivedWithoutDelta
)

// Symbol sizes inside a status vector chunk.
const (
	TypeTCCSymbolSizeOneBit = 0
	TypeTCCSymbolSizeTwoBit = 1
)

const (
	// TypeTCCDeltaScaleFactor is the receive delta resolution in microseconds.
	TypeTCCDeltaScaleFactor = 250

	packetStatusChunkLength = 2

	maxRunLengthCap          = 0x1FFF
	maxOneBitCap             = 14
	maxTwoBitCap             = 7
	baseSequenceNumberOffset = 8
	packetStatusCountOffset  = 10
	referenceTimeOffset      = 12
	fbPktCountOffset         = 15
	packetChunkStartOffset   = 16
)

// PacketStatusChunk has two kinds, RunLengthChunk and StatusVectorChunk.
type PacketStatusChunk interface {
	Marshal() ([]byte, error)
	Unmarshal(rawPacket []byte) error
}

/*
RunLengthChunk codes a run of identical packet status symbols.

	0                   1
	0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|T| S |       Run Length        |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type RunLengthChunk struct {
	// T = TypeTCCRunLengthChunk
	Type uint16

	// S: type of packet status chunk
	PacketStatusSymbol uint16

	// RunLength: count of S, 13 bits
	RunLength uint16
}

// Marshal encodes the RunLengthChunk in binary.
func (r RunLengthChunk) Marshal() ([]byte, error) {
	if r.RunLength > maxRunLengthCap {
		return nil, errPacketStatusChunk
	}

	chunk := make([]byte, packetStatusChunkLength)
	// T bit is zero, S is the top of the run length word
	dst := r.PacketStatusSymbol<<13 | r.RunLength
	binary.BigEndian.PutUint16(chunk, dst)

	return chunk, nil
}

// Unmarshal decodes the RunLengthChunk from binary.
func (r *RunLengthChunk) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) != packetStatusChunkLength {
		return errPacketStatusChunk
	}

	raw := binary.BigEndian.Uint16(rawPacket)
	if raw>>15 != TypeTCCRunLengthChunk {
		return errPacketStatusChunk
	}

	r.Type = TypeTCCRunLengthChunk
	r.PacketStatusSymbol = raw >> 13 & 0x3
	r.RunLength = raw & maxRunLengthCap

	return nil
}

/*
StatusVectorChunk codes mixed packet status symbols.

	0                   1
	0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|T|S|       symbol list         |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type StatusVectorChunk struct {
	// T = TypeTCCStatusVectorChunk
	Type uint16

	// SymbolSize: TypeTCCSymbolSizeOneBit or TypeTCCSymbolSizeTwoBit
	SymbolSize uint16

	// SymbolList: 14 one bit symbols or 7 two bit symbols
	SymbolList []uint16
}

// Marshal encodes the StatusVectorChunk in binary.
func (r StatusVectorChunk) Marshal() ([]byte, error) {
	if r.SymbolSize == TypeTCCSymbolSizeOneBit && len(r.SymbolList) > maxOneBitCap {
		return nil, errPacketStatusChunk
	}
	if r.SymbolSize == TypeTCCSymbolSizeTwoBit && len(r.SymbolList) > maxTwoBitCap {
		return nil, errPacketStatusChunk
	}

	dst := uint16(1 << 15)
	dst |= r.SymbolSize << 14

	if r.SymbolSize == TypeTCCSymbolSizeOneBit {
		for i, symbol := range r.SymbolList {
			dst |= symbol << (13 - i) //nolint:gosec // G115
		}
	} else {
		for i, symbol := range r.SymbolList {
			dst |= symbol << (12 - 2*i) //nolint:gosec // G115
		}
	}

	chunk := make([]byte, packetStatusChunkLength)
	binary.BigEndian.PutUint16(chunk, dst)

	return chunk, nil
}

// Unmarshal decodes the StatusVectorChunk from binary.
func (r *StatusVectorChunk) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) != packetStatusChunkLength {
		return errPacketStatusChunk
	}

	raw := binary.BigEndian.Uint16(rawPacket)
	if raw>>15 != TypeTCCStatusVectorChunk {
		return errPacketStatusChunk
	}

	r.Type = TypeTCCStatusVectorChunk
	r.SymbolSize = raw >> 14 & 0x1

	r.SymbolList = r.SymbolList[:0]
	if r.SymbolSize == TypeTCCSymbolSizeOneBit {
		for i := 0; i < maxOneBitCap; i++ {
			r.SymbolList = append(r.SymbolList, raw>>(13-i)&0x1) //nolint:gosec // G115
		}

		return nil
	}

	for i := 0; i < maxTwoBitCap; i++ {
		r.SymbolList = append(r.SymbolList, raw>>(12-2*i)&0x3) //nolint:gosec // G115
	}

	return nil
}

/*
RecvDelta is the receive time delta of one received packet,
in multiples of 250us.
*/
type RecvDelta struct {
	Type uint16
	// Delta is the delta in microseconds
	Delta int64
}

// Marshal encodes the RecvDelta in binary.
func (r RecvDelta) Marshal() ([]byte, error) {
	delta := r.Delta / TypeTCCDeltaScaleFactor

	if r.Type == TypeTCCPacketReceivedSmallDelta && delta >= 0 && delta <= 255 {
		return []byte{byte(delta)}, nil
	}

	if r.Type == TypeTCCPacketReceivedLargeDelta && delta >= -32768 && delta <= 32767 {
		deltaChunk := make([]byte, 2)
		binary.BigEndian.PutUint16(deltaChunk, uint16(delta)) //nolint:gosec // G115

		return deltaChunk, nil
	}

	return nil, errDeltaExceedLimit
}

// Unmarshal decodes the RecvDelta from binary.
func (r *RecvDelta) Unmarshal(rawPacket []byte) error {
	switch len(rawPacket) {
	case 1:
		r.Type = TypeTCCPacketReceivedSmallDelta
		r.Delta = TypeTCCDeltaScaleFactor * int64(rawPacket[0])

		return nil
	case 2:
		r.Type = TypeTCCPacketReceivedLargeDelta
		r.Delta = TypeTCCDeltaScaleFactor * int64(int16(binary.BigEndian.Uint16(rawPacket))) //nolint:gosec // G115

		return nil
	default:
		return errDeltaExceedLimit
	}
}

/*
TransportLayerCC is a transport-wide congestion control feedback message,
draft-holmer-rmcat-transport-wide-cc-extensions-01.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|V=2|P|  FMT=15 |    PT=205     |           length              |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                     SSRC of packet sender                     |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                      SSRC of media source                     |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|      base sequence number     |      packet status count      |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                 reference time                | fb pkt. count |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|          packet chunk         |         packet chunk          |
	.                                                               .
	.                                                               .
	|         packet chunk          |  recv delta   |  recv delta   |
	.                                                               .
	.                                                               .
	|           recv delta          | recv delta    | zero padding  |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type TransportLayerCC struct {
	// SSRC of sender
	SenderSSRC uint32

	// SSRC of the media source
	MediaSSRC uint32

	// Transport wide sequence of rtp extension
	BaseSequenceNumber uint16

	// The number of packets this feedback contains status for
	PacketStatusCount uint16

	// The time in 64ms units the first packet of this feedback was received,
	// 24 bits
	ReferenceTime uint32

	// A counter incremented for each feedback packet sent
	FbPktCount uint8

	PacketChunks []PacketStatusChunk

	RecvDeltas []*RecvDelta
}

// Header returns the Header associated with this packet.
func (t TransportLayerCC) Header() Header {
	return Header{
		Padding: false,
		Count:   FormatTCC,
		Type:    TypeTransportSpecificFeedback,
		Length:  uint16((t.MarshalSize() / 4) - 1), //nolint:gosec // G115
	}
}

func (t TransportLayerCC) payloadLen() int {
	n := packetChunkStartOffset + len(t.PacketChunks)*packetStatusChunkLength
	for _, d := range t.RecvDeltas {
		if d.Type == TypeTCCPacketReceivedSmallDelta {
			n++
		} else {
			n += 2
		}
	}

	return n
}

// MarshalSize returns the size of the packet once marshaled, including
// the zero padding that aligns it to a 32 bit boundary.
func (t TransportLayerCC) MarshalSize() int {
	n := headerLength + t.payloadLen()

	return (n + 3) &^ 3
}

// Marshal encodes the TransportLayerCC in binary.
func (t TransportLayerCC) Marshal() ([]byte, error) {
	header := t.Header()
	headerData, err := header.Marshal()
	if err != nil {
		return nil, err
	}

	payload := make([]byte, t.MarshalSize()-headerLength)
	binary.BigEndian.PutUint32(payload, t.SenderSSRC)
	binary.BigEndian.PutUint32(payload[4:], t.MediaSSRC)
	binary.BigEndian.PutUint16(payload[baseSequenceNumberOffset:], t.BaseSequenceNumber)
	binary.BigEndian.PutUint16(payload[packetStatusCountOffset:], t.PacketStatusCount)

	referenceTimeAndFbPktCount := t.ReferenceTime<<8 | uint32(t.FbPktCount)
	binary.BigEndian.PutUint32(payload[referenceTimeOffset:], referenceTimeAndFbPktCount)

	offset := packetChunkStartOffset
	for _, chunk := range t.PacketChunks {
		data, chunkErr := chunk.Marshal()
		if chunkErr != nil {
			return nil, chunkErr
		}
		copy(payload[offset:], data)
		offset += packetStatusChunkLength
	}

	for _, delta := range t.RecvDeltas {
		data, deltaErr := delta.Marshal()
		if deltaErr != nil {
			return nil, deltaErr
		}
		copy(payload[offset:], data)
		offset += len(data)
	}

	return append(headerData, payload...), nil
}

// Unmarshal decodes the TransportLayerCC from binary.
func (t *TransportLayerCC) Unmarshal(rawPacket []byte) error { //nolint:cyclop,gocognit
	if len(rawPacket) < headerLength+packetChunkStartOffset {
		return errPacketTooShort
	}

	var header Header
	if err := header.Unmarshal(rawPacket); err != nil {
		return err
	}
	if header.Type != TypeTransportSpecificFeedback || header.Count != FormatTCC {
		return errWrongType
	}

	totalLength := 4 * (int(header.Length) + 1)
	if totalLength > len(rawPacket) {
		return errPacketTooShort
	}

	payload := rawPacket[headerLength:totalLength]

	t.SenderSSRC = binary.BigEndian.Uint32(payload)
	t.MediaSSRC = binary.BigEndian.Uint32(payload[4:])
	t.BaseSequenceNumber = binary.BigEndian.Uint16(payload[baseSequenceNumberOffset:])
	t.PacketStatusCount = binary.BigEndian.Uint16(payload[packetStatusCountOffset:])

	refTimeAndCount := binary.BigEndian.Uint32(payload[referenceTimeOffset:])
	t.ReferenceTime = refTimeAndCount >> 8
	t.FbPktCount = uint8(refTimeAndCount & 0xFF) //nolint:gosec // G115

	t.PacketChunks = nil
	t.RecvDeltas = nil

	offset := packetChunkStartOffset
	processedPacketNum := 0
	var recvDeltaTypes []uint16

	for processedPacketNum < int(t.PacketStatusCount) {
		if offset+packetStatusChunkLength > len(payload) {
			return errPacketTooShort
		}
		chunkData := payload[offset : offset+packetStatusChunkLength]
		offset += packetStatusChunkLength

		if binary.BigEndian.Uint16(chunkData)>>15 == TypeTCCRunLengthChunk {
			var chunk RunLengthChunk
			if err := chunk.Unmarshal(chunkData); err != nil {
				return err
			}
			t.PacketChunks = append(t.PacketChunks, &chunk)

			count := int(chunk.RunLength)
			if processedPacketNum+count > int(t.PacketStatusCount) {
				count = int(t.PacketStatusCount) - processedPacketNum
			}
			for i := 0; i < count; i++ {
				recvDeltaTypes = append(recvDeltaTypes, chunk.PacketStatusSymbol)
			}
			processedPacketNum += int(chunk.RunLength)
		} else {
			var chunk StatusVectorChunk
			if err := chunk.Unmarshal(chunkData); err != nil {
				return err
			}
			t.PacketChunks = append(t.PacketChunks, &chunk)

			for _, symbol := range chunk.SymbolList {
				if processedPacketNum < int(t.PacketStatusCount) {
					recvDeltaTypes = append(recvDeltaTypes, symbol)
				}
				processedPacketNum++
			}
		}
	}

	for _, symbol := range recvDeltaTypes {
		size := 0
		switch symbol {
		case TypeTCCPacketReceivedSmallDelta:
			size = 1
		case TypeTCCPacketReceivedLargeDelta:
			size = 2
		default:
			continue
		}

		if offset+size > len(payload) {
			return errPacketTooShort
		}
		delta := &RecvDelta{}
		if err := delta.Unmarshal(payload[offset : offset+size]); err != nil {
			return err
		}
		t.RecvDeltas = append(t.RecvDeltas, delta)
		offset += size
	}

	return nil
}

// DestinationSSRC returns an array of SSRC values that this packet refers to.
func (t *TransportLayerCC) DestinationSSRC() []uint32 {
	return []uint32{t.MediaSSRC}
}

func (t TransportLayerCC) String() string {
	out := fmt.Sprintf("TransportLayerCC:\n\tSender Ssrc %d\n", t.SenderSSRC)
	out += fmt.Sprintf("\tMedia Ssrc %d\n", t.MediaSSRC)
	out += fmt.Sprintf("\tBase Sequence Number %d\n", t.BaseSequenceNumber)
	out += fmt.Sprintf("\tStatus Count %d\n", t.PacketStatusCount)
	out += fmt.Sprintf("\tReference Time %d\n", t.ReferenceTime)
	out += fmt.Sprintf("\tFeedback Packet Count %d\n", t.FbPktCount)
	out += "\tPacketChunks "
	for _, chunk := range t.PacketChunks {
		out += fmt.Sprintf("%+v ", chunk)
	}
	out += "\n\tRecvDeltas "
	for _, delta := range t.RecvDeltas {
		out += fmt.Sprintf("%+v ", delta)
	}
	out += "\n"

	return out
}
