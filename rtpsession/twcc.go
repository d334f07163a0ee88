// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"math"
	"sync"

	"github.com/halcyonlabs/rtcstack/rtcp"
)

type pktInfo struct {
	sequenceNumber uint32
	arrivalTime    int64
}

// TWCCRecorder records incoming RTP packets and their arrival times so
// periodic transport-wide congestion control feedback can be generated,
// draft-holmer-rmcat-transport-wide-cc-extensions-01.
type TWCCRecorder struct {
	mu sync.Mutex

	receivedPackets []pktInfo

	cycles             uint32
	lastSequenceNumber uint16

	senderSSRC uint32
	mediaSSRC  uint32
	fbPktCnt   uint8
}

// NewTWCCRecorder creates a new TWCCRecorder which uses the given
// senderSSRC in the created feedback packets.
func NewTWCCRecorder(senderSSRC uint32) *TWCCRecorder {
	return &TWCCRecorder{
		receivedPackets: []pktInfo{},
		senderSSRC:      senderSSRC,
	}
}

// Record marks a packet with mediaSSRC and a transport wide sequence
// number as received at arrivalTime, in microseconds.
func (t *TWCCRecorder) Record(mediaSSRC uint32, sequenceNumber uint16, arrivalTime int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mediaSSRC = mediaSSRC
	if sequenceNumber < 0x0fff && (t.lastSequenceNumber&0xffff) > 0xf000 {
		t.cycles += 1 << 16
	}
	t.receivedPackets = insertSorted(t.receivedPackets, pktInfo{
		sequenceNumber: t.cycles | uint32(sequenceNumber),
		arrivalTime:    arrivalTime,
	})
	t.lastSequenceNumber = sequenceNumber
}

func insertSorted(list []pktInfo, element pktInfo) []pktInfo {
	if len(list) == 0 {
		return append(list, element)
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].sequenceNumber < element.sequenceNumber {
			list = append(list, pktInfo{})
			copy(list[i+2:], list[i+1:])
			list[i+1] = element

			return list
		}
		if list[i].sequenceNumber == element.sequenceNumber {
			list[i] = element

			return list
		}
	}

	return append([]pktInfo{element}, list...)
}

// BuildFeedbackPacket creates a new RTCP packet containing a TWCC
// feedback report for all packets recorded since the last call.
func (t *TWCCRecorder) BuildFeedbackPacket() (*rtcp.TransportLayerCC, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.receivedPackets) < 1 {
		return nil, errFeedbackTooFew
	}

	fb := newFeedback(t.senderSSRC, t.mediaSSRC, t.fbPktCnt)
	t.fbPktCnt++
	fb.setBase(
		uint16(t.receivedPackets[0].sequenceNumber&0xffff), //nolint:gosec // G115
		t.receivedPackets[0].arrivalTime,
	)

	for _, pkt := range t.receivedPackets {
		fb.addReceived(uint16(pkt.sequenceNumber&0xffff), pkt.arrivalTime) //nolint:gosec // G115
	}
	t.receivedPackets = t.receivedPackets[:0]

	return fb.getRTCP(), nil
}

type feedback struct {
	rtcp                *rtcp.TransportLayerCC
	baseSequenceNumber  uint16
	refTimestamp64MS    int64
	lastTimestampUS     int64
	nextSequenceNumber  uint16
	sequenceNumberCount uint16
	lastChunk           chunk
	chunks              []rtcp.PacketStatusChunk
	deltas              []*rtcp.RecvDelta
}

func newFeedback(senderSSRC, mediaSSRC uint32, count uint8) *feedback {
	return &feedback{
		rtcp: &rtcp.TransportLayerCC{
			SenderSSRC: senderSSRC,
			MediaSSRC:  mediaSSRC,
			FbPktCount: count,
		},
	}
}

func (f *feedback) setBase(sequenceNumber uint16, timeUS int64) {
	f.baseSequenceNumber = sequenceNumber
	f.nextSequenceNumber = f.baseSequenceNumber
	f.refTimestamp64MS = timeUS / 64e3
	f.lastTimestampUS = f.refTimestamp64MS * 64e3
}

func (f *feedback) getRTCP() *rtcp.TransportLayerCC {
	f.rtcp.PacketStatusCount = f.sequenceNumberCount
	f.rtcp.ReferenceTime = uint32(f.refTimestamp64MS) //nolint:gosec // G115
	f.rtcp.BaseSequenceNumber = f.baseSequenceNumber
	for len(f.lastChunk.deltas) > 0 {
		f.chunks = append(f.chunks, f.lastChunk.encode())
	}
	f.rtcp.PacketChunks = append(f.rtcp.PacketChunks, f.chunks...)
	f.rtcp.RecvDeltas = f.deltas

	return f.rtcp
}

func (f *feedback) addReceived(sequenceNumber uint16, timestampUS int64) {
	// fill in holes for all not received packets before this one
	for ; f.nextSequenceNumber != sequenceNumber; f.nextSequenceNumber++ {
		if !f.lastChunk.canAdd(rtcp.TypeTCCPacketNotReceived) {
			f.chunks = append(f.chunks, f.lastChunk.encode())
		}
		f.lastChunk.add(rtcp.TypeTCCPacketNotReceived)
		f.sequenceNumberCount++
	}

	delta := (timestampUS - f.lastTimestampUS) / rtcp.TypeTCCDeltaScaleFactor
	var recvDelta uint16
	switch {
	case delta >= 0 && delta <= math.MaxUint8:
		recvDelta = rtcp.TypeTCCPacketReceivedSmallDelta
	default:
		recvDelta = rtcp.TypeTCCPacketReceivedLargeDelta
	}

	if !f.lastChunk.canAdd(recvDelta) {
		f.chunks = append(f.chunks, f.lastChunk.encode())
	}
	f.lastChunk.add(recvDelta)
	f.deltas = append(f.deltas, &rtcp.RecvDelta{
		Type:  recvDelta,
		Delta: rtcp.TypeTCCDeltaScaleFactor * delta,
	})
	f.lastTimestampUS += delta * rtcp.TypeTCCDeltaScaleFactor
	f.sequenceNumberCount++
	f.nextSequenceNumber++
}

const (
	maxRunLengthCap = 0x1fff // 13 bits
	maxOneBitCap    = 14     // bits
	maxTwoBitCap    = 7      // bits
)

type chunk struct {
	hasLargeDelta     bool
	hasDifferentTypes bool
	deltas            []uint16
}

func (c *chunk) canAdd(delta uint16) bool {
	if len(c.deltas) < maxTwoBitCap {
		return true
	}
	if len(c.deltas) < maxOneBitCap && !c.hasLargeDelta && delta != rtcp.TypeTCCPacketReceivedLargeDelta {
		return true
	}
	if len(c.deltas) < maxRunLengthCap && !c.hasDifferentTypes && delta == c.deltas[0] {
		return true
	}

	return false
}

func (c *chunk) add(delta uint16) {
	c.deltas = append(c.deltas, delta)
	c.hasLargeDelta = c.hasLargeDelta || delta == rtcp.TypeTCCPacketReceivedLargeDelta
	c.hasDifferentTypes = c.hasDifferentTypes || delta != c.deltas[0]
}

func (c *chunk) encode() rtcp.PacketStatusChunk {
	if !c.hasDifferentTypes {
		defer c.reset()

		return &rtcp.RunLengthChunk{
			Type:               rtcp.TypeTCCRunLengthChunk,
			PacketStatusSymbol: c.deltas[0],
			RunLength:          uint16(len(c.deltas)), //nolint:gosec // G115
		}
	}
	if len(c.deltas) == maxOneBitCap {
		defer c.reset()

		return &rtcp.StatusVectorChunk{
			Type:       rtcp.TypeTCCStatusVectorChunk,
			SymbolSize: rtcp.TypeTCCSymbolSizeOneBit,
			SymbolList: c.deltas,
		}
	}

	minCap := maxTwoBitCap
	if len(c.deltas) < minCap {
		minCap = len(c.deltas)
	}
	svc := &rtcp.StatusVectorChunk{
		Type:       rtcp.TypeTCCStatusVectorChunk,
		SymbolSize: rtcp.TypeTCCSymbolSizeTwoBit,
		SymbolList: c.deltas[:minCap],
	}
	c.deltas = c.deltas[minCap:]
	c.hasDifferentTypes = false
	c.hasLargeDelta = false

	for _, d := range c.deltas {
		if d != c.deltas[0] {
			c.hasDifferentTypes = true
		}
		if d == rtcp.TypeTCCPacketReceivedLargeDelta {
			c.hasLargeDelta = true
		}
	}

	return svc
}

func (c *chunk) reset() {
	c.deltas = []uint16{}
	c.hasLargeDelta = false
	c.hasDifferentTypes = false
}
