// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"testing"

	"github.com/halcyonlabs/rtcstack/rtcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTWCCFeedbackTooFew(t *testing.T) {
	recorder := NewTWCCRecorder(1)

	_, err := recorder.BuildFeedbackPacket()
	assert.ErrorIs(t, err, errFeedbackTooFew)
}

func TestTWCCRunLengthEncoding(t *testing.T) {
	recorder := NewTWCCRecorder(5000)

	arrivals := []int64{0, 250, 500, 750, 1000, 1250, 1500, 65500}
	for seq, arrival := range arrivals {
		recorder.Record(9999, uint16(seq), arrival) //nolint:gosec // G115
	}

	fb, err := recorder.BuildFeedbackPacket()
	require.NoError(t, err)

	assert.Equal(t, uint32(5000), fb.SenderSSRC)
	assert.Equal(t, uint32(9999), fb.MediaSSRC)
	assert.Equal(t, uint16(0), fb.BaseSequenceNumber)
	assert.Equal(t, uint16(8), fb.PacketStatusCount)
	assert.Equal(t, uint32(0), fb.ReferenceTime)

	require.Len(t, fb.PacketChunks, 2)
	assert.Equal(t, &rtcp.RunLengthChunk{
		Type:               rtcp.TypeTCCRunLengthChunk,
		PacketStatusSymbol: rtcp.TypeTCCPacketReceivedSmallDelta,
		RunLength:          7,
	}, fb.PacketChunks[0])
	assert.Equal(t, &rtcp.RunLengthChunk{
		Type:               rtcp.TypeTCCRunLengthChunk,
		PacketStatusSymbol: rtcp.TypeTCCPacketReceivedLargeDelta,
		RunLength:          1,
	}, fb.PacketChunks[1])

	require.Len(t, fb.RecvDeltas, 8)
	expected := []int64{0, 250, 250, 250, 250, 250, 250, 64000}
	for i, delta := range fb.RecvDeltas {
		assert.Equal(t, expected[i], delta.Delta, "delta %d", i)
		if expected[i] > 255*rtcp.TypeTCCDeltaScaleFactor {
			assert.Equal(t, uint16(rtcp.TypeTCCPacketReceivedLargeDelta), delta.Type)
		} else {
			assert.Equal(t, uint16(rtcp.TypeTCCPacketReceivedSmallDelta), delta.Type)
		}
	}
}

func TestTWCCMissingPackets(t *testing.T) {
	recorder := NewTWCCRecorder(1)

	recorder.Record(2, 0, 0)
	recorder.Record(2, 1, 250)
	recorder.Record(2, 4, 500)

	fb, err := recorder.BuildFeedbackPacket()
	require.NoError(t, err)

	assert.Equal(t, uint16(5), fb.PacketStatusCount)
	require.Len(t, fb.RecvDeltas, 3)

	// received, received, lost, lost, received
	symbols := make([]uint16, 0, 5)
	for _, chunk := range fb.PacketChunks {
		switch c := chunk.(type) {
		case *rtcp.RunLengthChunk:
			for i := uint16(0); i < c.RunLength; i++ {
				symbols = append(symbols, c.PacketStatusSymbol)
			}
		case *rtcp.StatusVectorChunk:
			symbols = append(symbols, c.SymbolList...)
		}
	}
	assert.Equal(t, []uint16{
		rtcp.TypeTCCPacketReceivedSmallDelta,
		rtcp.TypeTCCPacketReceivedSmallDelta,
		rtcp.TypeTCCPacketNotReceived,
		rtcp.TypeTCCPacketNotReceived,
		rtcp.TypeTCCPacketReceivedSmallDelta,
	}, symbols)
}

func TestTWCCOutOfOrderArrival(t *testing.T) {
	recorder := NewTWCCRecorder(1)

	recorder.Record(2, 0, 0)
	recorder.Record(2, 2, 500)
	recorder.Record(2, 1, 250)

	fb, err := recorder.BuildFeedbackPacket()
	require.NoError(t, err)

	// insertion sort restores sequence order before encoding
	assert.Equal(t, uint16(0), fb.BaseSequenceNumber)
	assert.Equal(t, uint16(3), fb.PacketStatusCount)
	require.Len(t, fb.RecvDeltas, 3)
	assert.Equal(t, int64(0), fb.RecvDeltas[0].Delta)
	assert.Equal(t, int64(250), fb.RecvDeltas[1].Delta)
	assert.Equal(t, int64(250), fb.RecvDeltas[2].Delta)
}

func TestTWCCFeedbackCountIncrements(t *testing.T) {
	recorder := NewTWCCRecorder(1)

	recorder.Record(2, 0, 0)
	fb, err := recorder.BuildFeedbackPacket()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), fb.FbPktCount)

	recorder.Record(2, 1, 250)
	fb, err = recorder.BuildFeedbackPacket()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), fb.FbPktCount)
}

func TestTWCCReferenceTime(t *testing.T) {
	recorder := NewTWCCRecorder(1)

	// base arrival 1.6s -> 25 units of 64ms
	recorder.Record(2, 0, 1_600_000)

	fb, err := recorder.BuildFeedbackPacket()
	require.NoError(t, err)
	assert.Equal(t, uint32(25), fb.ReferenceTime)
	require.Len(t, fb.RecvDeltas, 1)
	assert.Equal(t, int64(0), fb.RecvDeltas[0].Delta)
}
