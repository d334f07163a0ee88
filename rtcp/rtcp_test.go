// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, test := range []struct {
		Name   string
		Header Header
	}{
		{
			Name:   "sr",
			Header: Header{Padding: false, Count: 3, Type: TypeSenderReport, Length: 12},
		},
		{
			Name:   "padding",
			Header: Header{Padding: true, Count: 0, Type: TypeReceiverReport, Length: 1},
		},
		{
			Name:   "feedback",
			Header: Header{Padding: false, Count: FormatTCC, Type: TypeTransportSpecificFeedback, Length: 6},
		},
	} {
		data, err := test.Header.Marshal()
		require.NoError(t, err, test.Name)

		var decoded Header
		require.NoError(t, decoded.Unmarshal(data), test.Name)
		assert.Equal(t, test.Header, decoded, test.Name)
	}

	badCount := Header{Count: countMax + 1}
	_, err := badCount.Marshal()
	assert.ErrorIs(t, err, errInvalidHeader)

	var h Header
	assert.ErrorIs(t, h.Unmarshal([]byte{0x00}), errPacketTooShort)
	assert.ErrorIs(t, h.Unmarshal([]byte{0x00, 0xC8, 0x00, 0x00}), errBadVersion)
}

func TestSenderReportRoundTrip(t *testing.T) {
	report := SenderReport{
		SSRC:        0x902F9E2E,
		NTPTime:     0xDA8BD1FCDDDDA05A,
		RTPTime:     0x00AAF4ED,
		PacketCount: 1831,
		OctetCount:  261694,
		Reports: []ReceptionReport{{
			SSRC:               0xBC5E9A40,
			FractionLost:       2,
			TotalLost:          5,
			LastSequenceNumber: 0x00010203,
			Jitter:             273,
			LastSenderReport:   0x66ef1234,
			Delay:              32767,
		}},
	}

	data, err := report.Marshal()
	require.NoError(t, err)
	assert.Equal(t, report.MarshalSize(), len(data))

	var decoded SenderReport
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, report, decoded)
	assert.Equal(t, []uint32{0xBC5E9A40, 0x902F9E2E}, decoded.DestinationSSRC())

	var rr ReceiverReport
	assert.ErrorIs(t, rr.Unmarshal(data), errWrongType)
}

func TestReceiverReportRoundTrip(t *testing.T) {
	report := ReceiverReport{
		SSRC: 0x902F9E2E,
		Reports: []ReceptionReport{
			{SSRC: 0x12345678, FractionLost: 0, TotalLost: 0, LastSequenceNumber: 100},
			{SSRC: 0x9ABCDEF0, FractionLost: 64, TotalLost: 10, LastSequenceNumber: 0x00020000},
		},
	}

	data, err := report.Marshal()
	require.NoError(t, err)

	var decoded ReceiverReport
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, report, decoded)
	assert.Equal(t, []uint32{0x12345678, 0x9ABCDEF0}, decoded.DestinationSSRC())
}

func TestReceptionReportTotalLostOverflow(t *testing.T) {
	report := ReceptionReport{TotalLost: 1 << 25}
	_, err := report.Marshal()
	assert.ErrorIs(t, err, errInvalidTotalLost)
}

func TestTransportLayerNackRoundTrip(t *testing.T) {
	nack := TransportLayerNack{
		SenderSSRC: 0x902F9E2E,
		MediaSSRC:  0x902F9E2E,
		Nacks:      []NackPair{{PacketID: 1, LostPackets: 0xAA}},
	}

	data, err := nack.Marshal()
	require.NoError(t, err)

	var decoded TransportLayerNack
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, nack, decoded)
	assert.Equal(t, []uint32{0x902F9E2E}, decoded.DestinationSSRC())
}

func TestTransportLayerNackUnmarshalWire(t *testing.T) {
	// NACK with one pair is exactly 16 bytes on the wire, length field 3
	raw := []byte{
		0x81, 0xCD, 0x00, 0x03,
		0x90, 0x2F, 0x9E, 0x2E,
		0x90, 0x2F, 0x9E, 0x2E,
		0x00, 0x0A, 0x00, 0x00,
	}

	var nack TransportLayerNack
	require.NoError(t, nack.Unmarshal(raw))
	require.Len(t, nack.Nacks, 1)
	assert.Equal(t, NackPair{PacketID: 10}, nack.Nacks[0])

	pkts, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	decoded, ok := pkts[0].(*TransportLayerNack)
	require.True(t, ok)
	assert.Equal(t, uint16(10), decoded.Nacks[0].PacketID)

	assert.ErrorIs(t, nack.Unmarshal(raw[:15]), errPacketTooShort)
}

func TestNackPair(t *testing.T) {
	pair := NackPair{PacketID: 42, LostPackets: 0}
	assert.Equal(t, []uint16{42}, pair.PacketList())

	pair = NackPair{PacketID: 42, LostPackets: 1}
	assert.Equal(t, []uint16{42, 43}, pair.PacketList())

	pair = NackPair{PacketID: 42, LostPackets: 0x8001}
	assert.Equal(t, []uint16{42, 43, 58}, pair.PacketList())
}

func TestNackPairsFromSequenceNumbers(t *testing.T) {
	assert.Equal(t, []NackPair{}, NackPairsFromSequenceNumbers(nil))

	pairs := NackPairsFromSequenceNumbers([]uint16{42, 43, 44, 58})
	assert.Equal(t, []NackPair{{PacketID: 42, LostPackets: 0x8003}}, pairs)

	pairs = NackPairsFromSequenceNumbers([]uint16{42, 59})
	assert.Equal(t, []NackPair{
		{PacketID: 42},
		{PacketID: 59},
	}, pairs)

	// sequence numbers survive the round trip
	seqs := []uint16{65533, 65535, 2, 3, 20}
	var flat []uint16
	for _, pair := range NackPairsFromSequenceNumbers(seqs) {
		flat = append(flat, pair.PacketList()...)
	}
	assert.Equal(t, seqs, flat)
}

func TestRunLengthChunk(t *testing.T) {
	chunk := RunLengthChunk{
		Type:               TypeTCCRunLengthChunk,
		PacketStatusSymbol: TypeTCCPacketReceivedSmallDelta,
		RunLength:          200,
	}

	data, err := chunk.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0xC8}, data)

	var decoded RunLengthChunk
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, chunk, decoded)

	tooLong := RunLengthChunk{RunLength: maxRunLengthCap + 1}
	_, err = tooLong.Marshal()
	assert.ErrorIs(t, err, errPacketStatusChunk)
}

func TestStatusVectorChunk(t *testing.T) {
	oneBit := StatusVectorChunk{
		Type:       TypeTCCStatusVectorChunk,
		SymbolSize: TypeTCCSymbolSizeOneBit,
		SymbolList: []uint16{1, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	}

	data, err := oneBit.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xB6, 0x01}, data)

	var decoded StatusVectorChunk
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, oneBit, decoded)

	twoBit := StatusVectorChunk{
		Type:       TypeTCCStatusVectorChunk,
		SymbolSize: TypeTCCSymbolSizeTwoBit,
		SymbolList: []uint16{2, 1, 0, 0, 0, 0, 0},
	}

	data, err = twoBit.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE4, 0x00}, data)

	var decodedTwo StatusVectorChunk
	require.NoError(t, decodedTwo.Unmarshal(data))
	assert.Equal(t, twoBit, decodedTwo)
}

func TestRecvDelta(t *testing.T) {
	small := RecvDelta{Type: TypeTCCPacketReceivedSmallDelta, Delta: 63750}
	data, err := small.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, data)

	var decoded RecvDelta
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, small, decoded)

	large := RecvDelta{Type: TypeTCCPacketReceivedLargeDelta, Delta: -1000}
	data, err = large.Marshal()
	require.NoError(t, err)
	require.Len(t, data, 2)

	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, large, decoded)

	overflow := RecvDelta{Type: TypeTCCPacketReceivedSmallDelta, Delta: 63750 + 250}
	_, err = overflow.Marshal()
	assert.ErrorIs(t, err, errDeltaExceedLimit)
}

func TestTransportLayerCCRoundTrip(t *testing.T) {
	feedback := TransportLayerCC{
		SenderSSRC:         4195875351,
		MediaSSRC:          1124282272,
		BaseSequenceNumber: 153,
		PacketStatusCount:  1,
		ReferenceTime:      4057090,
		FbPktCount:         23,
		PacketChunks: []PacketStatusChunk{
			&RunLengthChunk{
				Type:               TypeTCCRunLengthChunk,
				PacketStatusSymbol: TypeTCCPacketReceivedSmallDelta,
				RunLength:          1,
			},
		},
		RecvDeltas: []*RecvDelta{
			{Type: TypeTCCPacketReceivedSmallDelta, Delta: TypeTCCDeltaScaleFactor * 4},
		},
	}

	data, err := feedback.Marshal()
	require.NoError(t, err)
	assert.Equal(t, feedback.MarshalSize(), len(data))
	assert.Zero(t, len(data)%4, "feedback must be padded to a 32 bit boundary")

	var decoded TransportLayerCC
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, feedback, decoded)
}

func TestTransportLayerCCMixedChunks(t *testing.T) {
	feedback := TransportLayerCC{
		SenderSSRC:         1,
		MediaSSRC:          2,
		BaseSequenceNumber: 100,
		PacketStatusCount:  16,
		ReferenceTime:      278,
		FbPktCount:         3,
		PacketChunks: []PacketStatusChunk{
			&StatusVectorChunk{
				Type:       TypeTCCStatusVectorChunk,
				SymbolSize: TypeTCCSymbolSizeTwoBit,
				SymbolList: []uint16{1, 0, 2, 1, 0, 0, 1},
			},
			&RunLengthChunk{
				Type:               TypeTCCRunLengthChunk,
				PacketStatusSymbol: TypeTCCPacketNotReceived,
				RunLength:          9,
			},
		},
		RecvDeltas: []*RecvDelta{
			{Type: TypeTCCPacketReceivedSmallDelta, Delta: TypeTCCDeltaScaleFactor},
			{Type: TypeTCCPacketReceivedLargeDelta, Delta: TypeTCCDeltaScaleFactor * 256},
			{Type: TypeTCCPacketReceivedSmallDelta, Delta: 0},
			{Type: TypeTCCPacketReceivedSmallDelta, Delta: TypeTCCDeltaScaleFactor * 2},
		},
	}

	data, err := feedback.Marshal()
	require.NoError(t, err)

	var decoded TransportLayerCC
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, feedback, decoded)
}

func TestCompoundUnmarshal(t *testing.T) {
	sr := &SenderReport{SSRC: 1, NTPTime: 2, RTPTime: 3, PacketCount: 4, OctetCount: 5}
	rr := &ReceiverReport{SSRC: 1, Reports: []ReceptionReport{{SSRC: 7}}}
	nack := &TransportLayerNack{
		SenderSSRC: 1,
		MediaSSRC:  7,
		Nacks:      []NackPair{{PacketID: 10}},
	}

	data, err := Marshal([]Packet{sr, rr, nack})
	require.NoError(t, err)

	packets, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, packets, 3)

	decodedSR, ok := packets[0].(*SenderReport)
	require.True(t, ok)
	assert.Equal(t, uint32(1), decodedSR.SSRC)

	decodedRR, ok := packets[1].(*ReceiverReport)
	require.True(t, ok)
	assert.Equal(t, uint32(7), decodedRR.Reports[0].SSRC)

	decodedNack, ok := packets[2].(*TransportLayerNack)
	require.True(t, ok)
	assert.Equal(t, []uint16{10}, decodedNack.Nacks[0].PacketList())

	_, err = Unmarshal(nil)
	assert.ErrorIs(t, err, errPacketTooShort)

	_, err = Unmarshal([]byte{0x80, 0xC8, 0x00, 0xFF})
	assert.ErrorIs(t, err, errPacketTooShort, "declared length past the end of the buffer")
}

func TestUnknownTypeAsRawPacket(t *testing.T) {
	// Goodbye packet, type 203
	raw := []byte{0x81, 0xCB, 0x00, 0x01, 0x90, 0x2F, 0x9E, 0x2E}

	packets, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Len(t, packets, 1)

	pkt, ok := packets[0].(*RawPacket)
	require.True(t, ok)
	assert.Equal(t, RawPacket(raw), *pkt)
	assert.Equal(t, PacketType(203), pkt.Header().Type)
}
