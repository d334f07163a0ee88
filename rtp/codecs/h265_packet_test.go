// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestH265Payloader(t *testing.T) {
	payloader := &H265Payloader{}

	assert.Empty(t, payloader.Payload(100, []byte{}), "empty payload must generate nothing")
	assert.Empty(t, payloader.Payload(0, []byte{0x02, 0x01}), "0 MTU must generate nothing")
	assert.Empty(t, payloader.Payload(100, []byte{0x46, 0x01}), "AUD must be skipped")

	small := []byte{0x02, 0x01, 0xAA, 0xBB}
	payloads := payloader.Payload(100, small)
	require.Len(t, payloads, 1)
	assert.Equal(t, small, payloads[0])
}

func TestH265PayloaderAggregation(t *testing.T) {
	vps := []byte{0x40, 0x01, 0x0A}
	sps := []byte{0x42, 0x01, 0x0B, 0x0C}
	pps := []byte{0x44, 0x01, 0x0D}
	frame := []byte{0x02, 0x01, 0xAA}

	stream := append([]byte{0x00, 0x00, 0x01}, vps...)
	stream = append(stream, 0x00, 0x00, 0x01)
	stream = append(stream, sps...)
	stream = append(stream, 0x00, 0x00, 0x01)
	stream = append(stream, pps...)
	stream = append(stream, 0x00, 0x00, 0x01)
	stream = append(stream, frame...)

	payloader := &H265Payloader{}
	payloads := payloader.Payload(100, stream)
	require.Len(t, payloads, 2)

	expectedAP := []byte{
		h265NaluAggregationType << 1, 0x01,
		0x00, 0x03, 0x40, 0x01, 0x0A,
		0x00, 0x04, 0x42, 0x01, 0x0B, 0x0C,
		0x00, 0x03, 0x44, 0x01, 0x0D,
	}
	assert.Equal(t, expectedAP, payloads[0])
	assert.Equal(t, frame, payloads[1])

	// the aggregate must round trip through the depacketizer
	pkt := &H265Packet{}
	out, err := pkt.Unmarshal(payloads[0])
	require.NoError(t, err)

	expected := append(annexbNALUStartCode(), vps...)
	expected = append(expected, annexbNALUStartCode()...)
	expected = append(expected, sps...)
	expected = append(expected, annexbNALUStartCode()...)
	expected = append(expected, pps...)
	assert.Equal(t, expected, out)
}

func TestH265PayloaderSkipAggregation(t *testing.T) {
	payloader := &H265Payloader{SkipAggregation: true}

	stream := []byte{
		0x00, 0x00, 0x01, 0x40, 0x01, 0x0A,
		0x00, 0x00, 0x01, 0x42, 0x01, 0x0B,
	}
	payloads := payloader.Payload(100, stream)
	require.Len(t, payloads, 2)
	assert.Equal(t, []byte{0x40, 0x01, 0x0A}, payloads[0])
	assert.Equal(t, []byte{0x42, 0x01, 0x0B}, payloads[1])
}

func TestH265FragmentationRoundTrip(t *testing.T) {
	nalu := make([]byte, 202)
	nalu[0] = 0x02 // TRAIL_R
	nalu[1] = 0x01
	for i := 2; i < len(nalu); i++ {
		nalu[i] = byte(i)
	}

	for _, withDONL := range []bool{false, true} {
		name := "plain"
		if withDONL {
			name = "donl"
		}
		t.Run(name, func(t *testing.T) {
			payloader := &H265Payloader{AddDONL: withDONL}
			payloads := payloader.Payload(50, nalu)
			require.Greater(t, len(payloads), 1)

			for i, fragment := range payloads {
				assert.Equal(t, byte(h265NaluFragmentationType), h265NaluType(fragment[0]))
				fuHeader := fragment[h265NaluHeaderSize]
				assert.Equal(t, i == 0, fuHeader&h265FuStartBitmask != 0)
				assert.Equal(t, i == len(payloads)-1, fuHeader&h265FuEndBitmask != 0)
				assert.Equal(t, byte(0x01), fuHeader&h265FuTypeBitmask)
			}

			pkt := &H265Packet{WithDONL: withDONL}
			var out []byte
			for _, fragment := range payloads {
				decoded, err := pkt.Unmarshal(fragment)
				require.NoError(t, err)
				out = decoded
			}
			assert.Equal(t, append(annexbNALUStartCode(), nalu...), out)
		})
	}
}

func TestH265SingleWithDONL(t *testing.T) {
	nalu := []byte{0x02, 0x01, 0xAA, 0xBB}

	payloader := &H265Payloader{AddDONL: true}
	payloads := payloader.Payload(100, nalu)
	require.Len(t, payloads, 1)
	require.Len(t, payloads[0], len(nalu)+2)

	pkt := &H265Packet{WithDONL: true}
	out, err := pkt.Unmarshal(payloads[0])
	require.NoError(t, err)
	assert.Equal(t, append(annexbNALUStartCode(), nalu...), out)
}

func TestH265PacketErrors(t *testing.T) {
	pkt := &H265Packet{}

	_, err := pkt.Unmarshal(nil)
	assert.ErrorIs(t, err, errNilPacket)

	_, err = pkt.Unmarshal([]byte{0x02})
	assert.ErrorIs(t, err, errShortPacket)

	// fragment without a start fragment first
	_, err = pkt.Unmarshal([]byte{0x62, 0x01, 0x41, 0xAA})
	assert.ErrorIs(t, err, errH265CorruptedPacket)

	// aggregate whose declared NALU size overruns the buffer
	_, err = pkt.Unmarshal([]byte{0x60, 0x01, 0x00, 0xFF, 0x02})
	assert.ErrorIs(t, err, errH265CorruptedPacket)
}

func TestH265PACI(t *testing.T) {
	inner := []byte{0xAA, 0xBB, 0xCC}
	payload := append([]byte{
		h265NaluPACIType << 1, 0x01,
		0x02, // cType 1
		0x00, // PHSsize 0
	}, inner...)

	pkt := &H265Packet{}
	out, err := pkt.Unmarshal(payload)
	require.NoError(t, err)

	expected := append(annexbNALUStartCode(), 0x02, 0x01)
	expected = append(expected, inner...)
	assert.Equal(t, expected, out)
}

func TestH265IsPartitionHead(t *testing.T) {
	pkt := &H265Packet{}

	assert.False(t, pkt.IsPartitionHead([]byte{0x02, 0x01}))
	assert.True(t, pkt.IsPartitionHead([]byte{0x02, 0x01, 0xAA}))
	assert.True(t, pkt.IsPartitionHead([]byte{0x62, 0x01, 0x81}), "FU with start bit")
	assert.False(t, pkt.IsPartitionHead([]byte{0x62, 0x01, 0x41}), "FU without start bit")
	assert.True(t, pkt.IsPartitionTail(true, nil))
}
