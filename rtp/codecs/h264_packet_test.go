// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestH264Payloader(t *testing.T) {
	payloader := &H264Payloader{}

	assert.Empty(t, payloader.Payload(5, []byte{}), "empty payload must generate nothing")
	assert.Empty(t, payloader.Payload(5, []byte{0x09, 0x00}), "AUD must be skipped")

	small := []byte{0x90, 0x90, 0x90}
	payloads := payloader.Payload(5, small)
	require.Len(t, payloads, 1)
	assert.Equal(t, small, payloads[0])
}

func TestH264PayloaderStapA(t *testing.T) {
	payloader := &H264Payloader{}

	sps := []byte{0x67, 0xAA, 0xBB}
	pps := []byte{0x68, 0xCC}
	frame := []byte{0x41, 0x01, 0x02}

	stream := append([]byte{0x00, 0x00, 0x01}, sps...)
	stream = append(stream, 0x00, 0x00, 0x01)
	stream = append(stream, pps...)
	stream = append(stream, 0x00, 0x00, 0x00, 0x01)
	stream = append(stream, frame...)

	payloads := payloader.Payload(100, stream)
	require.Len(t, payloads, 2)

	expectedStapA := []byte{
		outputStapAHeader,
		0x00, 0x03, 0x67, 0xAA, 0xBB,
		0x00, 0x02, 0x68, 0xCC,
	}
	assert.Equal(t, expectedStapA, payloads[0])
	assert.Equal(t, frame, payloads[1])
}

func TestH264PayloaderFUA(t *testing.T) {
	payloader := &H264Payloader{}

	nalu := make([]byte, 101)
	nalu[0] = 0x65 // NRI 3, IDR slice
	for i := 1; i < len(nalu); i++ {
		nalu[i] = byte(i)
	}

	payloads := payloader.Payload(12, nalu)
	require.Len(t, payloads, 10)

	for i, fragment := range payloads {
		assert.Equal(t, byte(fuaNALUType|0x60), fragment[0])
		assert.Equal(t, i == 0, fragment[1]&fuStartBitmask != 0)
		assert.Equal(t, i == len(payloads)-1, fragment[1]&fuEndBitmask != 0)
		assert.Equal(t, byte(0x05), fragment[1]&naluTypeBitmask)
	}

	// reassemble through the depacketizer
	pkt := &H264Packet{}
	var out []byte
	for _, fragment := range payloads {
		decoded, err := pkt.Unmarshal(fragment)
		require.NoError(t, err)
		out = decoded
	}
	assert.Equal(t, append(annexbNALUStartCode(), nalu...), out)
}

func TestH264Packet(t *testing.T) {
	pkt := &H264Packet{}

	_, err := pkt.Unmarshal(nil)
	assert.ErrorIs(t, err, errNilPacket)

	_, err = pkt.Unmarshal([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, errShortPacket)

	_, err = pkt.Unmarshal([]byte{0x00, 0x00, 0x00})
	assert.ErrorIs(t, err, errUnhandledNALUType)

	single := []byte{0x41, 0x01, 0x02, 0x03}
	out, err := pkt.Unmarshal(single)
	require.NoError(t, err)
	assert.Equal(t, append(annexbNALUStartCode(), single...), out)

	stapA := []byte{
		0x78,
		0x00, 0x02, 0x67, 0xAA,
		0x00, 0x02, 0x68, 0xBB,
	}
	out, err = pkt.Unmarshal(stapA)
	require.NoError(t, err)
	expected := append(annexbNALUStartCode(), 0x67, 0xAA)
	expected = append(expected, annexbNALUStartCode()...)
	expected = append(expected, 0x68, 0xBB)
	assert.Equal(t, expected, out)

	_, err = pkt.Unmarshal([]byte{0x78, 0x00, 0xFF, 0x67})
	assert.ErrorIs(t, err, errShortPacket, "STAP-A with an oversized NALU length must error")
}

func TestH264PacketAVC(t *testing.T) {
	pkt := &H264Packet{IsAVC: true}

	single := []byte{0x41, 0x01, 0x02, 0x03}
	out, err := pkt.Unmarshal(single)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x00, 0x00, 0x00, 0x04}, single...), out)
}

func TestH264IsPartitionHead(t *testing.T) {
	pkt := &H264Packet{}

	assert.False(t, pkt.IsPartitionHead(nil))
	assert.False(t, pkt.IsPartitionHead([]byte{0x1C}))
	assert.True(t, pkt.IsPartitionHead([]byte{0x41, 0x00}))
	assert.True(t, pkt.IsPartitionHead([]byte{0x1C, 0x80, 0x00}), "FU-A with start bit")
	assert.False(t, pkt.IsPartitionHead([]byte{0x1C, 0x40, 0x00}), "FU-A without start bit")
	assert.True(t, pkt.IsPartitionTail(true, nil))
	assert.False(t, pkt.IsPartitionTail(false, nil))
}

func TestEmitNalus(t *testing.T) {
	verify := func(t *testing.T, stream []byte, expected [][]byte) {
		t.Helper()

		var got [][]byte
		emitNalus(stream, func(nalu []byte) { got = append(got, nalu) })
		assert.Equal(t, expected, got)
	}

	t.Run("no start code", func(t *testing.T) {
		verify(t, []byte{0x01, 0x02, 0x03}, [][]byte{{0x01, 0x02, 0x03}})
	})

	t.Run("mixed start codes", func(t *testing.T) {
		stream := []byte{
			0x00, 0x00, 0x01, 0xAA,
			0x00, 0x00, 0x00, 0x01, 0xBB, 0xCC,
			0x00, 0x00, 0x01, 0xDD,
		}
		verify(t, stream, [][]byte{{0xAA}, {0xBB, 0xCC}, {0xDD}})
	})
}
