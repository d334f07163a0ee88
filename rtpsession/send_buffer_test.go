// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"testing"

	"github.com/halcyonlabs/rtcstack/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentPacket(seq uint16) *rtp.Packet {
	return &rtp.Packet{
		Header:  rtp.Header{Version: 2, SequenceNumber: seq},
		Payload: []byte{0x01, 0x02},
	}
}

func TestSendBufferSizeValidation(t *testing.T) {
	for _, size := range []uint16{0, 3, 100, 65535} {
		_, err := newSendBuffer(size)
		assert.Error(t, err, "size %d", size)
	}
	for _, size := range []uint16{1, 8, 512, 32768} {
		_, err := newSendBuffer(size)
		assert.NoError(t, err, "size %d", size)
	}
}

func TestSendBufferGet(t *testing.T) {
	buffer, err := newSendBuffer(8)
	require.NoError(t, err)

	for seq := uint16(0); seq < 8; seq++ {
		buffer.add(sentPacket(seq))
	}

	for seq := uint16(0); seq < 8; seq++ {
		pkt := buffer.get(seq)
		require.NotNil(t, pkt, "seq %d", seq)
		assert.Equal(t, seq, pkt.SequenceNumber)
	}

	// 8 overwrites the slot of 0
	buffer.add(sentPacket(8))
	assert.Nil(t, buffer.get(0))
	assert.NotNil(t, buffer.get(8))
}

func TestSendBufferEvictsSkippedSlots(t *testing.T) {
	buffer, err := newSendBuffer(8)
	require.NoError(t, err)

	buffer.add(sentPacket(0))
	buffer.add(sentPacket(1))
	// jump ahead, the slots in between must not serve stale packets
	buffer.add(sentPacket(12))

	assert.Nil(t, buffer.get(0))
	assert.Nil(t, buffer.get(1))
	assert.Nil(t, buffer.get(5))
	assert.NotNil(t, buffer.get(12))
}

func TestSendBufferWraparound(t *testing.T) {
	buffer, err := newSendBuffer(8)
	require.NoError(t, err)

	buffer.add(sentPacket(65534))
	buffer.add(sentPacket(65535))
	buffer.add(sentPacket(0))

	assert.NotNil(t, buffer.get(65534))
	assert.NotNil(t, buffer.get(65535))
	assert.NotNil(t, buffer.get(0))
	assert.Nil(t, buffer.get(1))
}
