// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpusPayloader(t *testing.T) {
	payloader := &OpusPayloader{}

	assert.Empty(t, payloader.Payload(100, nil))

	payloads := payloader.Payload(1, []byte{0x90, 0x90, 0x90})
	require.Len(t, payloads, 1, "Opus frames are never fragmented")
	assert.Equal(t, []byte{0x90, 0x90, 0x90}, payloads[0])
}

func TestOpusPacket(t *testing.T) {
	pkt := &OpusPacket{}

	_, err := pkt.Unmarshal(nil)
	assert.ErrorIs(t, err, errNilPacket)

	_, err = pkt.Unmarshal([]byte{})
	assert.ErrorIs(t, err, errShortPacket)

	out, err := pkt.Unmarshal([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, out)
	assert.Equal(t, []byte{0x01, 0x02}, pkt.Payload)

	assert.True(t, pkt.IsPartitionHead([]byte{0x00}))
	assert.True(t, pkt.IsPartitionTail(false, nil))
}
