// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wrapFragment frames one handshake fragment in a plaintext record.
func wrapFragment(t *testing.T, messageSequence uint16, totalLength, fragmentOffset int, body []byte) []byte {
	t.Helper()

	header := handshakeHeader{
		handshakeType:   handshakeTypeCertificate,
		length:          uint32(totalLength),
		messageSequence: messageSequence,
		fragmentOffset:  uint32(fragmentOffset),
		fragmentLength:  uint32(len(body)),
	}
	rawHeader, err := header.Marshal()
	require.NoError(t, err)

	recordHeader := recordLayerHeader{
		contentType:     contentTypeHandshake,
		contentLen:      uint16(len(rawHeader) + len(body)),
		protocolVersion: protocolVersion1_2,
	}
	rawRecordHeader, err := recordHeader.Marshal()
	require.NoError(t, err)

	return append(rawRecordHeader, append(rawHeader, body...)...)
}

func TestFragmentBufferReassembly(t *testing.T) {
	buffer := newFragmentBuffer()

	full := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}

	// second half arrives first
	consumed, err := buffer.push(wrapFragment(t, 0, len(full), 4, full[4:]))
	require.NoError(t, err)
	assert.True(t, consumed)

	out, _ := buffer.pop()
	assert.Nil(t, out, "incomplete message must not pop")

	consumed, err = buffer.push(wrapFragment(t, 0, len(full), 0, full[:4]))
	require.NoError(t, err)
	assert.True(t, consumed)

	out, _ = buffer.pop()
	require.NotNil(t, out)

	// the popped message carries a rebuilt unfragmented header
	header := handshakeHeader{}
	require.NoError(t, header.Unmarshal(out))
	assert.Equal(t, uint32(len(full)), header.length)
	assert.Equal(t, uint32(0), header.fragmentOffset)
	assert.Equal(t, uint32(len(full)), header.fragmentLength)
	assert.Equal(t, full, out[handshakeHeaderLength:])
}

func TestFragmentBufferHoldsFutureMessages(t *testing.T) {
	buffer := newFragmentBuffer()

	second := []byte{0x22, 0x22}
	first := []byte{0x11, 0x11}

	consumed, err := buffer.push(wrapFragment(t, 1, len(second), 0, second))
	require.NoError(t, err)
	assert.True(t, consumed)

	out, _ := buffer.pop()
	assert.Nil(t, out, "message 1 must wait for message 0")

	consumed, err = buffer.push(wrapFragment(t, 0, len(first), 0, first))
	require.NoError(t, err)
	assert.True(t, consumed)

	out, _ = buffer.pop()
	require.NotNil(t, out)
	assert.Equal(t, first, out[handshakeHeaderLength:])

	out, _ = buffer.pop()
	require.NotNil(t, out)
	assert.Equal(t, second, out[handshakeHeaderLength:])
}

func TestFragmentBufferDropsDelivered(t *testing.T) {
	buffer := newFragmentBuffer()

	body := []byte{0x33}
	consumed, err := buffer.push(wrapFragment(t, 0, len(body), 0, body))
	require.NoError(t, err)
	assert.True(t, consumed)

	out, _ := buffer.pop()
	require.NotNil(t, out)

	// a retransmit of an already delivered message is swallowed
	consumed, err = buffer.push(wrapFragment(t, 0, len(body), 0, body))
	require.NoError(t, err)
	assert.True(t, consumed)

	out, _ = buffer.pop()
	assert.Nil(t, out)
}

func TestFragmentBufferIgnoresNonHandshake(t *testing.T) {
	buffer := newFragmentBuffer()

	record := recordLayer{
		recordLayerHeader: recordLayerHeader{protocolVersion: protocolVersion1_2},
		content:           &applicationData{data: []byte{0x01, 0x02}},
	}
	raw, err := record.Marshal()
	require.NoError(t, err)

	consumed, err := buffer.push(raw)
	require.NoError(t, err)
	assert.False(t, consumed)
}
