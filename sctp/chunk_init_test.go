// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func minimalInitCommon() chunkInitCommon {
	return chunkInitCommon{
		initiateTag:                    0x11111111,
		advertisedReceiverWindowCredit: 1500,
		numOutboundStreams:             1,
		numInboundStreams:              1,
		initialTSN:                     0,
	}
}

func TestChunkInit_UnrecognizedParameters(t *testing.T) {
	initChunkHeader := []byte{
		0x55, 0xb9, 0x64, 0xa5, 0x00, 0x02, 0x00, 0x00,
		0x04, 0x00, 0x08, 0x00, 0xe8, 0x6d, 0x10, 0x30,
	}

	unrecognizedSkip := append([]byte{}, initChunkHeader...)
	unrecognizedSkip = append(unrecognizedSkip, byte(paramHeaderUnrecognizedActionSkip), 0xFF, 0x00, 0x04, 0x00)

	initCommonChunk := &chunkInitCommon{}
	assert.NoError(t, initCommonChunk.unmarshal(unrecognizedSkip))
	assert.Equal(t, 1, len(initCommonChunk.unrecognizedParams))
	assert.Equal(t, paramHeaderUnrecognizedActionSkip, initCommonChunk.unrecognizedParams[0].unrecognizedAction)

	unrecognizedStop := append([]byte{}, initChunkHeader...)
	unrecognizedStop = append(unrecognizedStop, byte(paramHeaderUnrecognizedActionStop), 0xFF, 0x00, 0x04, 0x00)

	initCommonChunk = &chunkInitCommon{}
	assert.NoError(t, initCommonChunk.unmarshal(unrecognizedStop))
	assert.Equal(t, 1, len(initCommonChunk.unrecognizedParams))
	assert.Equal(t, paramHeaderUnrecognizedActionStop, initCommonChunk.unrecognizedParams[0].unrecognizedAction)
}

func TestChunkInit_RoundTrip(t *testing.T) {
	initChunk := &chunkInit{chunkInitCommon: minimalInitCommon()}
	initChunk.params = []param{&paramSupportedExtensions{
		ChunkTypes: []chunkType{ctReconfig, ctForwardTSN},
	}}

	raw, err := initChunk.marshal()
	assert.NoError(t, err)

	initChunk2 := &chunkInit{}
	assert.NoError(t, initChunk2.unmarshal(raw))

	assert.Equal(t, initChunk.initiateTag, initChunk2.initiateTag)
	assert.Equal(t, initChunk.advertisedReceiverWindowCredit, initChunk2.advertisedReceiverWindowCredit)
	assert.Equal(t, initChunk.numOutboundStreams, initChunk2.numOutboundStreams)
	assert.Equal(t, initChunk.numInboundStreams, initChunk2.numInboundStreams)
	assert.Equal(t, initChunk.initialTSN, initChunk2.initialTSN)
	if assert.Equal(t, 1, len(initChunk2.params)) {
		se, ok := initChunk2.params[0].(*paramSupportedExtensions)
		if assert.True(t, ok) {
			assert.Equal(t, []chunkType{ctReconfig, ctForwardTSN}, se.ChunkTypes)
		}
	}
}

func TestChunkInitAck_RoundTrip(t *testing.T) {
	cookie, err := newRandomStateCookie()
	assert.NoError(t, err)

	initAck := &chunkInitAck{chunkInitCommon: minimalInitCommon()}
	initAck.params = []param{cookie}

	raw, err := initAck.marshal()
	assert.NoError(t, err)

	initAck2 := &chunkInitAck{}
	assert.NoError(t, initAck2.unmarshal(raw))
	if assert.Equal(t, 1, len(initAck2.params)) {
		sc, ok := initAck2.params[0].(*paramStateCookie)
		if assert.True(t, ok) {
			assert.Equal(t, cookie.cookie, sc.cookie)
		}
	}
}

func TestChunkInit_Check(t *testing.T) {
	tt := []struct {
		name   string
		mutate func(*chunkInit)
		errExp error
	}{
		{"zero initiate tag", func(c *chunkInit) { c.initiateTag = 0 }, ErrChunkTypeInitInitateTagZero},
		{"zero inbound streams", func(c *chunkInit) { c.numInboundStreams = 0 }, ErrInitInboundStreamRequestZero},
		{"zero outbound streams", func(c *chunkInit) { c.numOutboundStreams = 0 }, ErrInitOutboundStreamRequestZero},
		{"a_rwnd below minimum", func(c *chunkInit) { c.advertisedReceiverWindowCredit = 1499 }, ErrInitAdvertisedReceiver1500},
	}

	for _, tc := range tt {
		initChunk := &chunkInit{chunkInitCommon: minimalInitCommon()}
		tc.mutate(initChunk)

		abort, err := initChunk.check()
		assert.Truef(t, abort, "%s should abort", tc.name)
		assert.ErrorIsf(t, err, tc.errExp, "%s unexpected error", tc.name)
	}

	initChunk := &chunkInit{chunkInitCommon: minimalInitCommon()}
	abort, err := initChunk.check()
	assert.False(t, abort)
	assert.NoError(t, err)
}
