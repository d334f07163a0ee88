// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiveLogSizeValidation(t *testing.T) {
	for _, size := range []uint16{0, 1, 63, 65, 1000} {
		_, err := newReceiveLog(size)
		assert.Error(t, err, "size %d", size)
	}
	for _, size := range []uint16{64, 128, 512, 32768} {
		_, err := newReceiveLog(size)
		assert.NoError(t, err, "size %d", size)
	}
}

func TestReceiveLogMissingAcrossRollover(t *testing.T) {
	log, err := newReceiveLog(128)
	require.NoError(t, err)

	for _, seq := range []uint16{65533, 65534, 0, 1, 3} {
		log.add(seq)
	}

	assert.Equal(t, []uint16{65535, 2}, log.missingSeqNumbers(0))
}

func TestReceiveLogLateArrival(t *testing.T) {
	log, err := newReceiveLog(128)
	require.NoError(t, err)

	for _, seq := range []uint16{10, 11, 13, 14} {
		log.add(seq)
	}
	assert.Equal(t, []uint16{12}, log.missingSeqNumbers(0))

	log.add(12)
	assert.Empty(t, log.missingSeqNumbers(0))
}

func TestReceiveLogSkipLastN(t *testing.T) {
	log, err := newReceiveLog(128)
	require.NoError(t, err)

	for _, seq := range []uint16{20, 22, 24} {
		log.add(seq)
	}

	assert.Equal(t, []uint16{21, 23}, log.missingSeqNumbers(0))
	// the most recent two sequence numbers may still be reordered
	assert.Equal(t, []uint16{21}, log.missingSeqNumbers(2))
}

func TestReceiveLogGet(t *testing.T) {
	log, err := newReceiveLog(64)
	require.NoError(t, err)

	log.add(100)
	log.add(102)

	assert.True(t, log.get(100))
	assert.False(t, log.get(101))
	assert.True(t, log.get(102))
}
