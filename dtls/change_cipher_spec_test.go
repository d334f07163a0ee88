// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeCipherSpecRoundTrip(t *testing.T) {
	c := changeCipherSpec{}
	raw, err := c.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, raw)

	assert.NoError(t, c.Unmarshal(raw))
}

func TestChangeCipherSpecInvalid(t *testing.T) {
	c := changeCipherSpec{}
	for _, raw := range [][]byte{{}, {0x00}, {0x02}, {0x01, 0x01}} {
		assert.ErrorIs(t, c.Unmarshal(raw), ErrInvalidCipherSpec)
	}
}
