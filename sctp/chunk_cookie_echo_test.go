// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkCookieEcho_RoundTrip(t *testing.T) {
	cookie := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	in := &chunkCookieEcho{cookie: cookie}
	raw, err := in.marshal()
	assert.NoError(t, err)

	out := &chunkCookieEcho{}
	assert.NoError(t, out.unmarshal(raw))
	assert.Equal(t, ctCookieEcho, out.typ)
	assert.Equal(t, cookie, out.cookie)
}

func TestChunkCookieEcho_WrongType(t *testing.T) {
	ch := chunkHeader{typ: ctCookieAck}
	raw, err := ch.marshal()
	assert.NoError(t, err)

	out := &chunkCookieEcho{}
	err = out.unmarshal(raw)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrChunkTypeNotCookieEcho)
}
