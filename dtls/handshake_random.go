// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

const (
	handshakeRandomLength      = 32
	handshakeRandomBytesLength = 28
)

// https://tools.ietf.org/html/rfc4346#section-7.4.1.2
type handshakeRandom struct {
	gmtUnixTime time.Time
	randomBytes [handshakeRandomBytesLength]byte
}

func (h *handshakeRandom) Marshal() []byte {
	out := make([]byte, handshakeRandomLength)

	binary.BigEndian.PutUint32(out, uint32(h.gmtUnixTime.Unix())) //nolint:gosec // G115
	copy(out[4:], h.randomBytes[:])

	return out
}

func (h *handshakeRandom) Unmarshal(data []byte) error {
	if len(data) < handshakeRandomLength {
		return ErrBufferTooSmall
	}

	h.gmtUnixTime = time.Unix(int64(binary.BigEndian.Uint32(data)), 0)
	copy(h.randomBytes[:], data[4:handshakeRandomLength])

	return nil
}

// populate fills the handshakeRandom with a fresh timestamp and entropy.
func (h *handshakeRandom) populate() error {
	h.gmtUnixTime = time.Now()
	_, err := rand.Read(h.randomBytes[:])

	return err
}
