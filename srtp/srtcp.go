// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package srtp

import (
	"encoding/binary"
)

func (c *Context) decryptRTCP(dst, encrypted []byte) ([]byte, error) {
	authTagLen, err := c.cipher.AuthTagRTCPLen()
	if err != nil {
		return nil, err
	}
	aeadAuthTagLen, err := c.cipher.AEADAuthTagLen()
	if err != nil {
		return nil, err
	}

	if len(encrypted) < srtcpHeaderSize+srtcpIndexSize+authTagLen+aeadAuthTagLen {
		return nil, errTooShortRTCP
	}

	index := c.cipher.getRTCPIndex(encrypted)
	ssrc := binary.BigEndian.Uint32(encrypted[4:])

	s := c.getSRTCPSSRCState(ssrc)
	markAsValid, ok := s.replayDetector.Check(uint64(index))
	if !ok {
		return nil, &duplicatedError{
			Proto: "srtcp", SSRC: ssrc, Index: index,
		}
	}

	out, err := c.cipher.decryptRTCP(dst, encrypted, index, ssrc)
	if err != nil {
		return nil, err
	}

	markAsValid()

	return out, nil
}

// DecryptRTCP decrypts a buffer that contains a RTCP packet.
func (c *Context) DecryptRTCP(dst, encrypted []byte) ([]byte, error) {
	if len(encrypted) < srtcpHeaderSize {
		return nil, errTooShortRTCP
	}

	return c.decryptRTCP(dst, encrypted)
}

// EncryptRTCP Encrypts a RTCP packet.
func (c *Context) EncryptRTCP(dst, decrypted []byte) ([]byte, error) {
	if len(decrypted) < srtcpHeaderSize {
		return nil, errTooShortRTCP
	}

	ssrc := binary.BigEndian.Uint32(decrypted[4:])
	s := c.getSRTCPSSRCState(ssrc)

	// We roll over early because MSB is used for marking as encrypted
	index := s.nextSRTCPIndex()

	return c.cipher.encryptRTCP(dst, decrypted, index, ssrc)
}
