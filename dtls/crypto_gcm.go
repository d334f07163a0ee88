// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	cryptoGCMTagLength   = 16
	cryptoGCMNonceLength = 12
	// The first 4 bytes of the nonce come from the key block, the
	// remaining 8 are explicit in the record.
	cryptoGCMImplicitNonceLength = 4
	cryptoGCMExplicitNonceLength = 8
)

// cryptoGCM is the state needed to seal and open AES-GCM records.
type cryptoGCM struct {
	localGCM, remoteGCM         cipher.AEAD
	localWriteIV, remoteWriteIV []byte
}

func newCryptoGCM(localKey, localWriteIV, remoteKey, remoteWriteIV []byte) (*cryptoGCM, error) {
	localBlock, err := aes.NewCipher(localKey)
	if err != nil {
		return nil, err
	}
	localGCM, err := cipher.NewGCM(localBlock)
	if err != nil {
		return nil, err
	}

	remoteBlock, err := aes.NewCipher(remoteKey)
	if err != nil {
		return nil, err
	}
	remoteGCM, err := cipher.NewGCM(remoteBlock)
	if err != nil {
		return nil, err
	}

	return &cryptoGCM{
		localGCM:      localGCM,
		localWriteIV:  localWriteIV,
		remoteGCM:     remoteGCM,
		remoteWriteIV: remoteWriteIV,
	}, nil
}

func (c *cryptoGCM) encrypt(pkt *recordLayer, raw []byte) ([]byte, error) {
	payload := raw[recordLayerHeaderSize:]
	raw = raw[:recordLayerHeaderSize]

	nonce := make([]byte, cryptoGCMNonceLength)
	copy(nonce, c.localWriteIV[:cryptoGCMImplicitNonceLength])
	if _, err := rand.Read(nonce[cryptoGCMImplicitNonceLength:]); err != nil {
		return nil, err
	}

	additionalData := generateAEADAdditionalData(&pkt.recordLayerHeader, len(payload))
	encryptedPayload := c.localGCM.Seal(nil, nonce, payload, additionalData)

	encryptedPayload = append(nonce[cryptoGCMImplicitNonceLength:], encryptedPayload...)
	raw = append(raw, encryptedPayload...)

	// Update the header length to cover the explicit nonce and tag
	rawLen := uint16(len(raw) - recordLayerHeaderSize) //nolint:gosec // G115
	raw[recordLayerHeaderSize-2] = byte(rawLen >> 8)
	raw[recordLayerHeaderSize-1] = byte(rawLen)

	return raw, nil
}

func (c *cryptoGCM) decrypt(h *recordLayerHeader, in []byte) ([]byte, error) {
	switch {
	case len(in) <= (cryptoGCMExplicitNonceLength + recordLayerHeaderSize):
		return nil, ErrNotEnoughRoomForNonce
	case h.contentType == contentTypeChangeCipherSpec:
		// Nothing to encrypt with ChangeCipherSpec
		return in, nil
	}

	nonce := make([]byte, 0, cryptoGCMNonceLength)
	nonce = append(append(nonce, c.remoteWriteIV[:cryptoGCMImplicitNonceLength]...),
		in[recordLayerHeaderSize:recordLayerHeaderSize+cryptoGCMExplicitNonceLength]...)
	out := in[recordLayerHeaderSize+cryptoGCMExplicitNonceLength:]

	additionalData := generateAEADAdditionalData(h, len(out)-cryptoGCMTagLength)
	out, err := c.remoteGCM.Open(out[:0:len(out)], nonce, out, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err) //nolint:errorlint
	}

	return append(in[:recordLayerHeaderSize], out...), nil
}
