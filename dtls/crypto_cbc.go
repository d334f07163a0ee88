// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"hash"
)

// cryptoCBC implements the TLS MAC-then-pad-then-encrypt scheme with the
// DTLS explicit IV.
// https://tools.ietf.org/html/rfc5246#section-6.2.3.2
type cryptoCBC struct {
	writeCBC, readCBC cbcMode
	writeMac, readMac []byte
	h                 func() hash.Hash
}

// currently the only supported block cipher is AES in CBC mode.
type cbcMode interface {
	cipher.BlockMode
	SetIV([]byte)
}

func newCryptoCBC(localKey, localMac, remoteKey, remoteMac []byte, h func() hash.Hash) (*cryptoCBC, error) {
	writeBlock, err := aes.NewCipher(localKey)
	if err != nil {
		return nil, err
	}

	readBlock, err := aes.NewCipher(remoteKey)
	if err != nil {
		return nil, err
	}

	writeCBC, ok := cipher.NewCBCEncrypter(writeBlock, make([]byte, aes.BlockSize)).(cbcMode)
	if !ok {
		return nil, ErrInvalidCipherSpec
	}
	readCBC, ok := cipher.NewCBCDecrypter(readBlock, make([]byte, aes.BlockSize)).(cbcMode)
	if !ok {
		return nil, ErrInvalidCipherSpec
	}

	return &cryptoCBC{
		writeCBC: writeCBC,
		writeMac: localMac,
		readCBC:  readCBC,
		readMac:  remoteMac,
		h:        h,
	}, nil
}

func (c *cryptoCBC) hmacCreate(epoch uint16, sequenceNumber uint64, contentType contentType,
	protocolVersion protocolVersion, payload []byte, key []byte,
) ([]byte, error) {
	mac := hmac.New(c.h, key)

	msg := make([]byte, 13)
	msg[0] = byte(epoch >> 8)
	msg[1] = byte(epoch)
	putBigEndianUint48(msg[2:], sequenceNumber)
	msg[8] = byte(contentType)
	msg[9] = protocolVersion.major
	msg[10] = protocolVersion.minor
	msg[11] = byte(len(payload) >> 8)
	msg[12] = byte(len(payload))

	if _, err := mac.Write(msg); err != nil {
		return nil, err
	} else if _, err := mac.Write(payload); err != nil {
		return nil, err
	}

	return mac.Sum(nil), nil
}

func (c *cryptoCBC) encrypt(pkt *recordLayer, raw []byte) ([]byte, error) {
	payload := raw[recordLayerHeaderSize:]
	raw = raw[:recordLayerHeaderSize]
	blockSize := c.writeCBC.BlockSize()

	mac, err := c.hmacCreate(pkt.recordLayerHeader.epoch, pkt.recordLayerHeader.sequenceNumber,
		pkt.recordLayerHeader.contentType, pkt.recordLayerHeader.protocolVersion, payload, c.writeMac)
	if err != nil {
		return nil, err
	}
	payload = append(payload, mac...)

	padLen := blockSize - len(payload)%blockSize
	for i := 0; i < padLen; i++ {
		payload = append(payload, byte(padLen-1))
	}

	// Explicit IV, fresh per record
	iv := make([]byte, blockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	c.writeCBC.SetIV(iv)
	c.writeCBC.CryptBlocks(payload, payload)

	payload = append(iv, payload...)
	raw = append(raw, payload...)

	rawLen := uint16(len(raw) - recordLayerHeaderSize) //nolint:gosec // G115
	raw[recordLayerHeaderSize-2] = byte(rawLen >> 8)
	raw[recordLayerHeaderSize-1] = byte(rawLen)

	return raw, nil
}

func (c *cryptoCBC) decrypt(h *recordLayerHeader, in []byte) ([]byte, error) {
	body := in[recordLayerHeaderSize:]
	blockSize := c.readCBC.BlockSize()
	macSize := c.h().Size()

	switch {
	case h.contentType == contentTypeChangeCipherSpec:
		// Nothing to decrypt with ChangeCipherSpec
		return in, nil
	case len(body) < blockSize:
		return nil, ErrNotEnoughRoomForNonce
	case len(body)%blockSize != 0:
		return nil, ErrNotEnoughRoomForNonce
	}

	iv := body[:blockSize]
	body = body[blockSize:]

	c.readCBC.SetIV(iv)
	decrypted := make([]byte, len(body))
	c.readCBC.CryptBlocks(decrypted, body)

	if len(decrypted) == 0 {
		return nil, ErrInvalidMAC
	}
	padLen := int(decrypted[len(decrypted)-1]) + 1
	if padLen > len(decrypted) || padLen+macSize > len(decrypted) {
		return nil, ErrInvalidMAC
	}
	dataEnd := len(decrypted) - macSize - padLen

	expectedMAC := decrypted[dataEnd : dataEnd+macSize]
	actualMAC, err := c.hmacCreate(h.epoch, h.sequenceNumber, h.contentType,
		h.protocolVersion, decrypted[:dataEnd], c.readMac)
	if err != nil || !hmac.Equal(actualMAC, expectedMAC) {
		return nil, ErrInvalidMAC
	}

	return append(in[:recordLayerHeaderSize], decrypted[:dataEnd]...), nil
}
