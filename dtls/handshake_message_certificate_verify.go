// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

// https://tools.ietf.org/html/rfc5246#section-7.4.8
type handshakeMessageCertificateVerify struct {
	hashAlgorithm      hashAlgorithm
	signatureAlgorithm signatureAlgorithm
	signature          []byte
}

func (m handshakeMessageCertificateVerify) handshakeType() handshakeType {
	return handshakeTypeCertificateVerify
}

func (m *handshakeMessageCertificateVerify) Marshal() ([]byte, error) {
	out := make([]byte, 4+len(m.signature))
	out[0] = byte(m.hashAlgorithm)
	out[1] = byte(m.signatureAlgorithm)
	binary.BigEndian.PutUint16(out[2:], uint16(len(m.signature))) //nolint:gosec // G115
	copy(out[4:], m.signature)

	return out, nil
}

func (m *handshakeMessageCertificateVerify) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrBufferTooSmall
	}

	m.hashAlgorithm = hashAlgorithm(data[0])
	m.signatureAlgorithm = signatureAlgorithm(data[1])
	signatureLength := int(binary.BigEndian.Uint16(data[2:]))
	if len(data) != 4+signatureLength {
		return ErrLengthMismatch
	}
	m.signature = append([]byte{}, data[4:]...)

	return nil
}
