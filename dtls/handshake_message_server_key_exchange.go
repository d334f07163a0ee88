// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

/*
ServerKeyExchange carries either a PSK identity hint or the signed ECDHE
parameters, depending on the negotiated suite.
https://tools.ietf.org/html/rfc5246#section-7.4.3
*/
type handshakeMessageServerKeyExchange struct {
	identityHint []byte

	ellipticCurveType      ellipticCurveType
	namedCurve             namedCurve
	publicKey              []byte
	signatureHashAlgorithm signatureHashAlgorithm
	signature              []byte
}

func (m handshakeMessageServerKeyExchange) handshakeType() handshakeType {
	return handshakeTypeServerKeyExchange
}

func (m *handshakeMessageServerKeyExchange) Marshal() ([]byte, error) {
	if m.identityHint != nil {
		out := append([]byte{0x00, 0x00}, m.identityHint...)
		binary.BigEndian.PutUint16(out, uint16(len(m.identityHint))) //nolint:gosec // G115

		return out, nil
	}

	out := []byte{byte(m.ellipticCurveType), 0x00, 0x00}
	binary.BigEndian.PutUint16(out[1:], uint16(m.namedCurve))

	out = append(out, byte(len(m.publicKey)))
	out = append(out, m.publicKey...)

	out = append(out, byte(m.signatureHashAlgorithm.hash))
	out = append(out, byte(m.signatureHashAlgorithm.signature))

	sigLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigLen, uint16(len(m.signature))) //nolint:gosec // G115
	out = append(out, sigLen...)

	return append(out, m.signature...), nil
}

// unmarshalPSK decodes the identity-hint form.
func (m *handshakeMessageServerKeyExchange) unmarshalPSK(data []byte) error {
	if len(data) < 2 {
		return ErrBufferTooSmall
	}

	hintLen := int(binary.BigEndian.Uint16(data))
	if len(data) != 2+hintLen {
		return ErrLengthMismatch
	}
	m.identityHint = append([]byte{}, data[2:]...)

	return nil
}

func (m *handshakeMessageServerKeyExchange) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrBufferTooSmall
	}

	if ellipticCurveType(data[0]) != ellipticCurveTypeNamedCurve {
		// Not an ECDHE body, assume the PSK identity-hint form.
		return m.unmarshalPSK(data)
	}
	m.ellipticCurveType = ellipticCurveType(data[0])
	m.namedCurve = namedCurve(binary.BigEndian.Uint16(data[1:]))

	pubKeyLen := int(data[3])
	offset := 4
	if len(data) < offset+pubKeyLen {
		return ErrBufferTooSmall
	}
	m.publicKey = append([]byte{}, data[offset:offset+pubKeyLen]...)
	offset += pubKeyLen

	if len(data) < offset+4 {
		return ErrBufferTooSmall
	}
	m.signatureHashAlgorithm.hash = hashAlgorithm(data[offset])
	m.signatureHashAlgorithm.signature = signatureAlgorithm(data[offset+1])
	offset += 2

	sigLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+sigLen {
		return ErrBufferTooSmall
	}
	m.signature = append([]byte{}, data[offset:offset+sigLen]...)

	return nil
}
