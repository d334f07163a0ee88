// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

/*
ClientKeyExchange carries the client's ephemeral ECDHE public value or,
for PSK suites, the chosen identity.
https://tools.ietf.org/html/rfc5246#section-7.4.7
*/
type handshakeMessageClientKeyExchange struct {
	identityHint []byte
	publicKey    []byte
}

func (m handshakeMessageClientKeyExchange) handshakeType() handshakeType {
	return handshakeTypeClientKeyExchange
}

func (m *handshakeMessageClientKeyExchange) Marshal() ([]byte, error) {
	if m.identityHint != nil && m.publicKey != nil {
		return nil, ErrInvalidCipherSuite
	}

	if m.identityHint != nil {
		out := append([]byte{0x00, 0x00}, m.identityHint...)
		binary.BigEndian.PutUint16(out, uint16(len(m.identityHint))) //nolint:gosec // G115

		return out, nil
	}

	return append([]byte{byte(len(m.publicKey))}, m.publicKey...), nil
}

func (m *handshakeMessageClientKeyExchange) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return ErrBufferTooSmall
	}

	// If the length prefix plus two bytes equals the body length this is
	// a PSK identity, otherwise an ECDHE public value.
	if pskLength := binary.BigEndian.Uint16(data); len(data) == int(pskLength+2) {
		m.identityHint = append([]byte{}, data[2:]...)

		return nil
	}

	publicKeyLength := int(data[0])
	if len(data) != publicKeyLength+1 {
		return ErrBufferTooSmall
	}
	m.publicKey = append([]byte{}, data[1:]...)

	return nil
}
