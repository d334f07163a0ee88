// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

/*
The server sends this message in response to a ClientHello when it was
able to find an acceptable set of algorithms.
https://tools.ietf.org/html/rfc5246#section-7.4.1.3
*/
type handshakeMessageServerHello struct {
	version protocolVersion
	random  handshakeRandom

	cipherSuite       CipherSuiteID
	compressionMethod byte
	extensions        []extension
}

const handshakeMessageServerHelloVariableWidthStart = 2 + handshakeRandomLength

func (m handshakeMessageServerHello) handshakeType() handshakeType {
	return handshakeTypeServerHello
}

func (m *handshakeMessageServerHello) Marshal() ([]byte, error) {
	out := make([]byte, handshakeMessageServerHelloVariableWidthStart)
	out[0] = m.version.major
	out[1] = m.version.minor
	copy(out[2:], m.random.Marshal())

	out = append(out, 0x00) // SessionID

	suite := make([]byte, 2)
	binary.BigEndian.PutUint16(suite, uint16(m.cipherSuite))
	out = append(out, suite...)

	out = append(out, m.compressionMethod)

	extensions, err := marshalExtensions(m.extensions)
	if err != nil {
		return nil, err
	}

	return append(out, extensions...), nil
}

func (m *handshakeMessageServerHello) Unmarshal(data []byte) error {
	if len(data) < 2+handshakeRandomLength {
		return ErrBufferTooSmall
	}

	m.version.major = data[0]
	m.version.minor = data[1]
	if err := m.random.Unmarshal(data[2:]); err != nil {
		return err
	}

	currOffset := handshakeMessageServerHelloVariableWidthStart
	if len(data) <= currOffset {
		return ErrBufferTooSmall
	}
	currOffset += int(data[currOffset]) + 1 // SessionID
	if len(data) < currOffset+3 {
		return ErrBufferTooSmall
	}

	m.cipherSuite = CipherSuiteID(binary.BigEndian.Uint16(data[currOffset:]))
	currOffset += 2

	m.compressionMethod = data[currOffset]
	currOffset++

	extensions, err := unmarshalExtensions(data[currOffset:])
	if err != nil {
		return err
	}
	m.extensions = extensions

	return nil
}
