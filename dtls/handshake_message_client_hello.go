// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

/*
When a client first connects to a server it is required to send
the client hello as its first message.  The client can also send a
client hello in response to a hello request or on its own
initiative in order to renegotiate the security parameters in an
existing connection.
*/
type handshakeMessageClientHello struct {
	version protocolVersion
	random  handshakeRandom
	cookie  []byte

	cipherSuites       []CipherSuiteID
	compressionMethods []byte
	extensions         []extension
}

const handshakeMessageClientHelloVariableWidthStart = 34

func (m handshakeMessageClientHello) handshakeType() handshakeType {
	return handshakeTypeClientHello
}

func (m *handshakeMessageClientHello) Marshal() ([]byte, error) {
	if len(m.cookie) > 255 {
		return nil, ErrCookieTooLong
	}

	out := make([]byte, handshakeMessageClientHelloVariableWidthStart)
	out[0] = m.version.major
	out[1] = m.version.minor
	copy(out[2:], m.random.Marshal())

	out = append(out, 0x00) // SessionID

	out = append(out, byte(len(m.cookie)))
	out = append(out, m.cookie...)

	suites := make([]byte, 2)
	binary.BigEndian.PutUint16(suites, uint16(len(m.cipherSuites)*2)) //nolint:gosec // G115
	for _, id := range m.cipherSuites {
		suite := make([]byte, 2)
		binary.BigEndian.PutUint16(suite, uint16(id))
		suites = append(suites, suite...)
	}
	out = append(out, suites...)

	out = append(out, byte(len(m.compressionMethods)))
	out = append(out, m.compressionMethods...)

	extensions, err := marshalExtensions(m.extensions)
	if err != nil {
		return nil, err
	}

	return append(out, extensions...), nil
}

func (m *handshakeMessageClientHello) Unmarshal(data []byte) error { //nolint:cyclop
	if len(data) < 2+handshakeRandomLength {
		return ErrBufferTooSmall
	}

	m.version.major = data[0]
	m.version.minor = data[1]
	if err := m.random.Unmarshal(data[2:]); err != nil {
		return err
	}

	// Session ID is transmitted but ignored
	currOffset := handshakeMessageClientHelloVariableWidthStart
	if len(data) <= currOffset {
		return ErrBufferTooSmall
	}
	currOffset += int(data[currOffset]) + 1

	if len(data) <= currOffset {
		return ErrBufferTooSmall
	}
	cookieLen := int(data[currOffset])
	currOffset++
	if len(data) < currOffset+cookieLen {
		return ErrBufferTooSmall
	}
	m.cookie = append([]byte{}, data[currOffset:currOffset+cookieLen]...)
	currOffset += cookieLen

	if len(data) < currOffset+2 {
		return ErrBufferTooSmall
	}
	cipherSuitesLen := int(binary.BigEndian.Uint16(data[currOffset:]))
	currOffset += 2
	if len(data) < currOffset+cipherSuitesLen {
		return ErrBufferTooSmall
	}
	m.cipherSuites = nil
	for i := 0; i+1 < cipherSuitesLen; i += 2 {
		m.cipherSuites = append(m.cipherSuites, CipherSuiteID(binary.BigEndian.Uint16(data[currOffset+i:])))
	}
	currOffset += cipherSuitesLen

	if len(data) <= currOffset {
		return ErrBufferTooSmall
	}
	compressionMethodsLen := int(data[currOffset])
	currOffset++
	if len(data) < currOffset+compressionMethodsLen {
		return ErrBufferTooSmall
	}
	m.compressionMethods = append([]byte{}, data[currOffset:currOffset+compressionMethodsLen]...)
	currOffset += compressionMethodsLen

	extensions, err := unmarshalExtensions(data[currOffset:])
	if err != nil {
		return err
	}
	m.extensions = extensions

	return nil
}
