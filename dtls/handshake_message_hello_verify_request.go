// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

/*
The server sends HelloVerifyRequest in response to the first ClientHello
to force the client to prove it owns its source address before the server
commits any state.

	struct {
	  ProtocolVersion server_version;
	  opaque cookie<0..2^8-1>;
	} HelloVerifyRequest;

https://tools.ietf.org/html/rfc6347#section-4.2.1
*/
type handshakeMessageHelloVerifyRequest struct {
	version protocolVersion
	cookie  []byte
}

func (m handshakeMessageHelloVerifyRequest) handshakeType() handshakeType {
	return handshakeTypeHelloVerifyRequest
}

func (m *handshakeMessageHelloVerifyRequest) Marshal() ([]byte, error) {
	if len(m.cookie) > 255 {
		return nil, ErrCookieTooLong
	}

	out := make([]byte, 3+len(m.cookie))
	out[0] = m.version.major
	out[1] = m.version.minor
	out[2] = byte(len(m.cookie))
	copy(out[3:], m.cookie)

	return out, nil
}

func (m *handshakeMessageHelloVerifyRequest) Unmarshal(data []byte) error {
	if len(data) < 3 {
		return ErrBufferTooSmall
	}

	m.version.major = data[0]
	m.version.minor = data[1]
	cookieLength := int(data[2])
	if len(data) < 3+cookieLength {
		return ErrBufferTooSmall
	}
	m.cookie = append([]byte{}, data[3:3+cookieLength]...)

	return nil
}
