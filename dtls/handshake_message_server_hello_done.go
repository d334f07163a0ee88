// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

// https://tools.ietf.org/html/rfc5246#section-7.4.5
type handshakeMessageServerHelloDone struct{}

func (m handshakeMessageServerHelloDone) handshakeType() handshakeType {
	return handshakeTypeServerHelloDone
}

func (m *handshakeMessageServerHelloDone) Marshal() ([]byte, error) {
	return []byte{}, nil
}

func (m *handshakeMessageServerHelloDone) Unmarshal([]byte) error {
	return nil
}
