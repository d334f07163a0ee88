// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

// https://tools.ietf.org/html/rfc5246#section-7.4.9
type handshakeMessageFinished struct {
	verifyData []byte
}

func (m handshakeMessageFinished) handshakeType() handshakeType {
	return handshakeTypeFinished
}

func (m *handshakeMessageFinished) Marshal() ([]byte, error) {
	return append([]byte{}, m.verifyData...), nil
}

func (m *handshakeMessageFinished) Unmarshal(data []byte) error {
	m.verifyData = append([]byte{}, data...)

	return nil
}
