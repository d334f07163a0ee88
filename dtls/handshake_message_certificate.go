// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

/*
The certificate chain, leaf first. An empty chain is legal for a client
declining certificate authentication.
https://tools.ietf.org/html/rfc5246#section-7.4.2
*/
type handshakeMessageCertificate struct {
	certificate [][]byte
}

func (m handshakeMessageCertificate) handshakeType() handshakeType {
	return handshakeTypeCertificate
}

func (m *handshakeMessageCertificate) Marshal() ([]byte, error) {
	out := make([]byte, 3)

	for _, cert := range m.certificate {
		certLen := make([]byte, 3)
		putBigEndianUint24(certLen, uint32(len(cert))) //nolint:gosec // G115
		out = append(out, certLen...)
		out = append(out, cert...)
	}

	putBigEndianUint24(out, uint32(len(out)-3)) //nolint:gosec // G115

	return out, nil
}

func (m *handshakeMessageCertificate) Unmarshal(data []byte) error {
	if len(data) < 3 {
		return ErrBufferTooSmall
	}

	if chainLen := int(bigEndianUint24(data)); len(data) != chainLen+3 {
		return ErrLengthMismatch
	}

	m.certificate = nil
	for offset := 3; offset < len(data); {
		if len(data) < offset+3 {
			return ErrBufferTooSmall
		}
		certLen := int(bigEndianUint24(data[offset:]))
		offset += 3

		if len(data) < offset+certLen {
			return ErrBufferTooSmall
		}
		m.certificate = append(m.certificate, append([]byte{}, data[offset:offset+certLen]...))
		offset += certLen
	}

	return nil
}
