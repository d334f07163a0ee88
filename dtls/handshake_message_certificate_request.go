// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

type clientCertificateType byte

const (
	clientCertificateTypeRSASign   clientCertificateType = 1
	clientCertificateTypeECDSASign clientCertificateType = 64
)

/*
A non-anonymous server can optionally request a certificate from
the client, if appropriate for the selected cipher suite.
https://tools.ietf.org/html/rfc5246#section-7.4.4
*/
type handshakeMessageCertificateRequest struct {
	certificateTypes        []clientCertificateType
	signatureHashAlgorithms []signatureHashAlgorithm
}

func (m handshakeMessageCertificateRequest) handshakeType() handshakeType {
	return handshakeTypeCertificateRequest
}

func (m *handshakeMessageCertificateRequest) Marshal() ([]byte, error) {
	out := []byte{byte(len(m.certificateTypes))}
	for _, v := range m.certificateTypes {
		out = append(out, byte(v))
	}

	sigs := make([]byte, 2)
	binary.BigEndian.PutUint16(sigs, uint16(len(m.signatureHashAlgorithms)*2)) //nolint:gosec // G115
	out = append(out, sigs...)
	for _, v := range m.signatureHashAlgorithms {
		out = append(out, byte(v.hash), byte(v.signature))
	}

	// Distinguished Names, empty
	return append(out, 0x00, 0x00), nil
}

func (m *handshakeMessageCertificateRequest) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return ErrBufferTooSmall
	}

	offset := 0
	certificateTypesLength := int(data[0])
	offset++
	if len(data) < offset+certificateTypesLength {
		return ErrBufferTooSmall
	}
	m.certificateTypes = nil
	for i := 0; i < certificateTypesLength; i++ {
		m.certificateTypes = append(m.certificateTypes, clientCertificateType(data[offset+i]))
	}
	offset += certificateTypesLength

	if len(data) < offset+2 {
		return ErrBufferTooSmall
	}
	signatureHashAlgorithmsLength := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+signatureHashAlgorithmsLength {
		return ErrBufferTooSmall
	}
	m.signatureHashAlgorithms = nil
	for i := 0; i+1 < signatureHashAlgorithmsLength; i += 2 {
		m.signatureHashAlgorithms = append(m.signatureHashAlgorithms, signatureHashAlgorithm{
			hash:      hashAlgorithm(data[offset+i]),
			signature: signatureAlgorithm(data[offset+i+1]),
		})
	}

	return nil
}
