// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

// https://tools.ietf.org/html/rfc5246#section-7.4.1.4.1
type extensionSupportedSignatureAlgorithms struct {
	signatureHashAlgorithms []signatureHashAlgorithm
}

func (e extensionSupportedSignatureAlgorithms) extensionValue() extensionValue {
	return extensionSupportedSignatureAlgorithmsValue
}

func (e *extensionSupportedSignatureAlgorithms) Marshal() ([]byte, error) {
	out := make([]byte, 6)

	binary.BigEndian.PutUint16(out, uint16(e.extensionValue()))
	binary.BigEndian.PutUint16(out[2:], uint16(2+(len(e.signatureHashAlgorithms)*2))) //nolint:gosec // G115
	binary.BigEndian.PutUint16(out[4:], uint16(len(e.signatureHashAlgorithms)*2))     //nolint:gosec // G115
	for _, v := range e.signatureHashAlgorithms {
		sig := make([]byte, 2)
		sig[0] = byte(v.hash)
		sig[1] = byte(v.signature)
		out = append(out, sig...)
	}

	return out, nil
}

func (e *extensionSupportedSignatureAlgorithms) Unmarshal(data []byte) error {
	if len(data) <= 6 {
		return ErrBufferTooSmall
	}

	algCount := int(binary.BigEndian.Uint16(data[4:]) / 2)
	if 6+(algCount*2) > len(data) {
		return ErrLengthMismatch
	}

	for i := 0; i < algCount; i++ {
		e.signatureHashAlgorithms = append(e.signatureHashAlgorithms, signatureHashAlgorithm{
			hash:      hashAlgorithm(data[6+(i*2)]),
			signature: signatureAlgorithm(data[7+(i*2)]),
		})
	}

	return nil
}
