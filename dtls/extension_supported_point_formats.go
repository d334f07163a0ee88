// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

type ellipticCurvePointFormat byte

const ellipticCurvePointFormatUncompressed ellipticCurvePointFormat = 0

// https://tools.ietf.org/html/rfc4492#section-5.1.2
type extensionSupportedPointFormats struct {
	pointFormats []ellipticCurvePointFormat
}

func (e extensionSupportedPointFormats) extensionValue() extensionValue {
	return extensionSupportedPointFormatsValue
}

func (e *extensionSupportedPointFormats) Marshal() ([]byte, error) {
	out := make([]byte, 5)

	binary.BigEndian.PutUint16(out, uint16(e.extensionValue()))
	binary.BigEndian.PutUint16(out[2:], uint16(1+len(e.pointFormats))) //nolint:gosec // G115
	out[4] = byte(len(e.pointFormats))

	for _, v := range e.pointFormats {
		out = append(out, byte(v))
	}

	return out, nil
}

func (e *extensionSupportedPointFormats) Unmarshal(data []byte) error {
	if len(data) <= 5 {
		return ErrBufferTooSmall
	}

	pointFormatCount := int(data[4])
	if 5+pointFormatCount > len(data) {
		return ErrLengthMismatch
	}

	for i := 0; i < pointFormatCount; i++ {
		e.pointFormats = append(e.pointFormats, ellipticCurvePointFormat(data[5+i]))
	}

	return nil
}
