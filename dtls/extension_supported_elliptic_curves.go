// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

// https://tools.ietf.org/html/rfc8422#section-5.1.1
type extensionSupportedEllipticCurves struct {
	ellipticCurves []namedCurve
}

func (e extensionSupportedEllipticCurves) extensionValue() extensionValue {
	return extensionSupportedEllipticCurvesValue
}

func (e *extensionSupportedEllipticCurves) Marshal() ([]byte, error) {
	out := make([]byte, 6)

	binary.BigEndian.PutUint16(out, uint16(e.extensionValue()))
	binary.BigEndian.PutUint16(out[2:], uint16(2+(len(e.ellipticCurves)*2))) //nolint:gosec // G115
	binary.BigEndian.PutUint16(out[4:], uint16(len(e.ellipticCurves)*2))    //nolint:gosec // G115

	for _, v := range e.ellipticCurves {
		curve := make([]byte, 2)
		binary.BigEndian.PutUint16(curve, uint16(v))
		out = append(out, curve...)
	}

	return out, nil
}

func (e *extensionSupportedEllipticCurves) Unmarshal(data []byte) error {
	if len(data) <= 6 {
		return ErrBufferTooSmall
	}

	groupCount := int(binary.BigEndian.Uint16(data[4:]) / 2)
	if 6+(groupCount*2) > len(data) {
		return ErrLengthMismatch
	}

	for i := 0; i < groupCount; i++ {
		e.ellipticCurves = append(e.ellipticCurves, namedCurve(binary.BigEndian.Uint16(data[6+(i*2):])))
	}

	return nil
}
