// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

// https://tools.ietf.org/html/rfc7627
type extensionUseExtendedMasterSecret struct {
	supported bool
}

func (e extensionUseExtendedMasterSecret) extensionValue() extensionValue {
	return extensionUseExtendedMasterSecretValue
}

func (e *extensionUseExtendedMasterSecret) Marshal() ([]byte, error) {
	out := make([]byte, 4)

	binary.BigEndian.PutUint16(out, uint16(e.extensionValue()))
	binary.BigEndian.PutUint16(out[2:], 0) // length

	return out, nil
}

func (e *extensionUseExtendedMasterSecret) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrBufferTooSmall
	}

	e.supported = true

	return nil
}
