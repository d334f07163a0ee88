// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

// https://tools.ietf.org/html/rfc5764#section-4.1.1
type extensionUseSRTP struct {
	protectionProfiles []SRTPProtectionProfile
}

func (e extensionUseSRTP) extensionValue() extensionValue {
	return extensionUseSRTPValue
}

func (e *extensionUseSRTP) Marshal() ([]byte, error) {
	out := make([]byte, 6)

	binary.BigEndian.PutUint16(out, uint16(e.extensionValue()))
	// body = profiles + one byte empty MKI
	binary.BigEndian.PutUint16(out[2:], uint16(2+(len(e.protectionProfiles)*2)+1)) //nolint:gosec // G115
	binary.BigEndian.PutUint16(out[4:], uint16(len(e.protectionProfiles)*2))       //nolint:gosec // G115

	for _, v := range e.protectionProfiles {
		profile := make([]byte, 2)
		binary.BigEndian.PutUint16(profile, uint16(v))
		out = append(out, profile...)
	}

	out = append(out, 0x00) // MKI length

	return out, nil
}

func (e *extensionUseSRTP) Unmarshal(data []byte) error {
	if len(data) <= 6 {
		return ErrBufferTooSmall
	}

	profileCount := int(binary.BigEndian.Uint16(data[4:]) / 2)
	if 6+(profileCount*2) > len(data) {
		return ErrLengthMismatch
	}

	for i := 0; i < profileCount; i++ {
		e.protectionProfiles = append(e.protectionProfiles,
			SRTPProtectionProfile(binary.BigEndian.Uint16(data[6+(i*2):])))
	}

	return nil
}
