// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "encoding/binary"

type extensionValue uint16

const (
	extensionServerNameValue                   extensionValue = 0
	extensionSupportedEllipticCurvesValue      extensionValue = 10
	extensionSupportedPointFormatsValue        extensionValue = 11
	extensionSupportedSignatureAlgorithmsValue extensionValue = 13
	extensionUseSRTPValue                      extensionValue = 14
	extensionUseExtendedMasterSecretValue      extensionValue = 23
)

type extension interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error

	extensionValue() extensionValue
}

// marshalExtensions prepends the two byte total length and concatenates
// every extension body.
func marshalExtensions(e []extension) ([]byte, error) {
	extensions := []byte{}
	for _, e := range e {
		raw, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		extensions = append(extensions, raw...)
	}

	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, uint16(len(extensions))) //nolint:gosec // G115

	return append(out, extensions...), nil
}

// unmarshalExtensions splits the buffer back into the extensions we
// understand. Unknown extensions are skipped, not rejected.
func unmarshalExtensions(buf []byte) ([]extension, error) {
	switch {
	case len(buf) == 0:
		return []extension{}, nil
	case len(buf) < 2:
		return nil, ErrBufferTooSmall
	}

	declaredLen := binary.BigEndian.Uint16(buf)
	if len(buf)-2 != int(declaredLen) {
		return nil, ErrLengthMismatch
	}

	extensions := []extension{}
	unmarshalAndAppend := func(data []byte, e extension) error {
		if err := e.Unmarshal(data); err != nil {
			return err
		}
		extensions = append(extensions, e)

		return nil
	}

	for offset := 2; offset < len(buf); {
		if len(buf) < offset+4 {
			return nil, ErrBufferTooSmall
		}
		extLen := int(binary.BigEndian.Uint16(buf[offset+2:]))
		if len(buf) < offset+4+extLen {
			return nil, ErrBufferTooSmall
		}

		var err error
		data := buf[offset : offset+4+extLen]
		switch extensionValue(binary.BigEndian.Uint16(buf[offset:])) {
		case extensionServerNameValue:
			err = unmarshalAndAppend(data, &extensionServerName{})
		case extensionSupportedEllipticCurvesValue:
			err = unmarshalAndAppend(data, &extensionSupportedEllipticCurves{})
		case extensionUseSRTPValue:
			err = unmarshalAndAppend(data, &extensionUseSRTP{})
		case extensionUseExtendedMasterSecretValue:
			err = unmarshalAndAppend(data, &extensionUseExtendedMasterSecret{})
		case extensionSupportedSignatureAlgorithmsValue:
			err = unmarshalAndAppend(data, &extensionSupportedSignatureAlgorithms{})
		case extensionSupportedPointFormatsValue:
			err = unmarshalAndAppend(data, &extensionSupportedPointFormats{})
		default:
		}
		if err != nil {
			return nil, err
		}

		offset += 4 + extLen
	}

	return extensions, nil
}
