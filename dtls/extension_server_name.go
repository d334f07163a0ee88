// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"encoding/binary"
	"errors"
)

const extensionServerNameTypeDNSHostName = 0

var errServerNameUnknownType = errors.New("unknown server_name type")

// https://tools.ietf.org/html/rfc6066#section-3
type extensionServerName struct {
	serverName string
}

func (e extensionServerName) extensionValue() extensionValue {
	return extensionServerNameValue
}

func (e *extensionServerName) Marshal() ([]byte, error) {
	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out, uint16(e.extensionValue()))
	binary.BigEndian.PutUint16(out[2:], uint16(2+1+2+len(e.serverName))) //nolint:gosec // G115

	serverNameList := make([]byte, 5)
	binary.BigEndian.PutUint16(serverNameList, uint16(1+2+len(e.serverName))) //nolint:gosec // G115
	serverNameList[2] = extensionServerNameTypeDNSHostName
	binary.BigEndian.PutUint16(serverNameList[3:], uint16(len(e.serverName))) //nolint:gosec // G115

	out = append(out, serverNameList...)
	out = append(out, []byte(e.serverName)...)

	return out, nil
}

func (e *extensionServerName) Unmarshal(data []byte) error {
	if len(data) < 9 {
		return ErrBufferTooSmall
	}
	if data[6] != extensionServerNameTypeDNSHostName {
		return errServerNameUnknownType
	}

	nameLen := int(binary.BigEndian.Uint16(data[7:]))
	if 9+nameLen > len(data) {
		return ErrLengthMismatch
	}
	e.serverName = string(data[9 : 9+nameLen])

	return nil
}
