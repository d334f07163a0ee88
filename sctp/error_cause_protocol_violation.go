// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "fmt"

// errorCauseProtocolViolation is sent when a receiver detects a protocol
// violation that does not fit any more specific cause.
type errorCauseProtocolViolation struct {
	errorCauseHeader
	additionalInformation []byte
}

func (e *errorCauseProtocolViolation) marshal() ([]byte, error) {
	e.raw = e.additionalInformation

	return e.errorCauseHeader.marshal()
}

func (e *errorCauseProtocolViolation) unmarshal(raw []byte) error {
	err := e.errorCauseHeader.unmarshal(raw)
	if err != nil {
		return err
	}

	e.additionalInformation = e.raw

	return nil
}

// String makes errorCauseProtocolViolation printable.
func (e *errorCauseProtocolViolation) String() string {
	return fmt.Sprintf("%s: %s", e.errorCauseHeader, e.additionalInformation)
}
