// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "fmt"

// errorCauseUnrecognizedChunkType is returned to the peer when it sent a
// chunk type this endpoint does not implement and the chunk type's upper
// bits request a report. The value holds the unrecognized chunk.
type errorCauseUnrecognizedChunkType struct {
	errorCauseHeader
	unrecognizedChunk []byte
}

func (e *errorCauseUnrecognizedChunkType) marshal() ([]byte, error) {
	e.code = unrecognizedChunkType
	e.raw = e.unrecognizedChunk

	return e.errorCauseHeader.marshal()
}

func (e *errorCauseUnrecognizedChunkType) unmarshal(raw []byte) error {
	err := e.errorCauseHeader.unmarshal(raw)
	if err != nil {
		return err
	}

	e.unrecognizedChunk = e.raw

	return nil
}

// String makes errorCauseUnrecognizedChunkType printable.
func (e *errorCauseUnrecognizedChunkType) String() string {
	return fmt.Sprintf("%s: %s", e.errorCauseHeader, e.unrecognizedChunk)
}
