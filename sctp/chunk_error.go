// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"errors"
	"fmt"
)

/*
chunkError represents an SCTP Chunk of type ERROR

An endpoint sends this chunk to its peer endpoint to notify it of
certain error conditions.  It contains one or more error causes.  An
Operation Error is not considered fatal in and of itself, but may be
used with an ABORT chunk to report a fatal condition.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|   Type = 9    | Chunk  Flags  |           Length              |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	\                                                               \
	/                    one or more Error Causes                   /
	\                                                               \
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type chunkError struct {
	chunkHeader
	errorCauses []errorCause
}

// ERROR chunk errors.
var (
	ErrChunkTypeNotCtError   = errors.New("ChunkType is not of type ctError")
	ErrBuildErrorChunkFailed = errors.New("failed build Error Chunk")
)

func (e *chunkError) unmarshal(raw []byte) error {
	if err := e.chunkHeader.unmarshal(raw); err != nil {
		return err
	}

	if e.typ != ctError {
		return fmt.Errorf("%w: actually is %s", ErrChunkTypeNotCtError, e.typ.String())
	}

	offset := 0
	for {
		if len(e.raw)-offset < 4 {
			break
		}

		ec, err := buildErrorCause(e.raw[offset:])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBuildErrorChunkFailed, err) //nolint:errorlint
		}

		offset += int(ec.length()) + getPadding(int(ec.length()))
		e.errorCauses = append(e.errorCauses, ec)
	}

	return nil
}

func (e *chunkError) marshal() ([]byte, error) {
	e.typ = ctError
	e.flags = 0x00
	e.raw = []byte{}
	for _, ec := range e.errorCauses {
		raw, err := ec.marshal()
		if err != nil {
			return nil, err
		}
		e.raw = padByte(e.raw, getPadding(len(e.raw)))
		e.raw = append(e.raw, raw...)
	}

	return e.chunkHeader.marshal()
}

func (e *chunkError) check() (abort bool, err error) {
	return false, nil
}

// String makes chunkError printable.
func (e *chunkError) String() string {
	res := e.chunkHeader.String()

	for _, cause := range e.errorCauses {
		res += fmt.Sprintf("\n - %s", cause)
	}

	return res
}
