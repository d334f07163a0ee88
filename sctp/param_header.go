// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

/*
paramHeader represents the parameter header used by all INIT/INIT ACK
optional parameters and by RE-CONFIG parameters (RFC 4960 section 3.2.1).

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|          Parameter Type       |       Parameter Length        |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                       Parameter Value                         |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type paramHeader struct {
	typ                paramType
	len                int
	unrecognizedAction paramHeaderUnrecognizedAction
	raw                []byte
}

// paramHeaderUnrecognizedAction is the action a receiver takes on an
// unrecognized parameter, encoded in the two high bits of the type.
type paramHeaderUnrecognizedAction byte

const (
	paramHeaderUnrecognizedActionStop          paramHeaderUnrecognizedAction = 0b00000000
	paramHeaderUnrecognizedActionStopAndReport paramHeaderUnrecognizedAction = 0b01000000
	paramHeaderUnrecognizedActionSkip          paramHeaderUnrecognizedAction = 0b10000000
	paramHeaderUnrecognizedActionSkipAndReport paramHeaderUnrecognizedAction = 0b11000000
)

const (
	paramHeaderLength = 4
)

// Parameter header parse errors.
var (
	ErrParamHeaderTooShort                  = errors.New("param header too short")
	ErrParamHeaderSelfReportedLengthShorter = errors.New("param self reported length is shorter than header length")
	ErrParamHeaderSelfReportedLengthLonger  = errors.New("param self reported length is longer than actual length")
	ErrParamHeaderParseFailed               = errors.New("failed to parse param type")
)

func (p *paramHeader) marshal() ([]byte, error) {
	paramLengthPlusHeader := paramHeaderLength + len(p.raw)

	rawParam := make([]byte, paramLengthPlusHeader)
	binary.BigEndian.PutUint16(rawParam[0:], uint16(p.typ))               //nolint:gosec // G115
	binary.BigEndian.PutUint16(rawParam[2:], uint16(paramLengthPlusHeader)) //nolint:gosec // G115
	copy(rawParam[paramHeaderLength:], p.raw)

	return rawParam, nil
}

func (p *paramHeader) unmarshal(raw []byte) error {
	if len(raw) < paramHeaderLength {
		return ErrParamHeaderTooShort
	}

	paramLengthPlusHeader := binary.BigEndian.Uint16(raw[2:])
	if int(paramLengthPlusHeader) < paramHeaderLength {
		return fmt.Errorf("%w: param self reported length (%d) shorter than header length (%d)",
			ErrParamHeaderSelfReportedLengthShorter, int(paramLengthPlusHeader), paramHeaderLength)
	}
	if len(raw) < int(paramLengthPlusHeader) {
		return fmt.Errorf("%w: param length (%d) shorter than its self reported length (%d)",
			ErrParamHeaderSelfReportedLengthLonger, len(raw), int(paramLengthPlusHeader))
	}

	typ, err := parseParamType(raw[0:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParamHeaderParseFailed, err) //nolint:errorlint
	}

	p.typ = typ
	p.unrecognizedAction = paramHeaderUnrecognizedAction(raw[0] & 0xc0)
	p.raw = raw[paramHeaderLength:paramLengthPlusHeader]
	p.len = int(paramLengthPlusHeader)

	return nil
}

func (p *paramHeader) length() int {
	return p.len
}

// String makes paramHeader printable.
func (p paramHeader) String() string {
	return fmt.Sprintf("%s (%d): %s", p.typ, p.len, hex.Dump(p.raw))
}
