// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"errors"
	"fmt"
)

/*
chunkHeartbeat represents an SCTP Chunk of type HEARTBEAT

An endpoint should send this chunk to its peer endpoint to probe the
reachability of a particular destination transport address defined in
the present association.
The parameter field contains the Heartbeat Information, which is a
variable-length opaque data structure understood only by the sender.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|   Type = 4    | Chunk  Flags  |      Heartbeat Length         |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                                                               |
	|            Heartbeat Information TLV (Variable-Length)        |
	|                                                               |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

Defined as a variable-length parameter using the format described
in Section 3.2.1, i.e.:

	Variable Parameters                  Status     Type Value
	-------------------------------------------------------------
	Heartbeat Info                       Mandatory   1
*/
type chunkHeartbeat struct {
	chunkHeader
	params []param
}

// HEARTBEAT chunk errors.
var (
	ErrChunkTypeNotHeartbeat      = errors.New("ChunkType is not of type HEARTBEAT")
	ErrHeartbeatNotLongEnoughInfo = errors.New("heartbeat is not long enough to contain Heartbeat Info")
	ErrParseParamTypeFailed       = errors.New("failed to parse param type")
	ErrHeartbeatParam             = errors.New("heartbeat should only have HEARTBEAT param")
	ErrHeartbeatChunkUnmarshal    = errors.New("failed unmarshalling param in Heartbeat Chunk")
	ErrHeartbeatExtraNonZero      = errors.New("heartbeat has extra non-zero bytes after the Heartbeat Info")
	ErrHeartbeatMarshalNoInfo     = errors.New("heartbeat must carry exactly one Heartbeat Info param")
)

func (h *chunkHeartbeat) unmarshal(raw []byte) error { //nolint:cyclop
	if err := h.chunkHeader.unmarshal(raw); err != nil {
		return err
	}

	if h.typ != ctHeartbeat {
		return fmt.Errorf("%w: actually is %s", ErrChunkTypeNotHeartbeat, h.typ.String())
	}

	if len(h.raw) == 0 {
		h.params = make([]param, 0)

		return nil
	}

	if len(h.raw) < initOptionalVarHeaderLength {
		return fmt.Errorf(
			"%w: %d",
			ErrHeartbeatNotLongEnoughInfo,
			len(raw),
		)
	}

	pType, err := parseParamType(h.raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParseParamTypeFailed, err) //nolint:errorlint
	}
	if pType != heartbeatInfo {
		return fmt.Errorf("%w: instead have %s", ErrHeartbeatParam, pType.String())
	}

	p, err := buildParam(pType, h.raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParseParamTypeFailed, err) //nolint:errorlint
	}
	h.params = append(h.params, p)

	// Whatever follows the single TLV must be zero padding.
	for _, b := range h.raw[p.length():] {
		if b != 0 {
			return ErrHeartbeatExtraNonZero
		}
	}

	return nil
}

func (h *chunkHeartbeat) marshal() ([]byte, error) {
	if len(h.params) != 1 {
		return nil, ErrHeartbeatMarshalNoInfo
	}

	info, ok := h.params[0].(*paramHeartbeatInfo)
	if !ok {
		return nil, fmt.Errorf("%w: instead have %T", ErrHeartbeatParam, h.params[0])
	}

	raw, err := info.marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeartbeatChunkUnmarshal, err) //nolint:errorlint
	}

	h.typ = ctHeartbeat
	h.raw = raw

	return h.chunkHeader.marshal()
}

func (h *chunkHeartbeat) check() (abort bool, err error) {
	return false, nil
}
