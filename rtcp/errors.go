// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtcp

import "errors"

var (
	errPacketTooShort    = errors.New("packet too short")
	errBadVersion        = errors.New("invalid version")
	errWrongType         = errors.New("wrong packet type")
	errInvalidHeader     = errors.New("invalid header")
	errInvalidTotalLost  = errors.New("invalid total lost count")
	errTooManyReports    = errors.New("too many reports")
	errDeltaExceedLimit  = errors.New("delta exceeds limit")
	errPacketStatusChunk = errors.New("invalid packet status chunk")
)
