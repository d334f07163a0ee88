// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "fmt"

// chunkType is an enum for the SCTP Chunk Type field.
// The upper two bits encode the action to take on an unknown chunk
// type (RFC 4960 section 3.2).
type chunkType uint8

// List of known chunkType enums.
const (
	ctPayloadData      chunkType = 0
	ctInit             chunkType = 1
	ctInitAck          chunkType = 2
	ctSack             chunkType = 3
	ctHeartbeat        chunkType = 4
	ctHeartbeatAck     chunkType = 5
	ctAbort            chunkType = 6
	ctShutdown         chunkType = 7
	ctShutdownAck      chunkType = 8
	ctError            chunkType = 9
	ctCookieEcho       chunkType = 10
	ctCookieAck        chunkType = 11
	ctECNE             chunkType = 12
	ctCWR              chunkType = 13
	ctShutdownComplete chunkType = 14
	ctReconfig         chunkType = 130
	ctForwardTSN       chunkType = 192
)

// unrecognizedAction tells the receiver what to do with a chunk whose
// type it does not implement, per RFC 4960 section 3.2 table.
type unrecognizedAction byte

const (
	unrecognizedActionStop          unrecognizedAction = 0
	unrecognizedActionStopAndReport unrecognizedAction = 1
	unrecognizedActionSkip          unrecognizedAction = 2
	unrecognizedActionSkipAndReport unrecognizedAction = 3
)

func (c chunkType) unrecognizedAction() unrecognizedAction {
	return unrecognizedAction(byte(c) >> 6)
}

func (c chunkType) String() string {
	switch c {
	case ctPayloadData:
		return "DATA"
	case ctInit:
		return "INIT"
	case ctInitAck:
		return "INIT-ACK"
	case ctSack:
		return "SACK"
	case ctHeartbeat:
		return "HEARTBEAT"
	case ctHeartbeatAck:
		return "HEARTBEAT-ACK"
	case ctAbort:
		return "ABORT"
	case ctShutdown:
		return "SHUTDOWN"
	case ctShutdownAck:
		return "SHUTDOWN-ACK"
	case ctError:
		return "ERROR"
	case ctCookieEcho:
		return "COOKIE-ECHO"
	case ctCookieAck:
		return "COOKIE-ACK"
	case ctECNE:
		return "ECNE"
	case ctCWR:
		return "CWR"
	case ctShutdownComplete:
		return "SHUTDOWN-COMPLETE"
	case ctReconfig:
		return "RECONFIG"
	case ctForwardTSN:
		return "FORWARD-TSN"
	default:
		return fmt.Sprintf("Unknown ChunkType: %d", c)
	}
}
