// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtp

// Depacketizer depacketizes a RTP payload, removing any RTP specific data
// from the payload.
type Depacketizer interface {
	Unmarshal(packet []byte) ([]byte, error)

	// IsPartitionHead checks whether if this is a head of the RTP packet
	// partition.
	IsPartitionHead(payload []byte) bool

	// IsPartitionTail checks whether if this is a tail of the RTP packet
	// partition.
	IsPartitionTail(marker bool, payload []byte) bool
}
