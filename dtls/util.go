// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

// Parse a big endian uint24.
func bigEndianUint24(raw []byte) uint32 {
	if len(raw) < 3 {
		return 0
	}

	return uint32(raw[0])<<16 | uint32(raw[1])<<8 | uint32(raw[2])
}

func putBigEndianUint24(out []byte, in uint32) {
	out[0] = byte(in >> 16)
	out[1] = byte(in >> 8)
	out[2] = byte(in)
}

func putBigEndianUint48(out []byte, in uint64) {
	out[0] = byte(in >> 40)
	out[1] = byte(in >> 32)
	out[2] = byte(in >> 24)
	out[3] = byte(in >> 16)
	out[4] = byte(in >> 8)
	out[5] = byte(in)
}

func bigEndianUint48(raw []byte) uint64 {
	if len(raw) < 6 {
		return 0
	}

	return uint64(raw[0])<<40 | uint64(raw[1])<<32 | uint64(raw[2])<<24 |
		uint64(raw[3])<<16 | uint64(raw[4])<<8 | uint64(raw[5])
}
