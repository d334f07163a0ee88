// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

const (
	paddingMultiple = 4
)

func getPadding(dataLen int) int {
	return (paddingMultiple - (dataLen % paddingMultiple)) % paddingMultiple
}

func padByte(in []byte, cnt int) []byte {
	if cnt < 0 {
		cnt = 0
	}

	padding := make([]byte, cnt)

	return append(in, padding...)
}

// Serial Number Arithmetic (RFC 1982).
//
// TSNs are 32-bit and SSNs are 16-bit values that wrap. All comparisons
// below are modulo 2^32 (or 2^16) with SERIAL_BITS-1 distance.

func sna32LT(i1, i2 uint32) bool {
	return (i1 < i2 && i2-i1 < 1<<31) || (i1 > i2 && i1-i2 > 1<<31)
}

func sna32LTE(i1, i2 uint32) bool {
	return i1 == i2 || sna32LT(i1, i2)
}

func sna32GT(i1, i2 uint32) bool {
	return (i1 < i2 && i2-i1 > 1<<31) || (i1 > i2 && i1-i2 < 1<<31)
}

func sna32GTE(i1, i2 uint32) bool {
	return i1 == i2 || sna32GT(i1, i2)
}

func sna16LT(i1, i2 uint16) bool {
	return (i1 < i2 && i2-i1 < 1<<15) || (i1 > i2 && i1-i2 > 1<<15)
}

func sna16LTE(i1, i2 uint16) bool {
	return i1 == i2 || sna16LT(i1, i2)
}

func sna16GT(i1, i2 uint16) bool {
	return (i1 < i2 && i2-i1 > 1<<15) || (i1 > i2 && i1-i2 < 1<<15)
}

func min16(a, b uint16) uint16 {
	if a < b {
		return a
	}

	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}

	return b
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}

	return b
}
