// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package srtp

import (
	"crypto/aes"
	"encoding/binary"
)

// Key derivation labels, RFC 3711 §4.3.1 and §4.3.2.
const (
	labelSRTPEncryption         = 0x00
	labelSRTPAuthenticationTag  = 0x01
	labelSRTPSalt               = 0x02
	labelSRTCPEncryption        = 0x03
	labelSRTCPAuthenticationTag = 0x04
	labelSRTCPSalt              = 0x05
)

// aesCmKeyDerivation derives a session key from the master key and salt
// with the AES-CM PRF, RFC 3711 appendix B.3. The label selects which of
// the session keys is produced.
func aesCmKeyDerivation(label byte, masterKey, masterSalt []byte, indexOverKdr int, outLen int) ([]byte, error) {
	if indexOverKdr != 0 {
		// The exporter spec requires a KDR of 0, so this is never used (yet)
		return nil, errNonZeroKdrNotSupported
	}

	// The input block for AES-CM is generated by exclusive-oring the master salt with
	// the concatenation of the encryption key label 0x00 with (index DIV kdr),
	// - padded to the length of the IV with zeros on the right.
	prfIn := make([]byte, aes.BlockSize)
	copy(prfIn, masterSalt)

	prfIn[7] ^= label

	blockCipher, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}

	out := make([]byte, ((outLen+aes.BlockSize-1)/aes.BlockSize)*aes.BlockSize)
	var i uint16
	for n := 0; n < outLen; n += aes.BlockSize {
		binary.BigEndian.PutUint16(prfIn[aes.BlockSize-2:], i)
		blockCipher.Encrypt(out[n:n+aes.BlockSize], prfIn)
		i++
	}

	return out[:outLen], nil
}

// generateCounter creates the AES-CM counter block for one RTP packet,
// RFC 3711 §4.1.1:
//
//	IV = (salt*2^16) XOR (SSRC*2^64) XOR (i*2^16)
func generateCounter(sequenceNumber uint16, rolloverCounter uint32, ssrc uint32, sessionSalt []byte) [16]byte {
	var counter [16]byte

	binary.BigEndian.PutUint32(counter[4:], ssrc)
	binary.BigEndian.PutUint32(counter[8:], rolloverCounter)
	binary.BigEndian.PutUint32(counter[12:], uint32(sequenceNumber)<<16)

	for i := range sessionSalt {
		counter[i] ^= sessionSalt[i]
	}

	return counter
}
