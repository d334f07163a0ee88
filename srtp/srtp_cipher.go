// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package srtp

import "github.com/halcyonlabs/rtcstack/rtp"

// cipher represents a implementation of one
// of the encryption schemes available to SRTP
type srtpCipher interface {
	// authTagRTPLen/authTagRTCPLen return auth key length of the cipher.
	// See the note below.
	AuthTagRTPLen() (int, error)
	AuthTagRTCPLen() (int, error)
	// AEADAuthTagLen returns AEAD auth key length of the cipher.
	// See the note below.
	AEADAuthTagLen() (int, error)
	getRTCPIndex([]byte) uint32

	encryptRTP(dst []byte, header *rtp.Header, payload []byte, roc uint32) ([]byte, error)
	encryptRTCP(dst, decrypted []byte, srtcpIndex uint32, ssrc uint32) ([]byte, error)

	decryptRTP(dst, encrypted []byte, header *rtp.Header, headerLen int, roc uint32) ([]byte, error)
	decryptRTCP(dst, encrypted []byte, srtcpIndex, ssrc uint32) ([]byte, error)
}
