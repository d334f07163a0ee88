// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// https://tools.ietf.org/html/rfc5246#section-7.4.1.4.1
type hashAlgorithm uint16

const (
	hashAlgorithmSHA1   hashAlgorithm = 2
	hashAlgorithmSHA256 hashAlgorithm = 4
	hashAlgorithmSHA384 hashAlgorithm = 5
	hashAlgorithmSHA512 hashAlgorithm = 6
)

func (h hashAlgorithm) digest(b []byte) []byte {
	switch h {
	case hashAlgorithmSHA256:
		hashed := sha256.Sum256(b)

		return hashed[:]
	case hashAlgorithmSHA384:
		hashed := sha512.Sum384(b)

		return hashed[:]
	case hashAlgorithmSHA512:
		hashed := sha512.Sum512(b)

		return hashed[:]
	default:
		return nil
	}
}

func (h hashAlgorithm) cryptoHash() crypto.Hash {
	switch h {
	case hashAlgorithmSHA1:
		return crypto.SHA1
	case hashAlgorithmSHA256:
		return crypto.SHA256
	case hashAlgorithmSHA384:
		return crypto.SHA384
	case hashAlgorithmSHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

type signatureAlgorithm uint16

const (
	signatureAlgorithmRSA   signatureAlgorithm = 1
	signatureAlgorithmECDSA signatureAlgorithm = 3
)

// signatureHashAlgorithm is a pairing offered in ClientHello and
// CertificateRequest, and stamped onto ServerKeyExchange/CertificateVerify.
type signatureHashAlgorithm struct {
	hash      hashAlgorithm
	signature signatureAlgorithm
}

func defaultSignatureSchemes() []signatureHashAlgorithm {
	return []signatureHashAlgorithm{
		{hashAlgorithmSHA256, signatureAlgorithmECDSA},
		{hashAlgorithmSHA384, signatureAlgorithmECDSA},
		{hashAlgorithmSHA512, signatureAlgorithmECDSA},
		{hashAlgorithmSHA256, signatureAlgorithmRSA},
		{hashAlgorithmSHA384, signatureAlgorithmRSA},
		{hashAlgorithmSHA512, signatureAlgorithmRSA},
	}
}

// newHashFunc gives a fresh running hash for the PRF of the negotiated suite.
func newHashFunc(h hashAlgorithm) func() hash.Hash {
	switch h {
	case hashAlgorithmSHA384:
		return sha512.New384
	default:
		return sha256.New
	}
}
