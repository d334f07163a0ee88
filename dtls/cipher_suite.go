// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"fmt"
	"hash"
)

// CipherSuiteID is an ID for our supported CipherSuites.
type CipherSuiteID uint16

// Supported Cipher Suites.
const (
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256 CipherSuiteID = 0xc02b //nolint:revive,stylecheck
	TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256   CipherSuiteID = 0xc02f //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384 CipherSuiteID = 0xc02c //nolint:revive,stylecheck
	TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384   CipherSuiteID = 0xc030 //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA    CipherSuiteID = 0xc009 //nolint:revive,stylecheck
	TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA      CipherSuiteID = 0xc013 //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256 CipherSuiteID = 0xc023 //nolint:revive,stylecheck
	TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256   CipherSuiteID = 0xc027 //nolint:revive,stylecheck
	TLS_PSK_WITH_AES_128_GCM_SHA256         CipherSuiteID = 0x00a8 //nolint:revive,stylecheck
	TLS_PSK_WITH_AES_128_CBC_SHA256         CipherSuiteID = 0x00ae //nolint:revive,stylecheck
)

func (c CipherSuiteID) String() string {
	if cs := cipherSuiteForID(c); cs != nil {
		return cs.String()
	}

	return fmt.Sprintf("unknown(%v)", uint16(c))
}

// cipherSuite is a combination of key agreement, record protection and
// PRF hash negotiated for one connection.
type cipherSuite interface {
	String() string
	ID() CipherSuiteID
	certificateType() clientCertificateType
	hashFunc() func() hash.Hash
	isPSK() bool
	isInitialized() bool

	// Generate the internal encryption state from the master secret.
	init(masterSecret, clientRandom, serverRandom []byte, isClient bool) error

	encrypt(pkt *recordLayer, raw []byte) ([]byte, error)
	decrypt(h *recordLayerHeader, in []byte) ([]byte, error)
}

func cipherSuiteForID(id CipherSuiteID) cipherSuite { //nolint:cyclop
	switch id {
	case TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:
		return newCipherSuiteAESGCM(id, clientCertificateTypeECDSASign, false, 16, hashAlgorithmSHA256)
	case TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256:
		return newCipherSuiteAESGCM(id, clientCertificateTypeRSASign, false, 16, hashAlgorithmSHA256)
	case TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384:
		return newCipherSuiteAESGCM(id, clientCertificateTypeECDSASign, false, 32, hashAlgorithmSHA384)
	case TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384:
		return newCipherSuiteAESGCM(id, clientCertificateTypeRSASign, false, 32, hashAlgorithmSHA384)
	case TLS_PSK_WITH_AES_128_GCM_SHA256:
		return newCipherSuiteAESGCM(id, 0, true, 16, hashAlgorithmSHA256)
	case TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA:
		return newCipherSuiteAESCBC(id, clientCertificateTypeECDSASign, false, hashAlgorithmSHA1)
	case TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA:
		return newCipherSuiteAESCBC(id, clientCertificateTypeRSASign, false, hashAlgorithmSHA1)
	case TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256:
		return newCipherSuiteAESCBC(id, clientCertificateTypeECDSASign, false, hashAlgorithmSHA256)
	case TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256:
		return newCipherSuiteAESCBC(id, clientCertificateTypeRSASign, false, hashAlgorithmSHA256)
	case TLS_PSK_WITH_AES_128_CBC_SHA256:
		return newCipherSuiteAESCBC(id, 0, true, hashAlgorithmSHA256)
	default:
		return nil
	}
}

// defaultCipherSuites is the order we offer suites when the config does
// not narrow them down.
func defaultCipherSuites() []cipherSuite {
	return []cipherSuite{
		cipherSuiteForID(TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256),
		cipherSuiteForID(TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256),
		cipherSuiteForID(TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384),
		cipherSuiteForID(TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384),
		cipherSuiteForID(TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256),
		cipherSuiteForID(TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256),
		cipherSuiteForID(TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA),
		cipherSuiteForID(TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA),
	}
}

func defaultPSKCipherSuites() []cipherSuite {
	return []cipherSuite{
		cipherSuiteForID(TLS_PSK_WITH_AES_128_GCM_SHA256),
		cipherSuiteForID(TLS_PSK_WITH_AES_128_CBC_SHA256),
	}
}

// parseCipherSuites narrows the offered suites to the config selection and
// splits PSK from certificate suites depending on the credentials provided.
func parseCipherSuites(userSelected []CipherSuiteID, includeCertificateSuites, includePSKSuites bool) ([]cipherSuite, error) {
	var candidates []cipherSuite
	if len(userSelected) != 0 {
		for _, id := range userSelected {
			cs := cipherSuiteForID(id)
			if cs == nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCipherSuite, id)
			}
			candidates = append(candidates, cs)
		}
	} else {
		candidates = append(defaultCipherSuites(), defaultPSKCipherSuites()...)
	}

	out := []cipherSuite{}
	for _, cs := range candidates {
		if (cs.isPSK() && includePSKSuites) || (!cs.isPSK() && includeCertificateSuites) {
			out = append(out, cs)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSupportedCipherSuite
	}

	return out, nil
}
