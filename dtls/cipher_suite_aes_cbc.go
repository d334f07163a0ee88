// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/sha1" //nolint:gosec // TLS 1.2 CBC suites mandate HMAC-SHA1
	"crypto/sha256"
	"hash"
	"sync"
)

type cipherSuiteAESCBC struct {
	id       CipherSuiteID
	certType clientCertificateType
	psk      bool
	macHash  hashAlgorithm

	cbc   *cryptoCBC
	mutex sync.RWMutex
}

func newCipherSuiteAESCBC(id CipherSuiteID, certType clientCertificateType,
	psk bool, macHash hashAlgorithm,
) *cipherSuiteAESCBC {
	return &cipherSuiteAESCBC{id: id, certType: certType, psk: psk, macHash: macHash}
}

func (c *cipherSuiteAESCBC) ID() CipherSuiteID {
	return c.id
}

func (c *cipherSuiteAESCBC) String() string {
	switch c.id {
	case TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA:
		return "TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA"
	case TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA:
		return "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA"
	case TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256:
		return "TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256"
	case TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256:
		return "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256"
	case TLS_PSK_WITH_AES_128_CBC_SHA256:
		return "TLS_PSK_WITH_AES_128_CBC_SHA256"
	default:
		return "unknown AES-CBC suite"
	}
}

func (c *cipherSuiteAESCBC) certificateType() clientCertificateType {
	return c.certType
}

// hashFunc is the PRF hash, always SHA-256 for the CBC suites we carry.
func (c *cipherSuiteAESCBC) hashFunc() func() hash.Hash {
	return sha256.New
}

func (c *cipherSuiteAESCBC) macFunc() func() hash.Hash {
	if c.macHash == hashAlgorithmSHA1 {
		return sha1.New
	}

	return sha256.New
}

func (c *cipherSuiteAESCBC) isPSK() bool {
	return c.psk
}

func (c *cipherSuiteAESCBC) isInitialized() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.cbc != nil
}

func (c *cipherSuiteAESCBC) init(masterSecret, clientRandom, serverRandom []byte, isClient bool) error {
	const (
		prfKeyLen = 16
		prfIvLen  = 16
	)
	prfMacLen := c.macFunc()().Size()

	keys, err := prfEncryptionKeys(masterSecret, clientRandom, serverRandom,
		prfMacLen, prfKeyLen, prfIvLen, c.hashFunc())
	if err != nil {
		return err
	}

	var cbc *cryptoCBC
	if isClient {
		cbc, err = newCryptoCBC(
			keys.clientWriteKey, keys.clientMACKey,
			keys.serverWriteKey, keys.serverMACKey,
			c.macFunc())
	} else {
		cbc, err = newCryptoCBC(
			keys.serverWriteKey, keys.serverMACKey,
			keys.clientWriteKey, keys.clientMACKey,
			c.macFunc())
	}
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.cbc = cbc
	c.mutex.Unlock()

	return nil
}

func (c *cipherSuiteAESCBC) encrypt(pkt *recordLayer, raw []byte) ([]byte, error) {
	c.mutex.RLock()
	cbc := c.cbc
	c.mutex.RUnlock()
	if cbc == nil {
		return nil, ErrCipherSuiteNotInit
	}

	return cbc.encrypt(pkt, raw)
}

func (c *cipherSuiteAESCBC) decrypt(h *recordLayerHeader, in []byte) ([]byte, error) {
	c.mutex.RLock()
	cbc := c.cbc
	c.mutex.RUnlock()
	if cbc == nil {
		return nil, ErrCipherSuiteNotInit
	}

	return cbc.decrypt(h, in)
}
