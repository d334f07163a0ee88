// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"hash"
	"sync"
)

const (
	cipherSuiteAESGCMIVLength = 4
)

type cipherSuiteAESGCM struct {
	id       CipherSuiteID
	certType clientCertificateType
	psk      bool
	keyLen   int
	hash     hashAlgorithm

	gcm   *cryptoGCM
	mutex sync.RWMutex
}

func newCipherSuiteAESGCM(id CipherSuiteID, certType clientCertificateType,
	psk bool, keyLen int, h hashAlgorithm,
) *cipherSuiteAESGCM {
	return &cipherSuiteAESGCM{id: id, certType: certType, psk: psk, keyLen: keyLen, hash: h}
}

func (c *cipherSuiteAESGCM) ID() CipherSuiteID {
	return c.id
}

func (c *cipherSuiteAESGCM) String() string {
	switch c.id {
	case TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:
		return "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"
	case TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256:
		return "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"
	case TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384:
		return "TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384"
	case TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384:
		return "TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384"
	case TLS_PSK_WITH_AES_128_GCM_SHA256:
		return "TLS_PSK_WITH_AES_128_GCM_SHA256"
	default:
		return "unknown AES-GCM suite"
	}
}

func (c *cipherSuiteAESGCM) certificateType() clientCertificateType {
	return c.certType
}

func (c *cipherSuiteAESGCM) hashFunc() func() hash.Hash {
	return newHashFunc(c.hash)
}

func (c *cipherSuiteAESGCM) isPSK() bool {
	return c.psk
}

func (c *cipherSuiteAESGCM) isInitialized() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.gcm != nil
}

func (c *cipherSuiteAESGCM) init(masterSecret, clientRandom, serverRandom []byte, isClient bool) error {
	keys, err := prfEncryptionKeys(masterSecret, clientRandom, serverRandom,
		0, c.keyLen, cipherSuiteAESGCMIVLength, c.hashFunc())
	if err != nil {
		return err
	}

	var gcm *cryptoGCM
	if isClient {
		gcm, err = newCryptoGCM(keys.clientWriteKey, keys.clientWriteIV,
			keys.serverWriteKey, keys.serverWriteIV)
	} else {
		gcm, err = newCryptoGCM(keys.serverWriteKey, keys.serverWriteIV,
			keys.clientWriteKey, keys.clientWriteIV)
	}
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.gcm = gcm
	c.mutex.Unlock()

	return nil
}

func (c *cipherSuiteAESGCM) encrypt(pkt *recordLayer, raw []byte) ([]byte, error) {
	c.mutex.RLock()
	gcm := c.gcm
	c.mutex.RUnlock()
	if gcm == nil {
		return nil, ErrCipherSuiteNotInit
	}

	return gcm.encrypt(pkt, raw)
}

func (c *cipherSuiteAESGCM) decrypt(h *recordLayerHeader, in []byte) ([]byte, error) {
	c.mutex.RLock()
	gcm := c.gcm
	c.mutex.RUnlock()
	if gcm == nil {
		return nil, ErrCipherSuiteNotInit
	}

	return gcm.decrypt(h, in)
}
