// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/hmac"
	"encoding/binary"
	"fmt"
	"hash"
)

const (
	prfMasterSecretLength = 48
	prfVerifyDataLength   = 12

	prfMasterSecretLabel         = "master secret"
	prfExtendedMasterSecretLabel = "extended master secret"
	prfKeyExpansionLabel         = "key expansion"
	prfVerifyDataClientLabel     = "client finished"
	prfVerifyDataServerLabel     = "server finished"
)

type encryptionKeys struct {
	masterSecret   []byte
	clientMACKey   []byte
	serverMACKey   []byte
	clientWriteKey []byte
	serverWriteKey []byte
	clientWriteIV  []byte
	serverWriteIV  []byte
}

func (e *encryptionKeys) String() string {
	return fmt.Sprintf(`encryptionKeys:
- masterSecret: %#v
- clientMACKey: %#v
- serverMACKey: %#v
- clientWriteKey: %#v
- serverWriteKey: %#v
- clientWriteIV: %#v
- serverWriteIV: %#v
`,
		e.masterSecret,
		e.clientMACKey,
		e.serverMACKey,
		e.clientWriteKey,
		e.serverWriteKey,
		e.clientWriteIV,
		e.serverWriteIV)
}

// prfPSKPreMasterSecret builds the RFC 4279 §2 pre-master secret, two
// length-prefixed fields with the first being all zeros.
func prfPSKPreMasterSecret(psk []byte) []byte {
	pskLen := uint16(len(psk)) //nolint:gosec // G115

	out := append(make([]byte, 2+pskLen+2), psk...)
	binary.BigEndian.PutUint16(out, pskLen)
	binary.BigEndian.PutUint16(out[2+pskLen:], pskLen)

	return out
}

// prfPHash implements P_hash from RFC 5246 §5.
func prfPHash(secret, seed []byte, requestedLength int, h func() hash.Hash) ([]byte, error) {
	hmacSHA := func(key, data []byte) ([]byte, error) {
		mac := hmac.New(h, key)
		if _, err := mac.Write(data); err != nil {
			return nil, err
		}

		return mac.Sum(nil), nil
	}

	var err error
	lastRound := seed
	out := []byte{}

	iterations := ((requestedLength + h().Size() - 1) / h().Size())
	for i := 0; i < iterations; i++ {
		lastRound, err = hmacSHA(secret, lastRound)
		if err != nil {
			return nil, err
		}
		withSecret, err := hmacSHA(secret, append(lastRound, seed...))
		if err != nil {
			return nil, err
		}
		out = append(out, withSecret...)
	}

	return out[:requestedLength], nil
}

func prfExtendedMasterSecret(preMasterSecret, sessionHash []byte, h func() hash.Hash) ([]byte, error) {
	seed := append([]byte(prfExtendedMasterSecretLabel), sessionHash...)

	return prfPHash(preMasterSecret, seed, prfMasterSecretLength, h)
}

func prfMasterSecret(preMasterSecret, clientRandom, serverRandom []byte, h func() hash.Hash) ([]byte, error) {
	seed := append(append([]byte(prfMasterSecretLabel), clientRandom...), serverRandom...)

	return prfPHash(preMasterSecret, seed, prfMasterSecretLength, h)
}

func prfEncryptionKeys(masterSecret, clientRandom, serverRandom []byte,
	macLen, keyLen, ivLen int, h func() hash.Hash,
) (*encryptionKeys, error) {
	seed := append(append([]byte(prfKeyExpansionLabel), serverRandom...), clientRandom...)
	keyMaterial, err := prfPHash(masterSecret, seed, (2*macLen)+(2*keyLen)+(2*ivLen), h)
	if err != nil {
		return nil, err
	}

	clientMACKey := keyMaterial[:macLen]
	keyMaterial = keyMaterial[macLen:]

	serverMACKey := keyMaterial[:macLen]
	keyMaterial = keyMaterial[macLen:]

	clientWriteKey := keyMaterial[:keyLen]
	keyMaterial = keyMaterial[keyLen:]

	serverWriteKey := keyMaterial[:keyLen]
	keyMaterial = keyMaterial[keyLen:]

	clientWriteIV := keyMaterial[:ivLen]
	keyMaterial = keyMaterial[ivLen:]

	serverWriteIV := keyMaterial[:ivLen]

	return &encryptionKeys{
		masterSecret:   masterSecret,
		clientMACKey:   clientMACKey,
		serverMACKey:   serverMACKey,
		clientWriteKey: clientWriteKey,
		serverWriteKey: serverWriteKey,
		clientWriteIV:  clientWriteIV,
		serverWriteIV:  serverWriteIV,
	}, nil
}

func prfVerifyData(masterSecret, handshakeBodies []byte, label string, h func() hash.Hash) ([]byte, error) {
	transcript := h()
	if _, err := transcript.Write(handshakeBodies); err != nil {
		return nil, err
	}

	seed := append([]byte(label), transcript.Sum(nil)...)

	return prfPHash(masterSecret, seed, prfVerifyDataLength, h)
}

func prfVerifyDataClient(masterSecret, handshakeBodies []byte, h func() hash.Hash) ([]byte, error) {
	return prfVerifyData(masterSecret, handshakeBodies, prfVerifyDataClientLabel, h)
}

func prfVerifyDataServer(masterSecret, handshakeBodies []byte, h func() hash.Hash) ([]byte, error) {
	return prfVerifyData(masterSecret, handshakeBodies, prfVerifyDataServerLabel, h)
}
