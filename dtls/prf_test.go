// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPSKPreMasterSecret(t *testing.T) {
	// RFC 4279 §2: N zeros, then the PSK, both length prefixed.
	out := prfPSKPreMasterSecret([]byte{0xAB, 0xC5, 0xD2})
	assert.Equal(t, []byte{
		0x00, 0x03, 0x00, 0x00, 0x00,
		0x00, 0x03, 0xAB, 0xC5, 0xD2,
	}, out)
}

func TestPHashDeterministic(t *testing.T) {
	secret := []byte("top secret")
	seed := []byte("some seed")

	first, err := prfPHash(secret, seed, 100, sha256.New)
	require.NoError(t, err)
	second, err := prfPHash(secret, seed, 100, sha256.New)
	require.NoError(t, err)

	assert.Len(t, first, 100)
	assert.Equal(t, first, second)

	// a prefix request yields a prefix of the longer expansion
	short, err := prfPHash(secret, seed, 32, sha256.New)
	require.NoError(t, err)
	assert.Equal(t, first[:32], short)
}

func TestMasterSecretLength(t *testing.T) {
	preMasterSecret := make([]byte, 32)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	for i := range serverRandom {
		serverRandom[i] = byte(i)
	}

	plain, err := prfMasterSecret(preMasterSecret, clientRandom, serverRandom, sha256.New)
	require.NoError(t, err)
	assert.Len(t, plain, prfMasterSecretLength)

	extended, err := prfExtendedMasterSecret(preMasterSecret, serverRandom, sha256.New)
	require.NoError(t, err)
	assert.Len(t, extended, prfMasterSecretLength)
	assert.NotEqual(t, plain, extended)
}

func TestEncryptionKeysLayout(t *testing.T) {
	masterSecret := make([]byte, prfMasterSecretLength)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)

	keys, err := prfEncryptionKeys(masterSecret, clientRandom, serverRandom, 20, 16, 4, sha256.New)
	require.NoError(t, err)

	assert.Len(t, keys.clientMACKey, 20)
	assert.Len(t, keys.serverMACKey, 20)
	assert.Len(t, keys.clientWriteKey, 16)
	assert.Len(t, keys.serverWriteKey, 16)
	assert.Len(t, keys.clientWriteIV, 4)
	assert.Len(t, keys.serverWriteIV, 4)
	assert.NotEqual(t, keys.clientWriteKey, keys.serverWriteKey)

	// the key block is one contiguous expansion, keys must be stable
	again, err := prfEncryptionKeys(masterSecret, clientRandom, serverRandom, 20, 16, 4, sha256.New)
	require.NoError(t, err)
	assert.Equal(t, keys.clientWriteKey, again.clientWriteKey)
}

func TestVerifyDataLabels(t *testing.T) {
	masterSecret := make([]byte, prfMasterSecretLength)
	bodies := []byte("handshake transcript")

	client, err := prfVerifyDataClient(masterSecret, bodies, sha256.New)
	require.NoError(t, err)
	server, err := prfVerifyDataServer(masterSecret, bodies, sha256.New)
	require.NoError(t, err)

	assert.Len(t, client, prfVerifyDataLength)
	assert.Len(t, server, prfVerifyDataLength)
	assert.NotEqual(t, client, server)
}
