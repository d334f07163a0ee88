// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initializedSuitePair(t *testing.T, id CipherSuiteID) (client, server cipherSuite) {
	t.Helper()

	clientSuite := cipherSuiteForID(id)
	require.NotNil(t, clientSuite)
	serverSuite := cipherSuiteForID(id)

	masterSecret := make([]byte, prfMasterSecretLength)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	for i := range masterSecret {
		masterSecret[i] = byte(i)
	}

	require.NoError(t, clientSuite.init(masterSecret, clientRandom, serverRandom, true))
	require.NoError(t, serverSuite.init(masterSecret, clientRandom, serverRandom, false))

	return clientSuite, serverSuite
}

func encryptRecord(t *testing.T, suite cipherSuite, payload []byte) []byte {
	t.Helper()

	pkt := &recordLayer{
		recordLayerHeader: recordLayerHeader{
			protocolVersion: protocolVersion1_2,
			epoch:           1,
			sequenceNumber:  5,
		},
		content: &applicationData{data: payload},
	}
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	encrypted, err := suite.encrypt(pkt, raw)
	require.NoError(t, err)
	assert.NotContains(t, string(encrypted), string(payload))

	return encrypted
}

func decryptRecord(suite cipherSuite, encrypted []byte) ([]byte, error) {
	header := &recordLayerHeader{}
	if err := header.Unmarshal(encrypted); err != nil {
		return nil, err
	}

	out, err := suite.decrypt(header, encrypted)
	if err != nil {
		return nil, err
	}

	return out[recordLayerHeaderSize:], nil
}

func TestCipherSuiteRoundTrip(t *testing.T) {
	for _, id := range []CipherSuiteID{
		TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
		TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
		TLS_PSK_WITH_AES_128_GCM_SHA256,
		TLS_PSK_WITH_AES_128_CBC_SHA256,
	} {
		t.Run(id.String(), func(t *testing.T) {
			clientSuite, serverSuite := initializedSuitePair(t, id)
			payload := []byte("protected application data")

			decrypted, err := decryptRecord(serverSuite, encryptRecord(t, clientSuite, payload))
			require.NoError(t, err)
			assert.Equal(t, payload, decrypted)

			// and the reverse direction uses the other key half
			decrypted, err = decryptRecord(clientSuite, encryptRecord(t, serverSuite, payload))
			require.NoError(t, err)
			assert.Equal(t, payload, decrypted)
		})
	}
}

func TestCipherSuiteRejectsTamperedRecord(t *testing.T) {
	clientSuite, serverSuite := initializedSuitePair(t, TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)

	encrypted := encryptRecord(t, clientSuite, []byte("do not touch"))
	encrypted[len(encrypted)-1] ^= 0xFF

	_, err := decryptRecord(serverSuite, encrypted)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestCipherSuiteRejectsWrongDirection(t *testing.T) {
	clientSuite, _ := initializedSuitePair(t, TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)

	// a client must not accept records protected with its own write key
	encrypted := encryptRecord(t, clientSuite, []byte("looped back"))
	_, err := decryptRecord(clientSuite, encrypted)
	assert.Error(t, err)
}

func TestCipherSuiteNotInitialized(t *testing.T) {
	suite := cipherSuiteForID(TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)
	require.NotNil(t, suite)
	assert.False(t, suite.isInitialized())

	pkt := &recordLayer{
		recordLayerHeader: recordLayerHeader{protocolVersion: protocolVersion1_2, epoch: 1},
		content:           &applicationData{data: []byte{0x00}},
	}
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	_, err = suite.encrypt(pkt, raw)
	assert.ErrorIs(t, err, ErrCipherSuiteNotInit)
}

func TestGenerateAndVerifyKeySignature(t *testing.T) {
	certificate := generateSelfSigned(t)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	publicKey := make([]byte, 32)
	for i := range publicKey {
		publicKey[i] = byte(i)
	}

	signature, err := generateKeySignature(
		clientRandom, serverRandom, publicKey, namedCurveX25519,
		certificate.PrivateKey, hashAlgorithmSHA256,
	)
	require.NoError(t, err)

	require.NoError(t, verifyKeySignature(
		clientRandom, serverRandom, publicKey, namedCurveX25519,
		signature, hashAlgorithmSHA256, certificate.Certificate,
	))

	// flipping the public key invalidates the signature
	publicKey[0] ^= 0xFF
	assert.Error(t, verifyKeySignature(
		clientRandom, serverRandom, publicKey, namedCurveX25519,
		signature, hashAlgorithmSHA256, certificate.Certificate,
	))
}

func TestEllipticKeyAgreement(t *testing.T) {
	for _, curve := range defaultNamedCurves() {
		keypairA, err := generateKeypair(curve)
		require.NoError(t, err)
		keypairB, err := generateKeypair(curve)
		require.NoError(t, err)

		secretA, err := generatePreMasterSecret(keypairB.publicKey, keypairA.privateKey, curve)
		require.NoError(t, err)
		secretB, err := generatePreMasterSecret(keypairA.publicKey, keypairB.privateKey, curve)
		require.NoError(t, err)

		assert.Equal(t, secretA, secretB, "shared secret mismatch on curve %v", curve)
		assert.NotEmpty(t, secretA)
	}
}
