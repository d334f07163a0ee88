// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package srtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/rtcstack/rtp"
)

func profileKeys(t *testing.T, profile ProtectionProfile) (key, salt []byte) {
	t.Helper()

	keyLen, err := profile.KeyLen()
	require.NoError(t, err)
	saltLen, err := profile.SaltLen()
	require.NoError(t, err)

	key = make([]byte, keyLen)
	salt = make([]byte, saltLen)
	for i := range key {
		key[i] = byte(i)
	}
	for i := range salt {
		salt[i] = byte(0xA0 + i)
	}

	return key, salt
}

func contextPair(t *testing.T, profile ProtectionProfile, opts ...ContextOption) (encryptCtx, decryptCtx *Context) {
	t.Helper()

	key, salt := profileKeys(t, profile)

	encryptCtx, err := CreateContext(key, salt, profile, opts...)
	require.NoError(t, err)
	decryptCtx, err = CreateContext(key, salt, profile, opts...)
	require.NoError(t, err)

	return encryptCtx, decryptCtx
}

func samplePacket(sequenceNumber uint16) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: sequenceNumber,
			Timestamp:      90000,
			SSRC:           defaultSsrc,
		},
		Payload: []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
	}
}

var allProfiles = []ProtectionProfile{
	ProtectionProfileAes128CmHmacSha1_80,
	ProtectionProfileAes128CmHmacSha1_32,
	ProtectionProfileAeadAes128Gcm,
	ProtectionProfileAeadAes256Gcm,
}

func TestRTPRoundTrip(t *testing.T) {
	for _, profile := range allProfiles {
		t.Run(profile.String(), func(t *testing.T) {
			encryptCtx, decryptCtx := contextPair(t, profile)

			pkt := samplePacket(5000)
			plaintext, err := pkt.Marshal()
			require.NoError(t, err)

			encrypted, err := encryptCtx.EncryptRTP(nil, plaintext, nil)
			require.NoError(t, err)
			assert.NotEqual(t, plaintext, encrypted)
			assert.Greater(t, len(encrypted), len(plaintext))

			decrypted, err := decryptCtx.DecryptRTP(nil, encrypted, nil)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestRTPReplayProtection(t *testing.T) {
	for _, profile := range allProfiles {
		t.Run(profile.String(), func(t *testing.T) {
			encryptCtx, decryptCtx := contextPair(t, profile)

			plaintext, err := samplePacket(5).Marshal()
			require.NoError(t, err)
			encrypted, err := encryptCtx.EncryptRTP(nil, plaintext, nil)
			require.NoError(t, err)

			_, err = decryptCtx.DecryptRTP(nil, encrypted, nil)
			require.NoError(t, err)

			_, err = decryptCtx.DecryptRTP(nil, encrypted, nil)
			assert.ErrorIs(t, err, errDuplicated)

			// the next sequence number still decrypts
			plaintext, err = samplePacket(6).Marshal()
			require.NoError(t, err)
			encrypted, err = encryptCtx.EncryptRTP(nil, plaintext, nil)
			require.NoError(t, err)
			decrypted, err := decryptCtx.DecryptRTP(nil, encrypted, nil)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestRTPReplayProtectionDisabled(t *testing.T) {
	encryptCtx, decryptCtx := contextPair(
		t, ProtectionProfileAes128CmHmacSha1_80,
		SRTPNoReplayProtection(), SRTCPNoReplayProtection(),
	)

	plaintext, err := samplePacket(42).Marshal()
	require.NoError(t, err)
	encrypted, err := encryptCtx.EncryptRTP(nil, plaintext, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		decrypted, errDec := decryptCtx.DecryptRTP(nil, encrypted, nil)
		require.NoError(t, errDec)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestRTPAuthenticationFailure(t *testing.T) {
	for _, profile := range allProfiles {
		t.Run(profile.String(), func(t *testing.T) {
			encryptCtx, decryptCtx := contextPair(t, profile)

			plaintext, err := samplePacket(100).Marshal()
			require.NoError(t, err)
			encrypted, err := encryptCtx.EncryptRTP(nil, plaintext, nil)
			require.NoError(t, err)

			encrypted[len(encrypted)-1] ^= 0xFF
			_, err = decryptCtx.DecryptRTP(nil, encrypted, nil)
			assert.ErrorIs(t, err, errFailedToVerifyAuthTag)
		})
	}
}

func TestRTPSequenceNumberRollover(t *testing.T) {
	for _, profile := range allProfiles {
		t.Run(profile.String(), func(t *testing.T) {
			encryptCtx, decryptCtx := contextPair(t, profile)

			for _, seq := range []uint16{0xFFFE, 0xFFFF, 0x0000, 0x0001} {
				plaintext, err := samplePacket(seq).Marshal()
				require.NoError(t, err)
				encrypted, err := encryptCtx.EncryptRTP(nil, plaintext, nil)
				require.NoError(t, err)
				decrypted, err := decryptCtx.DecryptRTP(nil, encrypted, nil)
				require.NoError(t, err, "seq %d", seq)
				assert.Equal(t, plaintext, decrypted)
			}

			roc, ok := decryptCtx.ROC(defaultSsrc)
			require.True(t, ok)
			assert.Equal(t, uint32(1), roc, "rollover counter must advance when the sequence wraps")
		})
	}
}

func TestRTPShortPacket(t *testing.T) {
	_, decryptCtx := contextPair(t, ProtectionProfileAes128CmHmacSha1_80)

	pkt := samplePacket(1)
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	// header parses but there is no room for payload and auth tag
	_, err = decryptCtx.DecryptRTP(nil, raw[:13], nil)
	assert.ErrorIs(t, err, errTooShortRTP)
}

func sampleRTCPPacket(ssrc uint32) []byte {
	// Receiver Report with no reception reports
	return []byte{
		0x80, 0xC9, 0x00, 0x01,
		byte(ssrc >> 24), byte(ssrc >> 16), byte(ssrc >> 8), byte(ssrc),
	}
}

func TestRTCPRoundTrip(t *testing.T) {
	for _, profile := range allProfiles {
		t.Run(profile.String(), func(t *testing.T) {
			encryptCtx, decryptCtx := contextPair(t, profile)

			plaintext := sampleRTCPPacket(defaultSsrc)
			encrypted, err := encryptCtx.EncryptRTCP(nil, plaintext)
			require.NoError(t, err)
			assert.Greater(t, len(encrypted), len(plaintext))

			decrypted, err := decryptCtx.DecryptRTCP(nil, encrypted)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestRTCPReplayProtection(t *testing.T) {
	for _, profile := range allProfiles {
		t.Run(profile.String(), func(t *testing.T) {
			encryptCtx, decryptCtx := contextPair(t, profile)

			plaintext := sampleRTCPPacket(defaultSsrc)
			encrypted, err := encryptCtx.EncryptRTCP(nil, plaintext)
			require.NoError(t, err)

			_, err = decryptCtx.DecryptRTCP(nil, encrypted)
			require.NoError(t, err)

			_, err = decryptCtx.DecryptRTCP(nil, encrypted)
			assert.ErrorIs(t, err, errDuplicated)
		})
	}
}

func TestRTCPIndexIncrements(t *testing.T) {
	encryptCtx, _ := contextPair(t, ProtectionProfileAes128CmHmacSha1_80)

	plaintext := sampleRTCPPacket(defaultSsrc)
	for i := 1; i <= 3; i++ {
		_, err := encryptCtx.EncryptRTCP(nil, plaintext)
		require.NoError(t, err)

		index, ok := encryptCtx.Index(defaultSsrc)
		require.True(t, ok)
		assert.Equal(t, uint32(i), index) //nolint:gosec // G115
	}
}

func TestRTCPShortPacket(t *testing.T) {
	_, decryptCtx := contextPair(t, ProtectionProfileAes128CmHmacSha1_80)

	_, err := decryptCtx.DecryptRTCP(nil, []byte{0x80, 0xC9})
	assert.ErrorIs(t, err, errTooShortRTCP)
}
