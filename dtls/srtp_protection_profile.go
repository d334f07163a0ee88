// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

// SRTPProtectionProfile defines the parameters and options that are in effect
// for SRTP keyed by this DTLS session.
// https://www.iana.org/assignments/srtp-protection/srtp-protection.xhtml
type SRTPProtectionProfile uint16

// SRTP protection profiles negotiated via use_srtp.
const (
	SRTP_AES128_CM_HMAC_SHA1_80 SRTPProtectionProfile = 0x0001 //nolint:revive,stylecheck
	SRTP_AES128_CM_HMAC_SHA1_32 SRTPProtectionProfile = 0x0002 //nolint:revive,stylecheck
	SRTP_AEAD_AES_128_GCM       SRTPProtectionProfile = 0x0007 //nolint:revive,stylecheck
	SRTP_AEAD_AES_256_GCM       SRTPProtectionProfile = 0x0008 //nolint:revive,stylecheck
)

func (s SRTPProtectionProfile) String() string {
	switch s {
	case SRTP_AES128_CM_HMAC_SHA1_80:
		return "SRTP_AES128_CM_HMAC_SHA1_80"
	case SRTP_AES128_CM_HMAC_SHA1_32:
		return "SRTP_AES128_CM_HMAC_SHA1_32"
	case SRTP_AEAD_AES_128_GCM:
		return "SRTP_AEAD_AES_128_GCM"
	case SRTP_AEAD_AES_256_GCM:
		return "SRTP_AEAD_AES_256_GCM"
	default:
		return "Unknown SRTP protection profile"
	}
}
