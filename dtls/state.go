// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

// State holds the negotiated parameters of one DTLS connection.
type State struct {
	localEpoch, remoteEpoch uint16
	// Per-epoch outbound record sequence numbers, 48 bit on the wire.
	localSequenceNumber map[uint16]uint64

	localRandom, remoteRandom handshakeRandom

	cipherSuite  cipherSuite
	masterSecret []byte

	extendedMasterSecret bool

	srtpProtectionProfile SRTPProtectionProfile

	peerCertificates         [][]byte
	peerCertificatesVerified bool

	identityHint []byte

	isClient bool
}

// ConnectionState records basic details about the DTLS connection.
type ConnectionState struct {
	// CipherSuiteID is the suite negotiated for the connection.
	CipherSuiteID CipherSuiteID

	// PeerCertificates holds the DER encoded certificates sent by the peer,
	// leaf first.
	PeerCertificates [][]byte

	// IdentityHint is the psk_identity_hint (server side: the identity the
	// client presented, client side: the hint the server advertised).
	IdentityHint []byte

	// NegotiatedSRTPProtectionProfile is zero when use_srtp was not negotiated.
	NegotiatedSRTPProtectionProfile SRTPProtectionProfile
}
