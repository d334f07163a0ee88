// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"fmt"
)

const cookieLength = 20

// Server side of the handshake state machine. The cookie exchange of
// RFC 6347 §4.2.1 is always performed so an attacker can not make us
// commit state for a spoofed source address.
func (c *Conn) serverHandshake() error { //nolint:cyclop
	c.hs = &handshakeState{}

	c.hs.cookie = make([]byte, cookieLength)
	if _, err := rand.Read(c.hs.cookie); err != nil {
		return err
	}

	// flight 0: wait for the initial ClientHello.
	if err := c.sendFlightAndWait(nil, func() bool { return c.hs.clientHello != nil }); err != nil {
		return err
	}

	// flight 1: HelloVerifyRequest, wait for the cookie to come back.
	helloVerifyRequest := &handshakeMessageHelloVerifyRequest{
		version: protocolVersion1_2,
		cookie:  c.hs.cookie,
	}
	flight, _, err := c.fragmentHandshake(helloVerifyRequest, 0)
	if err != nil {
		return err
	}
	if err := c.sendFlightAndWait(flight, func() bool { return c.hs.cookieVerified }); err != nil {
		return err
	}

	// flight 3: ServerHello through ServerHelloDone, wait for the
	// client's final flight.
	flight, err = c.buildServerFlight3()
	if err != nil {
		return err
	}
	if err := c.sendFlightAndWait(flight, func() bool { return c.hs.remoteFinished }); err != nil {
		return err
	}

	// flight 6: ChangeCipherSpec + Finished. There is nothing left to wait
	// for, the flight is replayed if the client retransmits.
	flight6 := []flightItem{{epoch: 0, content: &changeCipherSpec{}}}
	c.lock.Lock()
	c.state.localEpoch = 1
	c.lock.Unlock()

	verifyData, err := prfVerifyDataServer(c.state.masterSecret, c.handshakeCache.bytes(), c.state.cipherSuite.hashFunc())
	if err != nil {
		return err
	}
	items, full, err := c.fragmentHandshake(&handshakeMessageFinished{verifyData: verifyData}, 1)
	if err != nil {
		return err
	}
	c.handshakeCache.push(handshakeTypeFinished, full)
	flight6 = append(flight6, items...)
	c.lastFlight = flight6

	return c.writePackets(flight6)
}

func (c *Conn) serverHandleMessage(raw []byte, h *handshake) error { //nolint:cyclop
	switch msg := h.handshakeMessage.(type) {
	case *handshakeMessageClientHello:
		c.hs.clientHello = msg
		if len(msg.cookie) > 0 && bytes.Equal(msg.cookie, c.hs.cookie) {
			c.hs.cookieVerified = true
			c.handshakeCache.push(handshakeTypeClientHello, raw)
		}
	case *handshakeMessageCertificate:
		c.state.peerCertificates = msg.certificate
		c.hs.remoteSentCertificate = len(msg.certificate) > 0
		c.handshakeCache.push(handshakeTypeCertificate, raw)
	case *handshakeMessageClientKeyExchange:
		return c.serverHandleClientKeyExchange(raw, msg)
	case *handshakeMessageCertificateVerify:
		return c.serverHandleCertificateVerify(raw, msg)
	case *handshakeMessageFinished:
		return c.serverHandleFinished(raw, msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedHandshakeMessage, h.handshakeHeader.handshakeType)
	}

	return nil
}

// serverHandleClientKeyExchange derives the master secret and brings the
// cipher suite up so the client's Finished can be decrypted.
func (c *Conn) serverHandleClientKeyExchange(raw []byte, msg *handshakeMessageClientKeyExchange) error { //nolint:cyclop
	c.handshakeCache.push(handshakeTypeClientKeyExchange, raw)

	suite := c.state.cipherSuite
	var preMasterSecret []byte
	if suite.isPSK() {
		c.state.identityHint = msg.identityHint
		psk, err := c.config.PSK(msg.identityHint)
		if err != nil {
			return err
		}
		preMasterSecret = prfPSKPreMasterSecret(psk)
	} else {
		keypair := c.hs.localKeypair
		if keypair == nil {
			return ErrHandshakeMessageUnset
		}
		var err error
		preMasterSecret, err = generatePreMasterSecret(msg.publicKey, keypair.privateKey, keypair.curve)
		if err != nil {
			return err
		}
	}

	hf := suite.hashFunc()
	clientRandom := c.state.remoteRandom.Marshal()
	serverRandom := c.state.localRandom.Marshal()

	var err error
	if c.state.extendedMasterSecret {
		var sessionHash []byte
		sessionHash, err = c.handshakeCache.sessionHash(hf)
		if err != nil {
			return err
		}
		c.state.masterSecret, err = prfExtendedMasterSecret(preMasterSecret, sessionHash, hf)
	} else {
		c.state.masterSecret, err = prfMasterSecret(preMasterSecret, clientRandom, serverRandom, hf)
	}
	if err != nil {
		return err
	}

	return suite.init(c.state.masterSecret, clientRandom, serverRandom, false)
}

func (c *Conn) serverHandleCertificateVerify(raw []byte, msg *handshakeMessageCertificateVerify) error {
	if len(c.state.peerCertificates) == 0 {
		return ErrCertificateVerifyNoCertificate
	}

	plaintext := c.handshakeCache.bytes()
	if err := verifyCertificateVerify(plaintext, msg.signature, msg.hashAlgorithm, c.state.peerCertificates); err != nil {
		return err
	}

	verified := false
	if c.config.ClientAuth >= VerifyClientCertIfGiven {
		if err := verifyCertificateChain(c.state.peerCertificates, c.config.ClientCAs, false); err != nil {
			return err
		}
		verified = true
	}
	c.state.peerCertificatesVerified = verified
	if c.config.VerifyPeerCertificate != nil {
		if err := c.config.VerifyPeerCertificate(c.state.peerCertificates, verified); err != nil {
			return err
		}
	}

	c.hs.remoteVerifiedCertificate = true
	c.handshakeCache.push(handshakeTypeCertificateVerify, raw)

	return nil
}

func (c *Conn) serverHandleFinished(raw []byte, msg *handshakeMessageFinished) error {
	if c.hs.requestedClientCertificate {
		if !c.hs.remoteSentCertificate &&
			(c.config.ClientAuth == RequireAnyClientCert || c.config.ClientAuth == RequireAndVerifyClientCert) {
			return ErrClientCertificateRequired
		}
		if c.hs.remoteSentCertificate && !c.hs.remoteVerifiedCertificate {
			return ErrClientCertificateNotVerified
		}
	}

	expected, err := prfVerifyDataClient(c.state.masterSecret, c.handshakeCache.bytes(), c.state.cipherSuite.hashFunc())
	if err != nil {
		return err
	}
	if !hmac.Equal(expected, msg.verifyData) {
		return ErrVerifyDataMismatch
	}

	c.handshakeCache.push(handshakeTypeFinished, raw)
	c.hs.remoteFinished = true

	return nil
}

// buildServerFlight3 negotiates the cipher suite and extensions from the
// ClientHello and assembles ServerHello through ServerHelloDone.
func (c *Conn) buildServerFlight3() ([]flightItem, error) { //nolint:cyclop,gocognit
	clientHello := c.hs.clientHello

	candidates, err := parseCipherSuites(c.config.CipherSuites, len(c.config.Certificates) > 0, c.config.PSK != nil)
	if err != nil {
		return nil, err
	}
	var suite cipherSuite
outer:
	for _, cs := range candidates {
		for _, id := range clientHello.cipherSuites {
			if cs.ID() == id {
				suite = cs

				break outer
			}
		}
	}
	if suite == nil {
		return nil, ErrNoSupportedCipherSuite
	}

	c.lock.Lock()
	c.state.cipherSuite = suite
	c.state.remoteRandom = clientHello.random
	c.lock.Unlock()

	var clientSRTPProfiles []SRTPProtectionProfile
	clientOfferedEMS := false
	clientCurves := defaultNamedCurves()
	for _, ext := range clientHello.extensions {
		switch e := ext.(type) {
		case *extensionUseSRTP:
			clientSRTPProfiles = e.protectionProfiles
		case *extensionUseExtendedMasterSecret:
			clientOfferedEMS = e.supported
		case *extensionSupportedEllipticCurves:
			if len(e.ellipticCurves) > 0 {
				clientCurves = e.ellipticCurves
			}
		}
	}

	if c.config.ExtendedMasterSecret == RequireExtendedMasterSecret && !clientOfferedEMS {
		return nil, ErrServerMustHaveExtendedMasterSecret
	}
	c.state.extendedMasterSecret = clientOfferedEMS && c.config.ExtendedMasterSecret != DisableExtendedMasterSecret

	serverExtensions := []extension{}
	if c.state.extendedMasterSecret {
		serverExtensions = append(serverExtensions, &extensionUseExtendedMasterSecret{supported: true})
	}
	if len(clientSRTPProfiles) > 0 && len(c.config.SRTPProtectionProfiles) > 0 {
		profile, ok := findMatchingSRTPProfile(clientSRTPProfiles, c.config.SRTPProtectionProfiles)
		if !ok {
			return nil, ErrClientNoMatchingSRTPProfile
		}
		c.state.srtpProtectionProfile = profile
		serverExtensions = append(serverExtensions, &extensionUseSRTP{protectionProfiles: []SRTPProtectionProfile{profile}})
	}

	var flight []flightItem
	add := func(msg handshakeMessage, epoch uint16) error {
		items, full, err := c.fragmentHandshake(msg, epoch)
		if err != nil {
			return err
		}
		flight = append(flight, items...)
		c.handshakeCache.push(msg.handshakeType(), full)

		return nil
	}

	serverHello := &handshakeMessageServerHello{
		version:           protocolVersion1_2,
		random:            c.state.localRandom,
		cipherSuite:       suite.ID(),
		compressionMethod: 0,
		extensions:        serverExtensions,
	}
	if err := add(serverHello, 0); err != nil {
		return nil, err
	}

	if suite.isPSK() {
		if len(c.config.PSKIdentityHint) > 0 {
			serverKeyExchange := &handshakeMessageServerKeyExchange{identityHint: c.config.PSKIdentityHint}
			if err := add(serverKeyExchange, 0); err != nil {
				return nil, err
			}
		}
	} else {
		if len(c.config.Certificates) == 0 {
			return nil, ErrCertificateUnset
		}
		certificate := c.config.Certificates[0]
		if err := add(&handshakeMessageCertificate{certificate: certificate.Certificate}, 0); err != nil {
			return nil, err
		}

		curve, ok := findMatchingCurve(clientCurves)
		if !ok {
			return nil, ErrUnsupportedNamedCurve
		}
		keypair, err := generateKeypair(curve)
		if err != nil {
			return nil, err
		}
		c.hs.localKeypair = keypair

		signatureAlg := signatureAlgorithmRSA
		if _, isECDSA := certificate.PrivateKey.(*ecdsa.PrivateKey); isECDSA {
			signatureAlg = signatureAlgorithmECDSA
		}
		signature, err := generateKeySignature(
			c.state.remoteRandom.Marshal(), c.state.localRandom.Marshal(),
			keypair.publicKey, curve, certificate.PrivateKey, hashAlgorithmSHA256,
		)
		if err != nil {
			return nil, err
		}
		serverKeyExchange := &handshakeMessageServerKeyExchange{
			ellipticCurveType:      ellipticCurveTypeNamedCurve,
			namedCurve:             curve,
			publicKey:              keypair.publicKey,
			signatureHashAlgorithm: signatureHashAlgorithm{hash: hashAlgorithmSHA256, signature: signatureAlg},
			signature:              signature,
		}
		if err := add(serverKeyExchange, 0); err != nil {
			return nil, err
		}

		if c.config.ClientAuth != NoClientCert {
			c.hs.requestedClientCertificate = true
			certificateRequest := &handshakeMessageCertificateRequest{
				certificateTypes:        []clientCertificateType{clientCertificateTypeRSASign, clientCertificateTypeECDSASign},
				signatureHashAlgorithms: c.config.signatureSchemes(),
			}
			if err := add(certificateRequest, 0); err != nil {
				return nil, err
			}
		}
	}

	if err := add(&handshakeMessageServerHelloDone{}, 0); err != nil {
		return nil, err
	}

	return flight, nil
}

func findMatchingCurve(remote []namedCurve) (namedCurve, bool) {
	for _, l := range defaultNamedCurves() {
		for _, r := range remote {
			if l == r {
				return l, true
			}
		}
	}

	return 0, false
}
