// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"fmt"
)

/*
Client side of the handshake state machine.

	Client                                          Server

	ClientHello           -------->

	                      <-------- HelloVerifyRequest

	ClientHello(cookie)   -------->

	                                       ServerHello
	                                      Certificate*
	                                ServerKeyExchange*
	                               CertificateRequest*
	                      <--------    ServerHelloDone

	Certificate*
	ClientKeyExchange
	CertificateVerify*
	[ChangeCipherSpec]
	Finished              -------->

	                                [ChangeCipherSpec]
	                      <--------           Finished
*/
func (c *Conn) clientHandshake() error { //nolint:cyclop
	c.hs = &handshakeState{}

	suites, err := parseCipherSuites(c.config.CipherSuites, c.config.PSK == nil, c.config.PSK != nil)
	if err != nil {
		return err
	}
	c.hs.offeredSuites = suites

	clientHello, err := c.buildClientHello(suites)
	if err != nil {
		return err
	}

	flight, full, err := c.fragmentHandshake(clientHello, 0)
	if err != nil {
		return err
	}
	// The initial hello only enters the transcript when the server skips
	// the cookie exchange, RFC 6347 §4.2.6.
	c.hs.firstClientHello = full

	err = c.sendFlightAndWait(flight, func() bool {
		return c.hs.cookie != nil || c.hs.serverHelloDone
	})
	if err != nil {
		return err
	}

	if c.hs.cookie != nil && !c.hs.serverHelloDone {
		clientHello.cookie = c.hs.cookie
		c.hs.sentCookieHello = true

		flight, full, err = c.fragmentHandshake(clientHello, 0)
		if err != nil {
			return err
		}
		c.handshakeCache.push(handshakeTypeClientHello, full)

		if err := c.sendFlightAndWait(flight, func() bool { return c.hs.serverHelloDone }); err != nil {
			return err
		}
	}

	flight, err = c.buildClientFlight5()
	if err != nil {
		return err
	}
	c.lastFlight = flight

	return c.sendFlightAndWait(flight, func() bool { return c.hs.remoteFinished })
}

func (c *Conn) buildClientHello(suites []cipherSuite) (*handshakeMessageClientHello, error) {
	extensions := []extension{
		&extensionSupportedEllipticCurves{ellipticCurves: defaultNamedCurves()},
		&extensionSupportedPointFormats{pointFormats: []ellipticCurvePointFormat{ellipticCurvePointFormatUncompressed}},
		&extensionSupportedSignatureAlgorithms{signatureHashAlgorithms: c.config.signatureSchemes()},
	}
	if len(c.config.SRTPProtectionProfiles) > 0 {
		extensions = append(extensions, &extensionUseSRTP{protectionProfiles: c.config.SRTPProtectionProfiles})
	}
	if c.config.ExtendedMasterSecret != DisableExtendedMasterSecret {
		extensions = append(extensions, &extensionUseExtendedMasterSecret{supported: true})
	}
	if c.config.ServerName != "" {
		extensions = append(extensions, &extensionServerName{serverName: c.config.ServerName})
	}

	ids := make([]CipherSuiteID, len(suites))
	for i, cs := range suites {
		ids[i] = cs.ID()
	}

	return &handshakeMessageClientHello{
		version:            protocolVersion1_2,
		random:             c.state.localRandom,
		cipherSuites:       ids,
		compressionMethods: []byte{0},
		extensions:         extensions,
	}, nil
}

func (c *Conn) clientHandleMessage(raw []byte, h *handshake) error { //nolint:cyclop
	switch msg := h.handshakeMessage.(type) {
	case *handshakeMessageHelloVerifyRequest:
		c.hs.cookie = append([]byte{}, msg.cookie...)
	case *handshakeMessageServerHello:
		return c.clientHandleServerHello(raw, msg)
	case *handshakeMessageCertificate:
		c.state.peerCertificates = msg.certificate
		c.handshakeCache.push(handshakeTypeCertificate, raw)
	case *handshakeMessageServerKeyExchange:
		c.hs.remoteKeyExchange = msg
		if msg.identityHint != nil {
			c.hs.remotePSKHint = msg.identityHint
			c.state.identityHint = msg.identityHint
		}
		c.handshakeCache.push(handshakeTypeServerKeyExchange, raw)
	case *handshakeMessageCertificateRequest:
		c.hs.remoteRequestedCertificate = true
		c.handshakeCache.push(handshakeTypeCertificateRequest, raw)
	case *handshakeMessageServerHelloDone:
		c.handshakeCache.push(handshakeTypeServerHelloDone, raw)
		c.hs.serverHelloDone = true
	case *handshakeMessageFinished:
		expected, err := prfVerifyDataServer(c.state.masterSecret, c.handshakeCache.bytes(), c.state.cipherSuite.hashFunc())
		if err != nil {
			return err
		}
		if !hmac.Equal(expected, msg.verifyData) {
			return ErrVerifyDataMismatch
		}
		c.handshakeCache.push(handshakeTypeFinished, raw)
		c.hs.remoteFinished = true
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedHandshakeMessage, h.handshakeHeader.handshakeType)
	}

	return nil
}

func (c *Conn) clientHandleServerHello(raw []byte, msg *handshakeMessageServerHello) error { //nolint:cyclop
	if msg.version != protocolVersion1_2 {
		return ErrUnsupportedProtocolVersion
	}

	var selected cipherSuite
	for _, cs := range c.hs.offeredSuites {
		if cs.ID() == msg.cipherSuite {
			selected = cs

			break
		}
	}
	if selected == nil {
		return fmt.Errorf("%w: %v", ErrInvalidCipherSuite, msg.cipherSuite)
	}

	c.lock.Lock()
	c.state.remoteRandom = msg.random
	c.state.cipherSuite = selected
	c.lock.Unlock()

	for _, ext := range msg.extensions {
		switch e := ext.(type) {
		case *extensionUseSRTP:
			profile, ok := findMatchingSRTPProfile(e.protectionProfiles, c.config.SRTPProtectionProfiles)
			if !ok {
				return ErrServerNoMatchingSRTPProfile
			}
			c.state.srtpProtectionProfile = profile
		case *extensionUseExtendedMasterSecret:
			if e.supported {
				c.hs.remoteOfferedEMS = true
			}
		}
	}

	if len(c.config.SRTPProtectionProfiles) > 0 && c.state.srtpProtectionProfile == 0 {
		return ErrRequestedButNoSRTPExtension
	}
	if c.config.ExtendedMasterSecret == RequireExtendedMasterSecret && !c.hs.remoteOfferedEMS {
		return ErrClientRequiredButNoServerEMS
	}
	if c.config.ExtendedMasterSecret != DisableExtendedMasterSecret && c.hs.remoteOfferedEMS {
		c.state.extendedMasterSecret = true
	}

	if !c.hs.sentCookieHello {
		c.handshakeCache.push(handshakeTypeClientHello, c.hs.firstClientHello)
	}
	c.handshakeCache.push(handshakeTypeServerHello, raw)

	return nil
}

// buildClientFlight5 derives the keys and assembles the final client
// flight. Every message is pushed into the transcript as it is created so
// CertificateVerify and Finished see exactly the bytes on the wire.
func (c *Conn) buildClientFlight5() ([]flightItem, error) { //nolint:cyclop,gocognit
	suite := c.state.cipherSuite
	if suite == nil {
		return nil, ErrCipherSuiteUnset
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

	sentCertificate := false
	if c.hs.remoteRequestedCertificate {
		certMsg := &handshakeMessageCertificate{}
		if len(c.config.Certificates) > 0 {
			certMsg.certificate = c.config.Certificates[0].Certificate
			sentCertificate = true
		}
		if err := add(certMsg, 0); err != nil {
			return nil, err
		}
	}

	var preMasterSecret []byte
	clientKeyExchange := &handshakeMessageClientKeyExchange{}
	if suite.isPSK() {
		psk, err := c.config.PSK(c.hs.remotePSKHint)
		if err != nil {
			return nil, err
		}
		preMasterSecret = prfPSKPreMasterSecret(psk)
		clientKeyExchange.identityHint = c.config.PSKIdentityHint
		if clientKeyExchange.identityHint == nil {
			clientKeyExchange.identityHint = []byte{}
		}
	} else {
		serverKeyExchange := c.hs.remoteKeyExchange
		if serverKeyExchange == nil {
			return nil, ErrHandshakeMessageUnset
		}
		if len(c.state.peerCertificates) == 0 {
			return nil, ErrNoRemoteCertificate
		}

		verified := false
		if !c.config.InsecureSkipVerify {
			if err := verifyCertificateChain(c.state.peerCertificates, c.config.RootCAs, true); err != nil {
				return nil, err
			}
			verified = true
		}
		c.state.peerCertificatesVerified = verified
		if c.config.VerifyPeerCertificate != nil {
			if err := c.config.VerifyPeerCertificate(c.state.peerCertificates, verified); err != nil {
				return nil, err
			}
		}

		err := verifyKeySignature(
			c.state.localRandom.Marshal(), c.state.remoteRandom.Marshal(),
			serverKeyExchange.publicKey, serverKeyExchange.namedCurve,
			serverKeyExchange.signature, serverKeyExchange.signatureHashAlgorithm.hash,
			c.state.peerCertificates,
		)
		if err != nil {
			return nil, err
		}

		keypair, err := generateKeypair(serverKeyExchange.namedCurve)
		if err != nil {
			return nil, err
		}
		preMasterSecret, err = generatePreMasterSecret(serverKeyExchange.publicKey, keypair.privateKey, keypair.curve)
		if err != nil {
			return nil, err
		}
		clientKeyExchange.publicKey = keypair.publicKey
	}

	if err := add(clientKeyExchange, 0); err != nil {
		return nil, err
	}

	hf := suite.hashFunc()
	clientRandom := c.state.localRandom.Marshal()
	serverRandom := c.state.remoteRandom.Marshal()
	if c.state.extendedMasterSecret {
		sessionHash, err := c.handshakeCache.sessionHash(hf)
		if err != nil {
			return nil, err
		}
		c.state.masterSecret, err = prfExtendedMasterSecret(preMasterSecret, sessionHash, hf)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		c.state.masterSecret, err = prfMasterSecret(preMasterSecret, clientRandom, serverRandom, hf)
		if err != nil {
			return nil, err
		}
	}

	if sentCertificate {
		privateKey := c.config.Certificates[0].PrivateKey
		signature, err := generateCertificateVerify(c.handshakeCache.bytes(), privateKey, hashAlgorithmSHA256)
		if err != nil {
			return nil, err
		}

		signatureAlg := signatureAlgorithmRSA
		if _, ok := privateKey.(*ecdsa.PrivateKey); ok {
			signatureAlg = signatureAlgorithmECDSA
		}
		certVerify := &handshakeMessageCertificateVerify{
			hashAlgorithm:      hashAlgorithmSHA256,
			signatureAlgorithm: signatureAlg,
			signature:          signature,
		}
		if err := add(certVerify, 0); err != nil {
			return nil, err
		}
	}

	if err := suite.init(c.state.masterSecret, clientRandom, serverRandom, true); err != nil {
		return nil, err
	}

	flight = append(flight, flightItem{epoch: 0, content: &changeCipherSpec{}})
	c.lock.Lock()
	c.state.localEpoch = 1
	c.lock.Unlock()

	verifyData, err := prfVerifyDataClient(c.state.masterSecret, c.handshakeCache.bytes(), hf)
	if err != nil {
		return nil, err
	}
	if err := add(&handshakeMessageFinished{verifyData: verifyData}, 1); err != nil {
		return nil, err
	}

	return flight, nil
}

func findMatchingSRTPProfile(remote, local []SRTPProtectionProfile) (SRTPProtectionProfile, bool) {
	for _, l := range local {
		for _, r := range remote {
			if l == r {
				return l, true
			}
		}
	}

	return 0, false
}
