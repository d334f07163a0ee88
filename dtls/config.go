// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/pion/logging"
)

// Config is used to configure a DTLS client or server.
// After a Config is passed to a DTLS function it must not be modified.
type Config struct {
	// Certificates contains certificate chain to present to the other side
	// of the connection. Server MUST set this if PSK is non-nil.
	Certificates []tls.Certificate

	// CipherSuites is a list of supported cipher suites.
	// If CipherSuites is nil, a default list is used.
	CipherSuites []CipherSuiteID

	// SignatureSchemes contains the signature and hash schemes that the peer
	// requests to verify.
	SignatureSchemes []tls.SignatureScheme

	// SRTPProtectionProfiles are the supported protection profiles
	// Clients will send this via use_srtp and assert that the server properly responds
	// Servers will assert that clients send one of these profiles and will respond as needed.
	SRTPProtectionProfiles []SRTPProtectionProfile

	// ClientAuth determines the server's policy for
	// TLS Client Authentication. The default is NoClientCert.
	ClientAuth ClientAuthType

	// ExtendedMasterSecret determines if the "Extended Master Secret" extension
	// should be disabled, requested, or required (default requested).
	ExtendedMasterSecret ExtendedMasterSecretType

	// FlightInterval controls how often we send outbound handshake messages,
	// defaults to time.Second. It doubles on every retransmission up to a
	// minute per RFC 6347 §4.2.4.1.
	FlightInterval time.Duration

	// MaximumRetransmits limits the number of times a flight is resent
	// before the handshake is abandoned, defaults to 5.
	MaximumRetransmits int

	// PSK sets the pre-shared key used in all PSK based ciphersuites
	// This callback is called once we have the remote's psk_identity_hint
	PSK PSKCallback

	// PSKIdentityHint is the identity we advertise (server) or send in the
	// ClientKeyExchange (client).
	PSKIdentityHint []byte

	// InsecureSkipVerify controls whether a client verifies the
	// server's certificate chain.
	InsecureSkipVerify bool

	// VerifyPeerCertificate, if not nil, is called after normal
	// certificate verification by either a client or server.
	VerifyPeerCertificate func(rawCerts [][]byte, verified bool) error

	// RootCAs defines the set of root certificate authorities
	// that clients use when verifying server certificates.
	RootCAs *x509.CertPool

	// ClientCAs defines the set of root certificate authorities
	// that servers use if required to verify a client certificate.
	ClientCAs *x509.CertPool

	// ServerName is used to verify the hostname on the returned
	// certificates and is sent in the server_name extension.
	ServerName string

	// MTU is the length at which handshake messages are fragmented,
	// defaults to 1200.
	MTU int

	LoggerFactory logging.LoggerFactory
}

// PSKCallback is called once we have the remote's psk_identity_hint.
// If the remote provided none it will be nil.
type PSKCallback func([]byte) ([]byte, error)

const (
	defaultFlightInterval     = time.Second
	defaultMTU                = 1200
	defaultMaximumRetransmits = 5
	maxFlightInterval         = time.Minute
)

// ClientAuthType declares the policy the server will follow for
// TLS Client Authentication.
type ClientAuthType int

// ClientAuthType enums.
const (
	NoClientCert ClientAuthType = iota
	RequestClientCert
	RequireAnyClientCert
	VerifyClientCertIfGiven
	RequireAndVerifyClientCert
)

// ExtendedMasterSecretType declares the policy the client and server
// will follow for the Extended Master Secret extension.
type ExtendedMasterSecretType int

// ExtendedMasterSecretType enums.
const (
	RequestExtendedMasterSecret ExtendedMasterSecretType = iota
	RequireExtendedMasterSecret
	DisableExtendedMasterSecret
)

func validateConfig(config *Config) error {
	switch {
	case config == nil:
		return ErrNoConfigProvided
	case config.PSK != nil && len(config.Certificates) > 0:
		return ErrPSKAndCertificate
	case config.PSKIdentityHint != nil && config.PSK == nil:
		return ErrIdentityNoPSK
	}

	for _, cert := range config.Certificates {
		if cert.Certificate == nil {
			return ErrNoCertificates
		}
		switch cert.PrivateKey.(type) {
		case *ecdsa.PrivateKey:
		case *rsa.PrivateKey:
		default:
			return ErrInvalidPrivateKey
		}
	}

	return nil
}

func (c *Config) flightInterval() time.Duration {
	if c.FlightInterval != 0 {
		return c.FlightInterval
	}

	return defaultFlightInterval
}

func (c *Config) maximumRetransmits() int {
	if c.MaximumRetransmits != 0 {
		return c.MaximumRetransmits
	}

	return defaultMaximumRetransmits
}

func (c *Config) mtu() int {
	if c.MTU != 0 {
		return c.MTU
	}

	return defaultMTU
}

// signatureSchemes converts the crypto/tls schemes into the hash+signature
// pairs we put on the wire, falling back to the defaults.
func (c *Config) signatureSchemes() []signatureHashAlgorithm {
	if len(c.SignatureSchemes) == 0 {
		return defaultSignatureSchemes()
	}

	out := make([]signatureHashAlgorithm, 0, len(c.SignatureSchemes))
	for _, s := range c.SignatureSchemes {
		out = append(out, signatureHashAlgorithm{
			hash:      hashAlgorithm(uint16(s) >> 8),
			signature: signatureAlgorithm(uint16(s) & 0xFF),
		})
	}

	return out
}
