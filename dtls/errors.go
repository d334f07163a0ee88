// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"errors"
)

// Typed errors surfaced to the caller.
var (
	ErrConnClosed                   = errors.New("conn is closed")
	ErrHandshakeTimeout             = errors.New("the connection timed out during the handshake")
	ErrNilNextConn                  = errors.New("NextConn is not set in the config")
	ErrNoConfigProvided             = errors.New("no config provided")
	ErrPSKAndCertificate            = errors.New("both PSK and certificate provided")
	ErrNoCertificates               = errors.New("no certificates configured")
	ErrIdentityNoPSK                = errors.New("identity hint provided but PSK is nil")
	ErrInvalidPrivateKey            = errors.New("invalid private key type")
	ErrContextUnsupported           = errors.New("context is not supported for ExportKeyingMaterial")
	ErrHandshakeInProgress          = errors.New("handshake is in progress")
	ErrReservedExportKeyingMaterial = errors.New("ExportKeyingMaterial can not be used with a reserved label")
	ErrServerMustHaveCertOrPSK      = errors.New("server must be configured with a certificate or a PSK")
)

// Protocol errors. Most of these also raise a fatal alert.
var (
	ErrNoSupportedCipherSuite             = errors.New("client+server do not support any shared cipher suites")
	ErrCipherSuiteUnset                   = errors.New("server hello can not be created without a cipher suite")
	ErrCertificateUnset                   = errors.New("server hello can not be created without a certificate")
	ErrCookieMismatch                     = errors.New("client+server cookie does not match")
	ErrCookieTooLong                      = errors.New("cookie must not be longer then 255 bytes")
	ErrInvalidCipherSpec                  = errors.New("cipher spec invalid")
	ErrInvalidCipherSuite                 = errors.New("invalid or unknown cipher suite")
	ErrInvalidContentType                 = errors.New("invalid content type")
	ErrInvalidHashAlgorithm               = errors.New("invalid hash algorithm")
	ErrInvalidECDSASignature              = errors.New("ECDSA signature opaque is invalid")
	ErrInvalidPacketLength                = errors.New("packet length and declared length do not match")
	ErrBufferTooSmall                     = errors.New("buffer is too small")
	ErrLengthMismatch                     = errors.New("data length and declared length do not match")
	ErrNotImplemented                     = errors.New("feature has not been implemented yet")
	ErrHandshakeMessageUnset              = errors.New("handshake message unset, unable to marshal")
	ErrUnableToMarshalFragmented          = errors.New("unable to marshal fragmented handshakes")
	ErrNotEnoughRoomForNonce              = errors.New("buffer not long enough to contain nonce")
	ErrDecryptFailed                      = errors.New("failed to decrypt packet")
	ErrInvalidMAC                         = errors.New("invalid mac")
	ErrInvalidPacket                      = errors.New("invalid packet")
	ErrCipherSuiteNotInit                 = errors.New("cipher suite has not been initialized")
	ErrSequenceNumberOverflow             = errors.New("sequence number overflow")
	ErrVerifyDataMismatch                 = errors.New("verify data mismatch")
	ErrKeySignatureMismatch               = errors.New("key signature mismatch")
	ErrUnsupportedProtocolVersion         = errors.New("unsupported protocol version")
	ErrUnsupportedNamedCurve              = errors.New("unsupported named curve")
	ErrApplicationDataEpochZero           = errors.New("ApplicationData with epoch of 0")
	ErrUnhandledContentType               = errors.New("unhandled content type")
	ErrClientCertificateRequired          = errors.New("server required client verification, but got none")
	ErrClientCertificateNotVerified       = errors.New("client sent certificate but did not verify it")
	ErrCertificateVerifyNoCertificate     = errors.New("client sent certificate verify but no certificate was seen")
	ErrServerNoMatchingSRTPProfile        = errors.New("server responded with SRTP profile we do not support")
	ErrClientNoMatchingSRTPProfile        = errors.New("no matching SRTP profile with the client")
	ErrRequestedButNoSRTPExtension        = errors.New("SRTP was requested but the server did not include use_srtp")
	ErrClientRequiredButNoServerEMS       = errors.New("client required Extended Master Secret, peer does not support it")
	ErrServerMustHaveExtendedMasterSecret = errors.New("server requires the Extended Master Secret extension")
	ErrNoRemoteCertificate                = errors.New("remote peer sent no certificate")
	ErrUnexpectedHandshakeMessage         = errors.New("unexpected handshake message")
)
