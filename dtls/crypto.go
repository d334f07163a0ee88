// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"
	"math/big"
	"time"
)

type ecdsaSignature struct {
	R, S *big.Int
}

// valueKeyMessage is the byte sequence signed by the ServerKeyExchange,
// binding the ECDHE parameters to both hello randoms.
func valueKeyMessage(clientRandom, serverRandom, publicKey []byte, curve namedCurve) []byte {
	serverECDHParams := make([]byte, 4)
	serverECDHParams[0] = byte(ellipticCurveTypeNamedCurve)
	binary.BigEndian.PutUint16(serverECDHParams[1:], uint16(curve))
	serverECDHParams[3] = byte(len(publicKey))

	plaintext := []byte{}
	plaintext = append(plaintext, clientRandom...)
	plaintext = append(plaintext, serverRandom...)
	plaintext = append(plaintext, serverECDHParams...)
	plaintext = append(plaintext, publicKey...)

	return plaintext
}

func generateKeySignature(clientRandom, serverRandom, publicKey []byte, curve namedCurve,
	privateKey crypto.PrivateKey, hashAlg hashAlgorithm,
) ([]byte, error) {
	msg := valueKeyMessage(clientRandom, serverRandom, publicKey, curve)

	return signMessage(msg, privateKey, hashAlg)
}

func verifyKeySignature(clientRandom, serverRandom, publicKey []byte, curve namedCurve,
	signature []byte, hashAlg hashAlgorithm, rawCertificates [][]byte,
) error {
	msg := valueKeyMessage(clientRandom, serverRandom, publicKey, curve)

	return verifySignature(msg, signature, hashAlg, rawCertificates)
}

func generateCertificateVerify(handshakeBodies []byte,
	privateKey crypto.PrivateKey, hashAlg hashAlgorithm,
) ([]byte, error) {
	return signMessage(handshakeBodies, privateKey, hashAlg)
}

func verifyCertificateVerify(handshakeBodies, signature []byte,
	hashAlg hashAlgorithm, rawCertificates [][]byte,
) error {
	return verifySignature(handshakeBodies, signature, hashAlg, rawCertificates)
}

func signMessage(msg []byte, privateKey crypto.PrivateKey, hashAlg hashAlgorithm) ([]byte, error) {
	hashed := hashAlg.digest(msg)
	if hashed == nil {
		return nil, ErrInvalidHashAlgorithm
	}

	switch p := privateKey.(type) {
	case *ecdsa.PrivateKey:
		return p.Sign(rand.Reader, hashed, hashAlg.cryptoHash())
	case *rsa.PrivateKey:
		return rsa.SignPKCS1v15(rand.Reader, p, hashAlg.cryptoHash(), hashed)
	default:
		return nil, ErrInvalidPrivateKey
	}
}

func verifySignature(msg, signature []byte, hashAlg hashAlgorithm, rawCertificates [][]byte) error {
	if len(rawCertificates) == 0 {
		return ErrLengthMismatch
	}
	certificate, err := x509.ParseCertificate(rawCertificates[0])
	if err != nil {
		return err
	}

	hashed := hashAlg.digest(msg)
	if hashed == nil {
		return ErrInvalidHashAlgorithm
	}

	switch p := certificate.PublicKey.(type) {
	case *ecdsa.PublicKey:
		ecdsaSig := &ecdsaSignature{}
		if _, err := asn1.Unmarshal(signature, ecdsaSig); err != nil {
			return err
		}
		if ecdsaSig.R.Sign() <= 0 || ecdsaSig.S.Sign() <= 0 {
			return ErrInvalidECDSASignature
		}
		if !ecdsa.Verify(p, hashed, ecdsaSig.R, ecdsaSig.S) {
			return ErrKeySignatureMismatch
		}

		return nil
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(p, hashAlg.cryptoHash(), hashed, signature)
	default:
		return ErrKeySignatureMismatch
	}
}

// verifyCertificateChain checks the peer chain against the configured roots.
func verifyCertificateChain(rawCertificates [][]byte, roots *x509.CertPool, server bool) error {
	certificates := make([]*x509.Certificate, 0, len(rawCertificates))
	for _, raw := range rawCertificates {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return err
		}
		certificates = append(certificates, cert)
	}
	if len(certificates) == 0 {
		return ErrLengthMismatch
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certificates[1:] {
		intermediates.AddCert(cert)
	}

	keyUsages := []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
	if !server {
		keyUsages = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		CurrentTime:   time.Now(),
		Intermediates: intermediates,
		KeyUsages:     keyUsages,
	}
	_, err := certificates[0].Verify(opts)

	return err
}

// generateAEADAdditionalData builds the 13 byte additional data
// (epoch + sequence, type, version, plaintext length) used by the
// GCM record ciphers and the CBC MAC.
func generateAEADAdditionalData(h *recordLayerHeader, payloadLen int) []byte {
	additionalData := make([]byte, 13)

	binary.BigEndian.PutUint16(additionalData, h.epoch)
	putBigEndianUint48(additionalData[2:], h.sequenceNumber)
	additionalData[8] = byte(h.contentType)
	additionalData[9] = h.protocolVersion.major
	additionalData[10] = h.protocolVersion.minor
	binary.BigEndian.PutUint16(additionalData[11:], uint16(payloadLen)) //nolint:gosec // G115

	return additionalData
}
