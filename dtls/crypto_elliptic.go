// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// ellipticCurveType is always named_curve for the exchanges we offer.
// https://tools.ietf.org/html/rfc4492#section-5.4
type ellipticCurveType byte

const (
	ellipticCurveTypeNamedCurve ellipticCurveType = 0x03
)

type namedCurve uint16

// https://tools.ietf.org/html/rfc8422#section-5.1.1
const (
	namedCurveP256   namedCurve = 0x0017
	namedCurveP384   namedCurve = 0x0018
	namedCurveX25519 namedCurve = 0x001d
)

func defaultNamedCurves() []namedCurve {
	return []namedCurve{namedCurveX25519, namedCurveP256, namedCurveP384}
}

type namedCurveKeypair struct {
	curve      namedCurve
	publicKey  []byte
	privateKey []byte
}

func generateKeypair(c namedCurve) (*namedCurveKeypair, error) {
	switch c {
	case namedCurveX25519:
		tmp := make([]byte, 32)
		if _, err := rand.Read(tmp); err != nil {
			return nil, err
		}

		public, err := curve25519.X25519(tmp, curve25519.Basepoint)
		if err != nil {
			return nil, err
		}

		return &namedCurveKeypair{namedCurveX25519, public, tmp}, nil
	case namedCurveP256:
		return ecdhKeypair(namedCurveP256, ecdh.P256())
	case namedCurveP384:
		return ecdhKeypair(namedCurveP384, ecdh.P384())
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedNamedCurve, c)
	}
}

func ecdhKeypair(c namedCurve, curve ecdh.Curve) (*namedCurveKeypair, error) {
	privateKey, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &namedCurveKeypair{c, privateKey.PublicKey().Bytes(), privateKey.Bytes()}, nil
}

// generatePreMasterSecret runs the ECDH agreement between our private key
// and the peer's public value.
func generatePreMasterSecret(publicKey, privateKey []byte, curve namedCurve) ([]byte, error) {
	switch curve {
	case namedCurveX25519:
		return curve25519.X25519(privateKey, publicKey)
	case namedCurveP256:
		return ecdhPreMasterSecret(ecdh.P256(), publicKey, privateKey)
	case namedCurveP384:
		return ecdhPreMasterSecret(ecdh.P384(), publicKey, privateKey)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedNamedCurve, curve)
	}
}

func ecdhPreMasterSecret(curve ecdh.Curve, publicKey, privateKey []byte) ([]byte, error) {
	priv, err := curve.NewPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	pub, err := curve.NewPublicKey(publicKey)
	if err != nil {
		return nil, err
	}

	return priv.ECDH(pub)
}
