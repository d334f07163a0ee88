// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "fmt"

type alertLevel byte

const (
	alertLevelWarning alertLevel = 1
	alertLevelFatal   alertLevel = 2
)

func (a alertLevel) String() string {
	switch a {
	case alertLevelWarning:
		return "Warning"
	case alertLevelFatal:
		return "Fatal"
	default:
		return "Invalid alert level"
	}
}

type alertDescription byte

const (
	alertCloseNotify            alertDescription = 0
	alertUnexpectedMessage      alertDescription = 10
	alertBadRecordMac           alertDescription = 20
	alertDecompressionFailure   alertDescription = 30
	alertHandshakeFailure       alertDescription = 40
	alertNoCertificate          alertDescription = 41
	alertBadCertificate         alertDescription = 42
	alertUnsupportedCertificate alertDescription = 43
	alertCertificateRevoked     alertDescription = 44
	alertCertificateExpired     alertDescription = 45
	alertCertificateUnknown     alertDescription = 46
	alertIllegalParameter       alertDescription = 47
	alertUnknownCA              alertDescription = 48
	alertAccessDenied           alertDescription = 49
	alertDecodeError            alertDescription = 50
	alertDecryptError           alertDescription = 51
	alertProtocolVersion        alertDescription = 70
	alertInsufficientSecurity   alertDescription = 71
	alertInternalError          alertDescription = 80
	alertUserCanceled           alertDescription = 90
	alertNoRenegotiation        alertDescription = 100
	alertUnsupportedExtension   alertDescription = 110
)

func (a alertDescription) String() string { //nolint:cyclop
	switch a {
	case alertCloseNotify:
		return "CloseNotify"
	case alertUnexpectedMessage:
		return "UnexpectedMessage"
	case alertBadRecordMac:
		return "BadRecordMac"
	case alertDecompressionFailure:
		return "DecompressionFailure"
	case alertHandshakeFailure:
		return "HandshakeFailure"
	case alertNoCertificate:
		return "NoCertificate"
	case alertBadCertificate:
		return "BadCertificate"
	case alertUnsupportedCertificate:
		return "UnsupportedCertificate"
	case alertCertificateRevoked:
		return "CertificateRevoked"
	case alertCertificateExpired:
		return "CertificateExpired"
	case alertCertificateUnknown:
		return "CertificateUnknown"
	case alertIllegalParameter:
		return "IllegalParameter"
	case alertUnknownCA:
		return "UnknownCA"
	case alertAccessDenied:
		return "AccessDenied"
	case alertDecodeError:
		return "DecodeError"
	case alertDecryptError:
		return "DecryptError"
	case alertProtocolVersion:
		return "ProtocolVersion"
	case alertInsufficientSecurity:
		return "InsufficientSecurity"
	case alertInternalError:
		return "InternalError"
	case alertUserCanceled:
		return "UserCanceled"
	case alertNoRenegotiation:
		return "NoRenegotiation"
	case alertUnsupportedExtension:
		return "UnsupportedExtension"
	default:
		return "Invalid alert description"
	}
}

// One of the content types supported by the TLS record layer is the
// alert type.  Alert messages convey the severity of the message
// (warning or fatal) and a description of the alert.
// https://tools.ietf.org/html/rfc5246#section-7.2
type alert struct {
	alertLevel       alertLevel
	alertDescription alertDescription
}

func (a alert) contentType() contentType {
	return contentTypeAlert
}

func (a *alert) Marshal() ([]byte, error) {
	return []byte{byte(a.alertLevel), byte(a.alertDescription)}, nil
}

func (a *alert) Unmarshal(data []byte) error {
	if len(data) != 2 {
		return ErrBufferTooSmall
	}

	a.alertLevel = alertLevel(data[0])
	a.alertDescription = alertDescription(data[1])

	return nil
}

func (a *alert) String() string {
	return fmt.Sprintf("Alert %s: %s", a.alertLevel, a.alertDescription)
}

// alertError is returned to the caller when the peer (or we) raised a
// fatal alert during the handshake or data transfer.
type alertError struct {
	*alert
}

func (e *alertError) Error() string {
	return fmt.Sprintf("alert: %s", e.alert.String())
}
