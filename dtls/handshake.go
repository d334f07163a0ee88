// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"encoding/binary"
	"fmt"
)

// https://tools.ietf.org/html/rfc5246#section-7.4
type handshakeType uint8

const (
	handshakeTypeHelloRequest       handshakeType = 0
	handshakeTypeClientHello        handshakeType = 1
	handshakeTypeServerHello        handshakeType = 2
	handshakeTypeHelloVerifyRequest handshakeType = 3
	handshakeTypeCertificate        handshakeType = 11
	handshakeTypeServerKeyExchange  handshakeType = 12
	handshakeTypeCertificateRequest handshakeType = 13
	handshakeTypeServerHelloDone    handshakeType = 14
	handshakeTypeCertificateVerify  handshakeType = 15
	handshakeTypeClientKeyExchange  handshakeType = 16
	handshakeTypeFinished           handshakeType = 20
)

func (h handshakeType) String() string {
	switch h {
	case handshakeTypeHelloRequest:
		return "HelloRequest"
	case handshakeTypeClientHello:
		return "ClientHello"
	case handshakeTypeServerHello:
		return "ServerHello"
	case handshakeTypeHelloVerifyRequest:
		return "HelloVerifyRequest"
	case handshakeTypeCertificate:
		return "Certificate"
	case handshakeTypeServerKeyExchange:
		return "ServerKeyExchange"
	case handshakeTypeCertificateRequest:
		return "CertificateRequest"
	case handshakeTypeServerHelloDone:
		return "ServerHelloDone"
	case handshakeTypeCertificateVerify:
		return "CertificateVerify"
	case handshakeTypeClientKeyExchange:
		return "ClientKeyExchange"
	case handshakeTypeFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Unknown HandshakeType: %d", uint8(h))
	}
}

type handshakeMessage interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error

	handshakeType() handshakeType
}

const handshakeHeaderLength = 12

/*
handshakeHeader is the DTLS extension of the TLS handshake header.
message_seq tracks the position in the transcript, the fragment fields
allow one message to span multiple records.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|   Msg Type    |                   Length                      |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|          Message Seq          |         Fragment Offset       |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	| Fragment Off. |                Fragment Length                |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	| Fragment Len. |
	+-+-+-+-+-+-+-+-+
*/
type handshakeHeader struct {
	handshakeType   handshakeType
	length          uint32 // uint24 on the wire
	messageSequence uint16
	fragmentOffset  uint32 // uint24 on the wire
	fragmentLength  uint32 // uint24 on the wire
}

func (h *handshakeHeader) Marshal() ([]byte, error) {
	out := make([]byte, handshakeHeaderLength)

	out[0] = byte(h.handshakeType)
	putBigEndianUint24(out[1:], h.length)
	binary.BigEndian.PutUint16(out[4:], h.messageSequence)
	putBigEndianUint24(out[6:], h.fragmentOffset)
	putBigEndianUint24(out[9:], h.fragmentLength)

	return out, nil
}

func (h *handshakeHeader) Unmarshal(data []byte) error {
	if len(data) < handshakeHeaderLength {
		return ErrBufferTooSmall
	}

	h.handshakeType = handshakeType(data[0])
	h.length = bigEndianUint24(data[1:])
	h.messageSequence = binary.BigEndian.Uint16(data[4:])
	h.fragmentOffset = bigEndianUint24(data[6:])
	h.fragmentLength = bigEndianUint24(data[9:])

	return nil
}

// handshake carries one whole (reassembled) handshake message.
type handshake struct {
	handshakeHeader  handshakeHeader
	handshakeMessage handshakeMessage
}

func (h handshake) contentType() contentType {
	return contentTypeHandshake
}

func (h *handshake) Marshal() ([]byte, error) {
	if h.handshakeMessage == nil {
		return nil, ErrHandshakeMessageUnset
	} else if h.handshakeHeader.fragmentOffset != 0 {
		return nil, ErrUnableToMarshalFragmented
	}

	msg, err := h.handshakeMessage.Marshal()
	if err != nil {
		return nil, err
	}

	h.handshakeHeader.length = uint32(len(msg))         //nolint:gosec // G115
	h.handshakeHeader.fragmentLength = uint32(len(msg)) //nolint:gosec // G115
	h.handshakeHeader.handshakeType = h.handshakeMessage.handshakeType()
	header, err := h.handshakeHeader.Marshal()
	if err != nil {
		return nil, err
	}

	return append(header, msg...), nil
}

func (h *handshake) Unmarshal(data []byte) error {
	if err := h.handshakeHeader.Unmarshal(data); err != nil {
		return err
	}

	reportedLen := bigEndianUint24(data[1:])
	if uint32(len(data)-handshakeHeaderLength) != reportedLen { //nolint:gosec // G115
		return ErrLengthMismatch
	} else if reportedLen != h.handshakeHeader.fragmentLength {
		return ErrLengthMismatch
	}

	switch handshakeType(data[0]) {
	case handshakeTypeClientHello:
		h.handshakeMessage = &handshakeMessageClientHello{}
	case handshakeTypeHelloVerifyRequest:
		h.handshakeMessage = &handshakeMessageHelloVerifyRequest{}
	case handshakeTypeServerHello:
		h.handshakeMessage = &handshakeMessageServerHello{}
	case handshakeTypeCertificate:
		h.handshakeMessage = &handshakeMessageCertificate{}
	case handshakeTypeServerKeyExchange:
		h.handshakeMessage = &handshakeMessageServerKeyExchange{}
	case handshakeTypeCertificateRequest:
		h.handshakeMessage = &handshakeMessageCertificateRequest{}
	case handshakeTypeServerHelloDone:
		h.handshakeMessage = &handshakeMessageServerHelloDone{}
	case handshakeTypeClientKeyExchange:
		h.handshakeMessage = &handshakeMessageClientKeyExchange{}
	case handshakeTypeCertificateVerify:
		h.handshakeMessage = &handshakeMessageCertificateVerify{}
	case handshakeTypeFinished:
		h.handshakeMessage = &handshakeMessageFinished{}
	default:
		return ErrNotImplemented
	}

	return h.handshakeMessage.Unmarshal(data[handshakeHeaderLength:])
}
