// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package datachannel

import (
	"errors"
	"fmt"
)

// message is a parsed DataChannel message.
type message interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// messageType is the first byte in a DataChannel message that specifies type.
type messageType byte

// DataChannel Message Types.
const (
	dataChannelAck  messageType = 0x02
	dataChannelOpen messageType = 0x03
)

func (t messageType) String() string {
	switch t {
	case dataChannelAck:
		return "DataChannelAck"
	case dataChannelOpen:
		return "DataChannelOpen"
	default:
		return fmt.Sprintf("Unknown MessageType: %d", t)
	}
}

// Message parsing errors.
var (
	ErrDataChannelMessageTooShort = errors.New("DataChannel message is not long enough to determine type")
	ErrInvalidMessageType         = errors.New("invalid message type")
)

// parse accepts raw input and returns a DataChannel message.
func parse(data []byte) (message, error) {
	if len(data) == 0 {
		return nil, ErrDataChannelMessageTooShort
	}

	var msg message
	switch messageType(data[0]) {
	case dataChannelOpen:
		msg = &channelOpen{}
	case dataChannelAck:
		msg = &channelAck{}
	default:
		return nil, fmt.Errorf("%w %v", ErrInvalidMessageType, messageType(data[0]))
	}

	if err := msg.Unmarshal(data); err != nil {
		return nil, err
	}

	return msg, nil
}

// parseExpectDataChannelOpen parses a DataChannelOpen message
// or throws an error.
func parseExpectDataChannelOpen(data []byte) (*channelOpen, error) {
	if len(data) == 0 {
		return nil, ErrDataChannelMessageTooShort
	}

	if actualTyp := messageType(data[0]); actualTyp != dataChannelOpen {
		return nil, fmt.Errorf("%w expected(%s) actual(%s)", ErrUnexpectedDataChannelType, actualTyp, dataChannelOpen)
	}

	msg := &channelOpen{}
	if err := msg.Unmarshal(data); err != nil {
		return nil, err
	}

	return msg, nil
}
