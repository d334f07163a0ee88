// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

type fragment struct {
	recordLayerHeader recordLayerHeader
	handshakeHeader   handshakeHeader
	data              []byte
}

// fragmentBuffer reassembles handshake messages that were split across
// records. Messages are released strictly in message_seq order so the
// transcript stays deterministic.
type fragmentBuffer struct {
	// map of message_sequence_numbers that hold slices of fragments
	cache map[uint16][]*fragment

	currentMessageSequenceNumber uint16
}

func newFragmentBuffer() *fragmentBuffer {
	return &fragmentBuffer{cache: map[uint16][]*fragment{}}
}

// push adds one record-layer buffer holding a handshake fragment. Returns
// true if the fragment was consumed (it belongs to the handshake content
// type), false otherwise.
func (f *fragmentBuffer) push(buf []byte) (bool, error) {
	frag := new(fragment)
	if err := frag.recordLayerHeader.Unmarshal(buf); err != nil {
		return false, err
	}

	// fragment isn't a handshake, we don't need to handle it
	if frag.recordLayerHeader.contentType != contentTypeHandshake {
		return false, nil
	}

	buf = buf[recordLayerHeaderSize:]
	if err := frag.handshakeHeader.Unmarshal(buf); err != nil {
		return false, err
	}

	// a fragment for a message we already delivered
	if frag.handshakeHeader.messageSequence < f.currentMessageSequenceNumber {
		return true, nil
	}

	if int(frag.handshakeHeader.fragmentLength) != len(buf)-handshakeHeaderLength {
		return false, ErrLengthMismatch
	}
	frag.data = append([]byte{}, buf[handshakeHeaderLength:]...)

	f.cache[frag.handshakeHeader.messageSequence] = append(
		f.cache[frag.handshakeHeader.messageSequence], frag)

	return true, nil
}

// pop returns the next whole handshake message, or nil when the message
// with the expected sequence number is still incomplete.
func (f *fragmentBuffer) pop() (content []byte, epoch uint16) {
	frags, ok := f.cache[f.currentMessageSequenceNumber]
	if !ok {
		return nil, 0
	}

	// Go doesn't support recursive local functions
	var appendMessage func(targetOffset uint32) bool

	rawMessage := []byte{}
	appendMessage = func(targetOffset uint32) bool {
		for _, f := range frags {
			if f.handshakeHeader.fragmentOffset == targetOffset {
				fragmentEnd := f.handshakeHeader.fragmentOffset + f.handshakeHeader.fragmentLength
				if fragmentEnd != f.handshakeHeader.length {
					if !appendMessage(fragmentEnd) {
						return false
					}
				}

				rawMessage = append(append([]byte{}, f.data...), rawMessage...)

				return true
			}
		}

		return false
	}

	if !appendMessage(0) {
		return nil, 0
	}

	firstHeader := frags[0].handshakeHeader
	firstHeader.fragmentOffset = 0
	firstHeader.fragmentLength = firstHeader.length

	rawHeader, err := firstHeader.Marshal()
	if err != nil {
		return nil, 0
	}

	messageEpoch := frags[0].recordLayerHeader.epoch

	delete(f.cache, f.currentMessageSequenceNumber)
	f.currentMessageSequenceNumber++

	return append(rawHeader, rawMessage...), messageEpoch
}
