// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"github.com/halcyonlabs/rtcstack/rtp"
	"github.com/pion/transport/v3/packetio"
)

// ReadStream handles the inbound RTP packets of a single SSRC.
type ReadStream struct {
	session *Session
	ssrc    uint32
	buffer  *packetio.Buffer

	receiveLog *receiveLog
	stats      *receiverStats
}

func newReadStream(session *Session, ssrc uint32) (*ReadStream, error) {
	log, err := newReceiveLog(session.config.NackLogSize)
	if err != nil {
		return nil, err
	}

	return &ReadStream{
		session:    session,
		ssrc:       ssrc,
		buffer:     packetio.NewBuffer(),
		receiveLog: log,
		stats:      newReceiverStats(ssrc, session.config.ClockRate),
	}, nil
}

// SSRC returns the synchronization source this stream is reading.
func (r *ReadStream) SSRC() uint32 {
	return r.ssrc
}

// Read reads a full RTP packet into buf.
func (r *ReadStream) Read(buf []byte) (int, error) {
	return r.buffer.Read(buf)
}

// ReadRTP reads a full RTP packet and its parsed header from the
// stream.
func (r *ReadStream) ReadRTP(buf []byte) (int, *rtp.Header, error) {
	n, err := r.buffer.Read(buf)
	if err != nil {
		return 0, nil, err
	}

	header := &rtp.Header{}
	if _, err = header.Unmarshal(buf[:n]); err != nil {
		return 0, nil, err
	}

	return n, header, nil
}

// Close removes the stream from the session. Blocked Reads are
// unblocked with io.EOF.
func (r *ReadStream) Close() error {
	r.session.removeReadStream(r.ssrc)

	return r.buffer.Close()
}
