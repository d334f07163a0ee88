// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package rtpsession implements an RTP/RTCP session on top of a pair
// of packet connections. It demultiplexes inbound RTP by SSRC into
// streams, generates NACK and transport-wide congestion control
// feedback for received media, answers inbound NACKs from a
// retransmission buffer, and exchanges periodic sender and receiver
// reports, RFC 3550.
package rtpsession

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/halcyonlabs/rtcstack/rtcp"
	"github.com/halcyonlabs/rtcstack/rtp"
	"github.com/pion/logging"
)

// Session demultiplexes RTP and RTCP traffic and maintains the
// feedback loops of a single RTP session.
type Session struct {
	rtpConn  net.Conn
	rtcpConn net.Conn

	config Config
	log    logging.LeveledLogger

	rtpWriteMu  sync.Mutex
	rtcpWriteMu sync.Mutex

	sendBuffer  *sendBuffer
	senderStats *senderStats
	twcc        *TWCCRecorder

	streamsMu   sync.RWMutex
	readStreams map[uint32]*ReadStream
	acceptCh    chan *ReadStream

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession starts a session over rtpConn and rtcpConn. The two may
// be the same connection when RTP and RTCP are multiplexed; packets
// are still routed by which API they arrive on.
func NewSession(rtpConn, rtcpConn net.Conn, config Config) (*Session, error) {
	config.setDefaults()

	buffer, err := newSendBuffer(config.SendBufferSize)
	if err != nil {
		return nil, err
	}

	s := &Session{
		rtpConn:     rtpConn,
		rtcpConn:    rtcpConn,
		config:      config,
		log:         config.LoggerFactory.NewLogger("rtpsession"),
		sendBuffer:  buffer,
		senderStats: newSenderStats(config.ClockRate),
		readStreams: map[uint32]*ReadStream{},
		acceptCh:    make(chan *ReadStream, 32),
		closed:      make(chan struct{}),
	}
	if config.TWCCExtensionID != 0 {
		s.twcc = NewTWCCRecorder(config.LocalSSRC)
	}

	go s.rtpReadLoop()
	go s.rtcpReadLoop()
	go s.nackLoop()
	go s.reportLoop()
	if s.twcc != nil {
		go s.twccLoop()
	}

	return s, nil
}

// AcceptStream returns the next inbound stream with a not yet seen
// SSRC.
func (s *Session) AcceptStream() (*ReadStream, error) {
	select {
	case stream := <-s.acceptCh:
		return stream, nil
	case <-s.closed:
		return nil, errSessionClosed
	}
}

// OpenReadStream returns the stream for ssrc, creating it if no
// packets have arrived yet. A stream opened this way is not delivered
// by AcceptStream.
func (s *Session) OpenReadStream(ssrc uint32) (*ReadStream, error) {
	stream, _, err := s.getOrCreateReadStream(ssrc)

	return stream, err
}

// WriteRTP marshals and sends an RTP packet, retaining a copy for
// retransmission.
func (s *Session) WriteRTP(packet *rtp.Packet) (int, error) {
	select {
	case <-s.closed:
		return 0, errSessionClosed
	default:
	}

	raw, err := packet.Marshal()
	if err != nil {
		return 0, err
	}

	s.sendBuffer.add(packet.Clone())
	s.senderStats.recordSent(len(packet.Payload), packet.Timestamp, time.Now())

	s.rtpWriteMu.Lock()
	defer s.rtpWriteMu.Unlock()

	return s.rtpConn.Write(raw)
}

// WriteRTCP marshals and sends a compound RTCP packet.
func (s *Session) WriteRTCP(pkts []rtcp.Packet) (int, error) {
	select {
	case <-s.closed:
		return 0, errSessionClosed
	default:
	}

	raw, err := rtcp.Marshal(pkts)
	if err != nil {
		return 0, err
	}

	s.rtcpWriteMu.Lock()
	defer s.rtcpWriteMu.Unlock()

	return s.rtcpConn.Write(raw)
}

// Close shuts down the session and unblocks all pending reads.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)

		s.streamsMu.Lock()
		for _, stream := range s.readStreams {
			_ = stream.buffer.Close()
		}
		s.readStreams = map[uint32]*ReadStream{}
		s.streamsMu.Unlock()

		err = s.rtpConn.Close()
		if rtcpErr := s.rtcpConn.Close(); rtcpErr != nil && err == nil {
			err = rtcpErr
		}
	})

	return err
}

func (s *Session) getOrCreateReadStream(ssrc uint32) (*ReadStream, bool, error) {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()

	select {
	case <-s.closed:
		return nil, false, errSessionClosed
	default:
	}

	if stream, ok := s.readStreams[ssrc]; ok {
		return stream, false, nil
	}

	stream, err := newReadStream(s, ssrc)
	if err != nil {
		return nil, false, err
	}
	s.readStreams[ssrc] = stream

	return stream, true, nil
}

func (s *Session) removeReadStream(ssrc uint32) {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()

	delete(s.readStreams, ssrc)
}

func (s *Session) listReadStreams() []*ReadStream {
	s.streamsMu.RLock()
	defer s.streamsMu.RUnlock()

	streams := make([]*ReadStream, 0, len(s.readStreams))
	for _, stream := range s.readStreams {
		streams = append(streams, stream)
	}

	return streams
}

func (s *Session) rtpReadLoop() {
	buf := make([]byte, s.config.ReceiveMTU)
	for {
		n, err := s.rtpConn.Read(buf)
		if err != nil {
			s.shutdownOnReadError(err)

			return
		}

		header := &rtp.Header{}
		if _, err = header.Unmarshal(buf[:n]); err != nil {
			s.log.Warnf("failed to parse RTP header: %v", err)

			continue
		}

		stream, isNew, err := s.getOrCreateReadStream(header.SSRC)
		if err != nil {
			return
		}
		if isNew {
			select {
			case s.acceptCh <- stream:
			default:
				s.log.Warnf("dropping inbound stream %d, accept queue full", header.SSRC)
				s.removeReadStream(header.SSRC)
				_ = stream.buffer.Close()

				continue
			}
		}

		now := time.Now()
		stream.receiveLog.add(header.SequenceNumber)
		stream.stats.record(header.SequenceNumber, header.Timestamp, now)

		if s.twcc != nil {
			if ext := header.GetExtension(s.config.TWCCExtensionID); len(ext) >= 2 {
				s.twcc.Record(header.SSRC, binary.BigEndian.Uint16(ext), now.UnixMicro())
			}
		}

		if _, err = stream.buffer.Write(buf[:n]); err != nil {
			s.log.Warnf("failed to buffer RTP packet for %d: %v", header.SSRC, err)
		}
	}
}

func (s *Session) rtcpReadLoop() {
	buf := make([]byte, s.config.ReceiveMTU)
	for {
		n, err := s.rtcpConn.Read(buf)
		if err != nil {
			s.shutdownOnReadError(err)

			return
		}

		pkts, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			s.log.Warnf("failed to parse RTCP packet: %v", err)

			continue
		}

		for _, pkt := range pkts {
			s.handleRTCP(pkt)
		}
	}
}

func (s *Session) handleRTCP(pkt rtcp.Packet) {
	switch p := pkt.(type) {
	case *rtcp.TransportLayerNack:
		s.resendNacked(p)
	case *rtcp.SenderReport:
		s.streamsMu.RLock()
		stream, ok := s.readStreams[p.SSRC]
		s.streamsMu.RUnlock()
		if ok {
			stream.stats.onSenderReport(p, time.Now())
		}
	default:
	}
}

func (s *Session) resendNacked(nack *rtcp.TransportLayerNack) {
	for _, pair := range nack.Nacks {
		pair.Range(func(seq uint16) bool {
			packet := s.sendBuffer.get(seq)
			if packet == nil {
				return true
			}

			raw, err := packet.Marshal()
			if err != nil {
				return true
			}

			s.rtpWriteMu.Lock()
			_, err = s.rtpConn.Write(raw)
			s.rtpWriteMu.Unlock()
			if err != nil {
				s.log.Warnf("failed to retransmit %d: %v", seq, err)

				return false
			}

			return true
		})
	}
}

func (s *Session) nackLoop() {
	ticker := time.NewTicker(s.config.NackInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-s.closed:
			return
		}

		var pkts []rtcp.Packet
		for _, stream := range s.listReadStreams() {
			missing := stream.receiveLog.missingSeqNumbers(s.config.NackSkipLastN)
			if len(missing) == 0 {
				continue
			}
			pkts = append(pkts, &rtcp.TransportLayerNack{
				SenderSSRC: s.config.LocalSSRC,
				MediaSSRC:  stream.ssrc,
				Nacks:      rtcp.NackPairsFromSequenceNumbers(missing),
			})
		}
		if len(pkts) == 0 {
			continue
		}
		if _, err := s.WriteRTCP(pkts); err != nil {
			return
		}
	}
}

func (s *Session) reportLoop() {
	ticker := time.NewTicker(s.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-s.closed:
			return
		}

		now := time.Now()
		var reports []rtcp.ReceptionReport
		for _, stream := range s.listReadStreams() {
			reports = append(reports, stream.stats.buildReceptionReport(now))
		}

		var pkt rtcp.Packet
		sr := s.senderStats.buildSenderReport(s.config.LocalSSRC, now)
		if sr.PacketCount > 0 {
			sr.Reports = reports
			pkt = sr
		} else {
			pkt = &rtcp.ReceiverReport{
				SSRC:    s.config.LocalSSRC,
				Reports: reports,
			}
		}

		if _, err := s.WriteRTCP([]rtcp.Packet{pkt}); err != nil {
			return
		}
	}
}

func (s *Session) twccLoop() {
	ticker := time.NewTicker(s.config.TWCCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-s.closed:
			return
		}

		fb, err := s.twcc.BuildFeedbackPacket()
		if err != nil {
			continue
		}
		if _, err := s.WriteRTCP([]rtcp.Packet{fb}); err != nil {
			return
		}
	}
}

func (s *Session) shutdownOnReadError(err error) {
	select {
	case <-s.closed:
	default:
		s.log.Warnf("read loop exiting: %v", err)
		_ = s.Close()
	}
}
