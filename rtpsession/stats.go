// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"sync"
	"time"

	"github.com/halcyonlabs/rtcstack/rtcp"
)

// receiverStats tracks the per source statistics required to fill in an
// RTCP reception report, RFC 3550 sec 6.4.1 and appendix A.
type receiverStats struct {
	mu sync.Mutex

	ssrc      uint32
	clockRate uint32

	initialized bool
	baseSeq     uint16
	maxSeq      uint16
	cycles      uint32
	received    uint32

	expectedPrior uint32
	receivedPrior uint32

	transit int64
	jitter  float64

	lastSenderReport     uint32
	lastSenderReportTime time.Time
}

func newReceiverStats(ssrc, clockRate uint32) *receiverStats {
	return &receiverStats{ssrc: ssrc, clockRate: clockRate}
}

func (s *receiverStats) record(sequenceNumber uint16, timestamp uint32, arrival time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		s.initialized = true
		s.baseSeq = sequenceNumber
		s.maxSeq = sequenceNumber
		s.received = 1
		s.transit = s.transitFor(timestamp, arrival)

		return
	}

	if isNewerUint16(sequenceNumber, s.maxSeq) {
		if sequenceNumber < s.maxSeq {
			s.cycles++
		}
		s.maxSeq = sequenceNumber
	}
	s.received++
	s.updateJitter(timestamp, arrival)
}

func (s *receiverStats) transitFor(timestamp uint32, arrival time.Time) int64 {
	arrivalRTP := arrival.UnixNano() * int64(s.clockRate) / int64(time.Second)

	return arrivalRTP - int64(timestamp)
}

// updateJitter implements the interarrival jitter estimator from
// RFC 3550 appendix A.8. Caller must hold mu.
func (s *receiverStats) updateJitter(timestamp uint32, arrival time.Time) {
	if s.clockRate == 0 {
		return
	}
	transit := s.transitFor(timestamp, arrival)
	d := transit - s.transit
	s.transit = transit
	if d < 0 {
		d = -d
	}
	s.jitter += (float64(d) - s.jitter) / 16
}

func (s *receiverStats) onSenderReport(sr *rtcp.SenderReport, arrival time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSenderReport = uint32(sr.NTPTime >> 16) //nolint:gosec // G115
	s.lastSenderReportTime = arrival
}

func (s *receiverStats) extendedHighestSequence() uint32 {
	return s.cycles<<16 | uint32(s.maxSeq)
}

func (s *receiverStats) buildReceptionReport(now time.Time) rtcp.ReceptionReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	extendedMax := s.cycles<<16 | uint32(s.maxSeq)
	expected := extendedMax - uint32(s.baseSeq) + 1

	var lost uint32
	if expected > s.received {
		lost = expected - s.received
	}
	// cumulative loss is carried in a 24 bit field
	if lost > 0xffffff {
		lost = 0xffffff
	}

	expectedInterval := expected - s.expectedPrior
	receivedInterval := s.received - s.receivedPrior
	s.expectedPrior = expected
	s.receivedPrior = s.received

	var fractionLost uint8
	if expectedInterval != 0 && expectedInterval > receivedInterval {
		lostInterval := expectedInterval - receivedInterval
		fractionLost = uint8((lostInterval << 8) / expectedInterval) //nolint:gosec // G115
	}

	var lastSR, delay uint32
	if !s.lastSenderReportTime.IsZero() {
		lastSR = s.lastSenderReport
		// delay since last SR in 1/65536 seconds
		delay = uint32(now.Sub(s.lastSenderReportTime).Seconds() * 65536) //nolint:gosec // G115
	}

	return rtcp.ReceptionReport{
		SSRC:               s.ssrc,
		FractionLost:       fractionLost,
		TotalLost:          lost,
		LastSequenceNumber: extendedMax,
		Jitter:             uint32(s.jitter),
		LastSenderReport:   lastSR,
		Delay:              delay,
	}
}

// senderStats tracks outbound counters for RTCP sender reports.
type senderStats struct {
	mu sync.Mutex

	clockRate uint32

	packetCount   uint32
	octetCount    uint32
	lastRTPTime   uint32
	lastWriteTime time.Time
}

func newSenderStats(clockRate uint32) *senderStats {
	return &senderStats{clockRate: clockRate}
}

func (s *senderStats) recordSent(payloadLen int, timestamp uint32, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.packetCount++
	s.octetCount += uint32(payloadLen) //nolint:gosec // G115
	s.lastRTPTime = timestamp
	s.lastWriteTime = now
}

func (s *senderStats) buildSenderReport(ssrc uint32, now time.Time) *rtcp.SenderReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	rtpTime := s.lastRTPTime
	if !s.lastWriteTime.IsZero() && s.clockRate != 0 {
		elapsed := now.Sub(s.lastWriteTime)
		rtpTime += uint32(elapsed.Seconds() * float64(s.clockRate)) //nolint:gosec // G115
	}

	return &rtcp.SenderReport{
		SSRC:        ssrc,
		NTPTime:     toNtpTime(now),
		RTPTime:     rtpTime,
		PacketCount: s.packetCount,
		OctetCount:  s.octetCount,
	}
}

// toNtpTime converts a time.Time to a 64 bit fixed point NTP timestamp.
func toNtpTime(t time.Time) uint64 {
	// seconds between 1st January 1900 and 1st January 1970
	const ntpEpochOffset = 2208988800

	nsec := uint64(t.UnixNano()) //nolint:gosec // G115
	sec := nsec/uint64(time.Second) + ntpEpochOffset
	frac := nsec % uint64(time.Second)
	frac = (frac << 32) / uint64(time.Second)

	return sec<<32 | frac
}

// isNewerUint16 reports whether a is newer than b using RFC 1982
// serial number arithmetic.
func isNewerUint16(a, b uint16) bool {
	return a != b && a-b < 1<<15
}
