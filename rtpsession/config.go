// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"time"

	"github.com/pion/logging"
)

const (
	defaultReceiveMTU     = 8192
	defaultNackInterval   = 100 * time.Millisecond
	defaultNackLogSize    = 512
	defaultSendBufferSize = 512
	defaultReportInterval = 5 * time.Second
	defaultTWCCInterval   = 100 * time.Millisecond
)

// Config collects the settings for a Session. All fields are optional
// except LocalSSRC.
type Config struct {
	// LocalSSRC identifies the local sender. It is used as the packet
	// sender SSRC of generated feedback and as the source of outbound
	// sender reports.
	LocalSSRC uint32

	// ClockRate is the RTP clock rate of the media carried by this
	// session, used for jitter and sender report timestamp math. A
	// zero value disables jitter computation.
	ClockRate uint32

	// ReceiveMTU is the size of the read buffers. Defaults to 8192.
	ReceiveMTU int

	// NackInterval controls how often missing sequence numbers are
	// collected and NACKed. Defaults to 100ms.
	NackInterval time.Duration

	// NackSkipLastN suppresses NACKs for the most recent N sequence
	// numbers, leaving room for reordering before a retransmission is
	// requested.
	NackSkipLastN uint16

	// NackLogSize is the number of sequence numbers tracked per
	// stream, rounded up to a power of two. Defaults to 512.
	NackLogSize uint16

	// SendBufferSize is the number of sent packets retained for
	// retransmission, a power of two. Defaults to 512.
	SendBufferSize uint16

	// ReportInterval controls how often sender and receiver reports
	// are emitted. Defaults to 5s.
	ReportInterval time.Duration

	// TWCCExtensionID is the RTP header extension id carrying the
	// transport-wide sequence number. Zero disables transport-wide
	// congestion control feedback.
	TWCCExtensionID uint8

	// TWCCInterval controls how often transport-wide feedback is
	// emitted. Defaults to 100ms.
	TWCCInterval time.Duration

	LoggerFactory logging.LoggerFactory
}

func (c *Config) setDefaults() {
	if c.ReceiveMTU == 0 {
		c.ReceiveMTU = defaultReceiveMTU
	}
	if c.NackInterval == 0 {
		c.NackInterval = defaultNackInterval
	}
	if c.NackLogSize == 0 {
		c.NackLogSize = defaultNackLogSize
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	if c.ReportInterval == 0 {
		c.ReportInterval = defaultReportInterval
	}
	if c.TWCCInterval == 0 {
		c.TWCCInterval = defaultTWCCInterval
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}
