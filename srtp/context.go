// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package srtp

import (
	"fmt"

	"github.com/pion/transport/v3/replaydetector"
)

const (
	defaultReplayProtectionWindow = 64

	maxROCDisorder    = 100
	maxSequenceNumber = 65535
	maxROC            = (1 << 32) - 1
	maxSRTCPIndex     = 0x7FFFFFFF

	srtcpHeaderSize = 8
	srtcpIndexSize  = 4
)

// encrypt/decrypt state for a single SRTP SSRC.
type srtpSSRCState struct {
	ssrc                 uint32
	rolloverCounter      uint32
	rolloverHasProcessed bool
	lastSequenceNumber   uint16
	replayDetector       replaydetector.ReplayDetector
}

// encrypt/decrypt state for a single SRTCP SSRC.
type srtcpSSRCState struct {
	srtcpIndex     uint32
	ssrc           uint32
	replayDetector replaydetector.ReplayDetector
}

// Context represents a SRTP cryptographic context.
// Context can only be used for one-way operations.
// it must either used ONLY for encryption or ONLY for decryption.
// Note that Context does not provide any concurrency protection:
// access to a Context from multiple goroutines requires external
// synchronization.
type Context struct {
	cipher srtpCipher

	srtpSSRCStates  map[uint32]*srtpSSRCState
	srtcpSSRCStates map[uint32]*srtcpSSRCState

	newSRTPReplayDetector  func() replaydetector.ReplayDetector
	newSRTCPReplayDetector func() replaydetector.ReplayDetector

	profile ProtectionProfile
}

// CreateContext creates a new SRTP Context.
//
// CreateContext receives variable number of ContextOption-s.
// Passing multiple options which set the same parameter let the last one valid.
func CreateContext(masterKey, masterSalt []byte, profile ProtectionProfile, opts ...ContextOption) (c *Context, err error) {
	keyLen, err := profile.KeyLen()
	if err != nil {
		return nil, err
	}

	saltLen, err := profile.SaltLen()
	if err != nil {
		return nil, err
	}

	if masterKeyLen := len(masterKey); masterKeyLen != keyLen {
		return c, fmt.Errorf("%w expected(%d) actual(%d)", errShortSrtpMasterKey, keyLen, masterKeyLen)
	} else if masterSaltLen := len(masterSalt); masterSaltLen != saltLen {
		return c, fmt.Errorf("%w expected(%d) actual(%d)", errShortSrtpMasterSalt, saltLen, masterSaltLen)
	}

	ctx := &Context{
		srtpSSRCStates:  map[uint32]*srtpSSRCState{},
		srtcpSSRCStates: map[uint32]*srtcpSSRCState{},
		profile:         profile,
	}

	switch profile {
	case ProtectionProfileAeadAes128Gcm, ProtectionProfileAeadAes256Gcm:
		ctx.cipher, err = newSrtpCipherAeadAesGcm(profile, masterKey, masterSalt)
	case ProtectionProfileAes128CmHmacSha1_32, ProtectionProfileAes128CmHmacSha1_80:
		ctx.cipher, err = newSrtpCipherAesCmHmacSha1(profile, masterKey, masterSalt)
	default:
		return nil, fmt.Errorf("%w: %#v", errNoSuchSRTPProfile, profile)
	}
	if err != nil {
		return nil, err
	}

	for _, o := range append(
		[]ContextOption{ // Default options
			SRTPReplayProtection(defaultReplayProtectionWindow),
			SRTCPReplayProtection(defaultReplayProtectionWindow),
		},
		opts..., // User specified options
	) {
		if errOpt := o(ctx); errOpt != nil {
			return nil, errOpt
		}
	}

	return ctx, nil
}

// nextRolloverCount returns the rollover count the incoming sequence
// number belongs to, and an update function that must be called once
// the packet passed authentication.
//
// A sequence number just past zero while the last one was just below
// the maximum indicates a rollover. The opposite pattern is a
// reordered packet from before the rollover.
func (s *srtpSSRCState) nextRolloverCount(sequenceNumber uint16) (uint32, func()) {
	roc := s.rolloverCounter

	if s.rolloverHasProcessed {
		switch {
		case sequenceNumber < maxROCDisorder &&
			s.lastSequenceNumber > maxSequenceNumber-maxROCDisorder:
			roc++
		case sequenceNumber > maxSequenceNumber-maxROCDisorder &&
			s.lastSequenceNumber < maxROCDisorder:
			if roc > 0 {
				roc--
			}
		}
	}

	return roc, func() {
		s.rolloverHasProcessed = true
		s.rolloverCounter = roc
		s.lastSequenceNumber = sequenceNumber
	}
}

func (c *Context) getSRTPSSRCState(ssrc uint32) *srtpSSRCState {
	s, ok := c.srtpSSRCStates[ssrc]
	if ok {
		return s
	}

	s = &srtpSSRCState{
		ssrc:           ssrc,
		replayDetector: c.newSRTPReplayDetector(),
	}
	c.srtpSSRCStates[ssrc] = s

	return s
}

func (c *Context) getSRTCPSSRCState(ssrc uint32) *srtcpSSRCState {
	s, ok := c.srtcpSSRCStates[ssrc]
	if ok {
		return s
	}

	s = &srtcpSSRCState{
		ssrc:           ssrc,
		replayDetector: c.newSRTCPReplayDetector(),
	}
	c.srtcpSSRCStates[ssrc] = s

	return s
}

// nextSRTCPIndex returns the index to use for the next outbound SRTCP
// packet. The index is 31 bits and wraps.
func (s *srtcpSSRCState) nextSRTCPIndex() uint32 {
	s.srtcpIndex++
	if s.srtcpIndex > maxSRTCPIndex {
		s.srtcpIndex = 0
	}

	return s.srtcpIndex
}

// ROC returns SRTP rollover counter value of specified SSRC.
func (c *Context) ROC(ssrc uint32) (uint32, bool) {
	s, ok := c.srtpSSRCStates[ssrc]
	if !ok {
		return 0, false
	}

	return s.rolloverCounter, true
}

// SetROC sets SRTP rollover counter value of specified SSRC.
func (c *Context) SetROC(ssrc uint32, roc uint32) {
	s := c.getSRTPSSRCState(ssrc)
	s.rolloverCounter = roc
	s.rolloverHasProcessed = false
}

// Index returns SRTCP index value of specified SSRC.
func (c *Context) Index(ssrc uint32) (uint32, bool) {
	s, ok := c.srtcpSSRCStates[ssrc]
	if !ok {
		return 0, false
	}

	return s.srtcpIndex, true
}

// SetIndex sets SRTCP index value of specified SSRC.
func (c *Context) SetIndex(ssrc uint32, index uint32) {
	s := c.getSRTCPSSRCState(ssrc)
	s.srtcpIndex = index % (maxSRTCPIndex + 1)
}
