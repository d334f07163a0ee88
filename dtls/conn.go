// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package dtls implements Datagram Transport Layer Security (DTLS) 1.2
package dtls

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/deadline"
	"github.com/pion/transport/v3/replaydetector"
)

const (
	receiveMTU           = 8192
	defaultReplayWindow  = 64
	decryptedChannelSize = 64
)

// flightItem is one record's worth of content pending transmission. A
// whole flight is kept so it can be retransmitted as a unit.
type flightItem struct {
	epoch   uint16
	content content
}

// handshakeFragment is a pre-marshaled handshake fragment. Outbound
// fragmentation happens before record framing so retransmits reuse the
// same split.
type handshakeFragment struct {
	raw []byte
}

func (h *handshakeFragment) contentType() contentType { return contentTypeHandshake }
func (h *handshakeFragment) Marshal() ([]byte, error) { return h.raw, nil }
func (h *handshakeFragment) Unmarshal([]byte) error   { return ErrNotImplemented }

// Conn represents a DTLS connection.
type Conn struct {
	lock     sync.RWMutex
	nextConn net.Conn
	config   *Config

	state State

	handshakeCache     *handshakeCache
	fragmentBuffer     *fragmentBuffer
	replayDetectors    map[uint16]replaydetector.ReplayDetector
	hs                 *handshakeState
	handshakeCompleted bool

	// the final flight we sent; a server answers retransmitted client
	// flights by replaying it.
	lastFlight []flightItem

	decrypted          chan interface{} // []byte or error
	decryptedCloseOnce sync.Once
	readDeadline       *deadline.Deadline

	closeOnce sync.Once
	closed    chan struct{}

	log logging.LeveledLogger
}

// handshakeState is the scratch state of an in-progress handshake. It is
// discarded once the handshake completes.
type handshakeState struct {
	nextMessageSeq uint16

	cookie           []byte
	firstClientHello []byte
	sentCookieHello  bool
	cookieVerified   bool
	serverHelloDone  bool

	offeredSuites []cipherSuite
	clientHello   *handshakeMessageClientHello

	localKeypair      *namedCurveKeypair
	remoteKeyExchange *handshakeMessageServerKeyExchange
	remotePSKHint     []byte
	pskIdentity       []byte
	preMasterSecret   []byte

	remoteRequestedCertificate bool
	remoteSentCertificate      bool
	remoteVerifiedCertificate  bool
	remoteOfferedEMS           bool
	requestedClientCertificate bool

	remoteFinished bool
}

// Client establishes a DTLS connection over an existing conn acting as the
// handshake initiator.
func Client(nextConn net.Conn, config *Config) (*Conn, error) {
	return createConn(nextConn, config, true)
}

// Server listens for an incoming DTLS connection.
func Server(nextConn net.Conn, config *Config) (*Conn, error) {
	if config != nil && config.PSK == nil && len(config.Certificates) == 0 {
		return nil, ErrServerMustHaveCertOrPSK
	}

	return createConn(nextConn, config, false)
}

func createConn(nextConn net.Conn, config *Config, isClient bool) (*Conn, error) {
	if nextConn == nil {
		return nil, ErrNilNextConn
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	c := &Conn{
		nextConn:        nextConn,
		config:          config,
		handshakeCache:  newHandshakeCache(),
		fragmentBuffer:  newFragmentBuffer(),
		replayDetectors: map[uint16]replaydetector.ReplayDetector{},
		decrypted:       make(chan interface{}, decryptedChannelSize),
		readDeadline:    deadline.New(),
		closed:          make(chan struct{}),
		log:             loggerFactory.NewLogger("dtls"),
	}
	c.state.isClient = isClient
	c.state.localSequenceNumber = map[uint16]uint64{}
	if err := c.state.localRandom.populate(); err != nil {
		return nil, err
	}

	var err error
	if isClient {
		err = c.clientHandshake()
	} else {
		err = c.serverHandshake()
	}
	if err != nil {
		c.notifyAlert(alertLevelFatal, errorToAlert(err))
		_ = nextConn.Close()

		return nil, err
	}

	_ = c.nextConn.SetReadDeadline(time.Time{})
	c.handshakeCompleted = true
	c.log.Tracef("Handshake Completed")

	go c.readLoop()

	return c, nil
}

// Read reads data from the connection.
func (c *Conn) Read(p []byte) (int, error) {
	select {
	case <-c.readDeadline.Done():
		return 0, &netError{os.ErrDeadlineExceeded, true, true}
	case out, ok := <-c.decrypted:
		if !ok {
			return 0, io.EOF
		}
		switch val := out.(type) {
		case ([]byte):
			if len(p) < len(val) {
				return 0, ErrBufferTooSmall
			}

			return copy(p, val), nil
		case (error):
			return 0, val
		}
	}

	return 0, io.EOF
}

// Write writes len(p) bytes from p to the DTLS connection.
func (c *Conn) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, ErrConnClosed
	default:
	}

	err := c.writePackets([]flightItem{
		{epoch: 1, content: &applicationData{data: p}},
	})
	if err != nil {
		return 0, err
	}

	return len(p), nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.handshakeCompleted {
			c.notifyAlert(alertLevelWarning, alertCloseNotify)
		}
		close(c.closed)
		err = c.nextConn.Close()
	})

	return err
}

// ConnectionState returns basic DTLS details about the connection.
func (c *Conn) ConnectionState() ConnectionState {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return ConnectionState{
		CipherSuiteID:                   c.state.cipherSuite.ID(),
		PeerCertificates:                c.state.peerCertificates,
		IdentityHint:                    c.state.identityHint,
		NegotiatedSRTPProtectionProfile: c.state.srtpProtectionProfile,
	}
}

// SelectedSRTPProtectionProfile returns the negotiated SRTPProtectionProfile.
func (c *Conn) SelectedSRTPProtectionProfile() (SRTPProtectionProfile, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.state.srtpProtectionProfile == 0 {
		return 0, false
	}

	return c.state.srtpProtectionProfile, true
}

// ExportKeyingMaterial exports length bytes of keying material per
// RFC 5705, used among others with the "EXTRACTOR-dtls_srtp" label to key
// SRTP sessions.
func (c *Conn) ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.handshakeCompleted {
		return nil, ErrHandshakeInProgress
	} else if len(context) != 0 {
		return nil, ErrContextUnsupported
	} else if label == prfMasterSecretLabel || label == prfKeyExpansionLabel {
		return nil, ErrReservedExportKeyingMaterial
	}

	localRandom := c.state.localRandom.Marshal()
	remoteRandom := c.state.remoteRandom.Marshal()

	seed := []byte(label)
	if c.state.isClient {
		seed = append(append(seed, localRandom...), remoteRandom...)
	} else {
		seed = append(append(seed, remoteRandom...), localRandom...)
	}

	return prfPHash(c.state.masterSecret, seed, length, c.state.cipherSuite.hashFunc())
}

// LocalAddr implements net.Conn.LocalAddr.
func (c *Conn) LocalAddr() net.Addr {
	return c.nextConn.LocalAddr()
}

// RemoteAddr implements net.Conn.RemoteAddr.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nextConn.RemoteAddr()
}

// SetDeadline implements net.Conn.SetDeadline.
func (c *Conn) SetDeadline(t time.Time) error {
	c.readDeadline.Set(t)

	return c.nextConn.SetWriteDeadline(t)
}

// SetReadDeadline implements net.Conn.SetReadDeadline.
func (c *Conn) SetReadDeadline(t time.Time) error {
	c.readDeadline.Set(t)

	return nil
}

// SetWriteDeadline implements net.Conn.SetWriteDeadline.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.nextConn.SetWriteDeadline(t)
}

// writePackets serializes, encrypts and bundles the given contents into
// MTU sized datagrams.
func (c *Conn) writePackets(items []flightItem) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	var datagram []byte
	flush := func() error {
		if len(datagram) == 0 {
			return nil
		}
		_, err := c.nextConn.Write(datagram)
		datagram = nil

		return err
	}

	for _, item := range items {
		seq := c.state.localSequenceNumber[item.epoch]
		if seq > maxSequenceNumber {
			return ErrSequenceNumberOverflow
		}
		c.state.localSequenceNumber[item.epoch]++

		pkt := &recordLayer{
			recordLayerHeader: recordLayerHeader{
				protocolVersion: protocolVersion1_2,
				epoch:           item.epoch,
				sequenceNumber:  seq,
			},
			content: item.content,
		}

		raw, err := pkt.Marshal()
		if err != nil {
			return err
		}
		if item.epoch != 0 {
			if raw, err = c.state.cipherSuite.encrypt(pkt, raw); err != nil {
				return err
			}
		}

		if len(datagram)+len(raw) > c.config.mtu() {
			if err := flush(); err != nil {
				return err
			}
		}
		datagram = append(datagram, raw...)
	}

	return flush()
}

// fragmentHandshake splits one handshake message into record sized
// fragments and returns the full message bytes for the transcript.
func (c *Conn) fragmentHandshake(msg handshakeMessage, epoch uint16) ([]flightItem, []byte, error) {
	body, err := msg.Marshal()
	if err != nil {
		return nil, nil, err
	}

	header := handshakeHeader{
		handshakeType:   msg.handshakeType(),
		length:          uint32(len(body)), //nolint:gosec // G115
		messageSequence: c.hs.nextMessageSeq,
		fragmentLength:  uint32(len(body)), //nolint:gosec // G115
	}
	c.hs.nextMessageSeq++

	fullHeader, err := header.Marshal()
	if err != nil {
		return nil, nil, err
	}
	full := append(fullHeader, body...)

	maxFragment := c.config.mtu() - recordLayerHeaderSize - handshakeHeaderLength - 64
	if maxFragment <= 0 {
		maxFragment = 1
	}

	items := []flightItem{}
	for offset := 0; ; {
		fragLen := len(body) - offset
		if fragLen > maxFragment {
			fragLen = maxFragment
		}

		fragHeader := header
		fragHeader.fragmentOffset = uint32(offset)  //nolint:gosec // G115
		fragHeader.fragmentLength = uint32(fragLen) //nolint:gosec // G115
		rawHeader, err := fragHeader.Marshal()
		if err != nil {
			return nil, nil, err
		}

		items = append(items, flightItem{
			epoch:   epoch,
			content: &handshakeFragment{raw: append(rawHeader, body[offset:offset+fragLen]...)},
		})

		offset += fragLen
		if offset >= len(body) {
			break
		}
	}

	return items, full, nil
}

// sendFlightAndWait transmits a flight and processes inbound records until
// done reports true, retransmitting the whole flight with exponential
// backoff per RFC 6347 §4.2.4.
func (c *Conn) sendFlightAndWait(flight []flightItem, done func() bool) error {
	interval := c.config.flightInterval()

	for retries := 0; ; retries++ {
		if len(flight) > 0 {
			if err := c.writePackets(flight); err != nil {
				return err
			}
		}
		if done() {
			return nil
		}

		_ = c.nextConn.SetReadDeadline(time.Now().Add(interval))
		err := c.readUntil(done)
		if err == nil {
			return nil
		}

		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			return err
		}
		if retries >= c.config.maximumRetransmits() {
			return ErrHandshakeTimeout
		}

		interval *= 2
		if interval > maxFlightInterval {
			interval = maxFlightInterval
		}
		c.log.Tracef("retransmitting flight, next interval %s", interval)
	}
}

func (c *Conn) readUntil(done func() bool) error {
	b := make([]byte, receiveMTU)
	for !done() {
		n, err := c.nextConn.Read(b)
		if err != nil {
			return err
		}
		if err := c.handleIncoming(b[:n]); err != nil {
			return err
		}
	}

	return nil
}

func (c *Conn) handleIncoming(buf []byte) error {
	pkts, err := unpackDatagram(buf)
	if err != nil {
		c.log.Debugf("discarded undecodable datagram: %v", err)

		return nil //nolint:nilerr // decode errors drop the datagram
	}

	for _, p := range pkts {
		if err := c.handleIncomingRecord(p); err != nil {
			return err
		}
	}

	return nil
}

func (c *Conn) handleIncomingRecord(buf []byte) error { //nolint:cyclop
	header := &recordLayerHeader{}
	if err := header.Unmarshal(buf); err != nil {
		c.log.Debugf("discarded bad record header: %v", err)

		return nil //nolint:nilerr
	}

	detector, ok := c.replayDetectors[header.epoch]
	if !ok {
		detector = replaydetector.New(defaultReplayWindow, maxSequenceNumber)
		c.replayDetectors[header.epoch] = detector
	}
	markPacketAsValid, ok := detector.Check(header.sequenceNumber)
	if !ok {
		c.log.Debugf("discarded duplicate packet (epoch: %d, seq: %d)", header.epoch, header.sequenceNumber)

		return nil
	}

	if header.epoch != 0 {
		if c.state.cipherSuite == nil || !c.state.cipherSuite.isInitialized() {
			c.log.Debugf("received encrypted packet with no cipher suite ready, dropping")

			return nil
		}

		var err error
		buf, err = c.state.cipherSuite.decrypt(header, buf)
		if err != nil {
			c.log.Debugf("decrypt failed: %v", err)

			return nil //nolint:nilerr
		}
		// Decrypting shrinks the payload, patch the record length so the
		// plaintext parses.
		binary.BigEndian.PutUint16(buf[recordLayerHeaderSize-2:], uint16(len(buf)-recordLayerHeaderSize)) //nolint:gosec // G115
	}

	isHandshake, err := c.fragmentBuffer.push(append([]byte{}, buf...))
	if err != nil {
		c.log.Debugf("discarded bad handshake fragment: %v", err)

		return nil //nolint:nilerr
	}
	if isHandshake {
		markPacketAsValid()
		if c.handshakeCompleted {
			// The peer retransmitted its final flight, ours was lost.
			return c.writePackets(c.lastFlight)
		}

		for out, _ := c.fragmentBuffer.pop(); out != nil; out, _ = c.fragmentBuffer.pop() {
			if err := c.handleHandshakeMessage(out); err != nil {
				return err
			}
		}

		return nil
	}

	record := &recordLayer{}
	if err := record.Unmarshal(buf); err != nil {
		c.log.Debugf("discarded bad record: %v", err)

		return nil //nolint:nilerr
	}

	switch content := record.content.(type) {
	case *alert:
		markPacketAsValid()
		if content.alertDescription == alertCloseNotify {
			c.decryptedCloseOnce.Do(func() { close(c.decrypted) })

			return ErrConnClosed
		}
		if content.alertLevel == alertLevelWarning {
			c.log.Debugf("received warning alert: %s", content)

			return nil
		}

		return &alertError{&alert{content.alertLevel, content.alertDescription}}
	case *changeCipherSpec:
		markPacketAsValid()
		c.lock.Lock()
		if c.state.remoteEpoch == header.epoch {
			c.state.remoteEpoch++
		}
		c.lock.Unlock()
	case *applicationData:
		if header.epoch == 0 {
			return ErrApplicationDataEpochZero
		}
		markPacketAsValid()
		select {
		case c.decrypted <- content.data:
		case <-c.closed:
		default:
			c.log.Warnf("dropped application data, receive queue full")
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnhandledContentType, header.contentType)
	}

	return nil
}

func (c *Conn) handleHandshakeMessage(raw []byte) error {
	h := &handshake{}
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	c.log.Tracef("<- %s", h.handshakeHeader.handshakeType)

	if c.state.isClient {
		return c.clientHandleMessage(raw, h)
	}

	return c.serverHandleMessage(raw, h)
}

// readLoop pumps the socket after the handshake has completed.
func (c *Conn) readLoop() {
	b := make([]byte, receiveMTU)
	for {
		n, err := c.nextConn.Read(b)
		if err != nil {
			c.pushReadError(err)

			return
		}
		if err := c.handleIncoming(b[:n]); err != nil {
			if !errors.Is(err, ErrConnClosed) {
				c.pushReadError(err)
			}

			return
		}
	}
}

func (c *Conn) pushReadError(err error) {
	select {
	case c.decrypted <- err:
	case <-c.closed:
	default:
	}
}

// notifyAlert sends an alert record, best effort.
func (c *Conn) notifyAlert(level alertLevel, desc alertDescription) {
	epoch := uint16(0)
	c.lock.RLock()
	if c.state.localEpoch > 0 {
		epoch = 1
	}
	c.lock.RUnlock()

	if err := c.writePackets([]flightItem{
		{epoch: epoch, content: &alert{alertLevel: level, alertDescription: desc}},
	}); err != nil {
		c.log.Debugf("failed to send alert: %v", err)
	}
}

// errorToAlert maps a local handshake failure onto the alert that is sent
// to the peer before tearing the connection down.
func errorToAlert(err error) alertDescription {
	switch {
	case errors.Is(err, ErrCookieMismatch), errors.Is(err, ErrVerifyDataMismatch):
		return alertHandshakeFailure
	case errors.Is(err, ErrNoSupportedCipherSuite), errors.Is(err, ErrClientNoMatchingSRTPProfile),
		errors.Is(err, ErrServerNoMatchingSRTPProfile):
		return alertInsufficientSecurity
	case errors.Is(err, ErrUnsupportedProtocolVersion):
		return alertProtocolVersion
	case errors.Is(err, ErrKeySignatureMismatch), errors.Is(err, ErrCertificateVerifyNoCertificate),
		errors.Is(err, ErrClientCertificateNotVerified):
		return alertBadCertificate
	case errors.Is(err, ErrClientCertificateRequired):
		return alertNoCertificate
	case errors.Is(err, ErrBufferTooSmall), errors.Is(err, ErrLengthMismatch):
		return alertDecodeError
	case errors.Is(err, ErrInvalidMAC), errors.Is(err, ErrDecryptFailed):
		return alertBadRecordMac
	default:
		return alertInternalError
	}
}

// netError adapts an error to the net.Error interface.
type netError struct {
	error
	timeout, temporary bool
}

func (e *netError) Timeout() bool   { return e.timeout }
func (e *netError) Temporary() bool { return e.temporary }
