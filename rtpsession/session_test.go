// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import (
	"net"
	"testing"
	"time"

	"github.com/halcyonlabs/rtcstack/rtcp"
	"github.com/halcyonlabs/rtcstack/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSessionPair(t *testing.T, configA, configB Config) (*Session, *Session) {
	t.Helper()

	rtpA, rtpB := net.Pipe()
	rtcpA, rtcpB := net.Pipe()

	sessionA, err := NewSession(rtpA, rtcpA, configA)
	require.NoError(t, err)

	sessionB, err := NewSession(rtpB, rtcpB, configB)
	require.NoError(t, err)

	return sessionA, sessionB
}

func mediaPacket(ssrc uint32, seq uint16, payload []byte) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SSRC:           ssrc,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 3000,
			PayloadType:    96,
		},
		Payload: payload,
	}
}

func rawMediaPacket(t *testing.T, ssrc uint32, seq uint16) []byte {
	t.Helper()

	raw, err := mediaPacket(ssrc, seq, []byte{0xde, 0xad}).Marshal()
	require.NoError(t, err)

	return raw
}

// readRTCPUntil reads compound packets from conn until match returns
// true for one of the contained packets.
func readRTCPUntil(t *testing.T, conn net.Conn, match func(rtcp.Packet) bool) rtcp.Packet {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, defaultReceiveMTU)
	for {
		n, err := conn.Read(buf)
		require.NoError(t, err)

		pkts, err := rtcp.Unmarshal(buf[:n])
		require.NoError(t, err)

		for _, pkt := range pkts {
			if match(pkt) {
				return pkt
			}
		}
	}
}

func TestSessionReadWrite(t *testing.T) {
	sessionA, sessionB := createSessionPair(t,
		Config{LocalSSRC: 1},
		Config{LocalSSRC: 2},
	)
	defer func() {
		assert.NoError(t, sessionA.Close())
		assert.NoError(t, sessionB.Close())
	}()

	payload := []byte{0x01, 0x02, 0x03}
	_, err := sessionA.WriteRTP(mediaPacket(5555, 100, payload))
	require.NoError(t, err)

	stream, err := sessionB.AcceptStream()
	require.NoError(t, err)
	assert.Equal(t, uint32(5555), stream.SSRC())

	buf := make([]byte, defaultReceiveMTU)
	n, header, err := stream.ReadRTP(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), header.SequenceNumber)

	pkt := &rtp.Packet{}
	require.NoError(t, pkt.Unmarshal(buf[:n]))
	assert.Equal(t, payload, pkt.Payload)
}

func TestSessionOpenReadStream(t *testing.T) {
	sessionA, sessionB := createSessionPair(t,
		Config{LocalSSRC: 1},
		Config{LocalSSRC: 2},
	)
	defer func() {
		assert.NoError(t, sessionA.Close())
		assert.NoError(t, sessionB.Close())
	}()

	stream, err := sessionB.OpenReadStream(5555)
	require.NoError(t, err)

	_, err = sessionA.WriteRTP(mediaPacket(5555, 7, []byte{0xaa}))
	require.NoError(t, err)

	buf := make([]byte, defaultReceiveMTU)
	_, header, err := stream.ReadRTP(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), header.SequenceNumber)
}

func TestSessionRetransmitOnNack(t *testing.T) {
	sessionA, sessionB := createSessionPair(t,
		Config{LocalSSRC: 1},
		Config{LocalSSRC: 2},
	)
	defer func() {
		assert.NoError(t, sessionA.Close())
		assert.NoError(t, sessionB.Close())
	}()

	_, err := sessionA.WriteRTP(mediaPacket(5555, 10, []byte{0x11}))
	require.NoError(t, err)

	stream, err := sessionB.AcceptStream()
	require.NoError(t, err)

	buf := make([]byte, defaultReceiveMTU)
	_, header, err := stream.ReadRTP(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), header.SequenceNumber)

	// report the packet lost, the sender replays it from its buffer
	_, err = sessionB.WriteRTCP([]rtcp.Packet{&rtcp.TransportLayerNack{
		SenderSSRC: 2,
		MediaSSRC:  5555,
		Nacks:      rtcp.NackPairsFromSequenceNumbers([]uint16{10}),
	}})
	require.NoError(t, err)

	_, header, err = stream.ReadRTP(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), header.SequenceNumber)
}

func TestSessionNackGeneration(t *testing.T) {
	rtpNear, rtpFar := net.Pipe()
	rtcpNear, rtcpFar := net.Pipe()

	session, err := NewSession(rtpNear, rtcpNear, Config{
		LocalSSRC:    7,
		NackInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, session.Close())
	}()

	for _, seq := range []uint16{65533, 65534, 0, 1, 3} {
		_, err = rtpFar.Write(rawMediaPacket(t, 9000, seq))
		require.NoError(t, err)
	}

	pkt := readRTCPUntil(t, rtcpFar, func(p rtcp.Packet) bool {
		_, ok := p.(*rtcp.TransportLayerNack)

		return ok
	})

	nack, ok := pkt.(*rtcp.TransportLayerNack)
	require.True(t, ok)
	assert.Equal(t, uint32(7), nack.SenderSSRC)
	assert.Equal(t, uint32(9000), nack.MediaSSRC)

	var missing []uint16
	for _, pair := range nack.Nacks {
		missing = append(missing, pair.PacketList()...)
	}
	assert.Equal(t, []uint16{65535, 2}, missing)
}

func TestSessionReceiverReport(t *testing.T) {
	rtpNear, rtpFar := net.Pipe()
	rtcpNear, rtcpFar := net.Pipe()

	session, err := NewSession(rtpNear, rtcpNear, Config{
		LocalSSRC:      7,
		ReportInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, session.Close())
	}()

	for _, seq := range []uint16{0, 1, 2} {
		_, err = rtpFar.Write(rawMediaPacket(t, 9000, seq))
		require.NoError(t, err)
	}

	pkt := readRTCPUntil(t, rtcpFar, func(p rtcp.Packet) bool {
		rr, ok := p.(*rtcp.ReceiverReport)

		return ok && len(rr.Reports) > 0
	})

	rr, ok := pkt.(*rtcp.ReceiverReport)
	require.True(t, ok)
	assert.Equal(t, uint32(7), rr.SSRC)
	require.Len(t, rr.Reports, 1)
	assert.Equal(t, uint32(9000), rr.Reports[0].SSRC)
	assert.Equal(t, uint32(0), rr.Reports[0].TotalLost)
	assert.Equal(t, uint32(2), rr.Reports[0].LastSequenceNumber)
}

func TestSessionTWCCFeedback(t *testing.T) {
	rtpNear, rtpFar := net.Pipe()
	rtcpNear, rtcpFar := net.Pipe()

	const extensionID = 5
	session, err := NewSession(rtpNear, rtcpNear, Config{
		LocalSSRC:       7,
		TWCCExtensionID: extensionID,
		TWCCInterval:    10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, session.Close())
	}()

	for i := uint16(0); i < 3; i++ {
		pkt := mediaPacket(9000, i, []byte{0x01})
		require.NoError(t, pkt.SetExtension(extensionID, []byte{0x00, byte(i)}))
		raw, marshalErr := pkt.Marshal()
		require.NoError(t, marshalErr)
		_, err = rtpFar.Write(raw)
		require.NoError(t, err)
	}

	got := readRTCPUntil(t, rtcpFar, func(p rtcp.Packet) bool {
		_, ok := p.(*rtcp.TransportLayerCC)

		return ok
	})

	fb, ok := got.(*rtcp.TransportLayerCC)
	require.True(t, ok)
	assert.Equal(t, uint32(7), fb.SenderSSRC)
	assert.Equal(t, uint32(9000), fb.MediaSSRC)
	assert.Equal(t, uint16(0), fb.BaseSequenceNumber)
	assert.GreaterOrEqual(t, fb.PacketStatusCount, uint16(1))
}

func TestSessionClose(t *testing.T) {
	sessionA, sessionB := createSessionPair(t,
		Config{LocalSSRC: 1},
		Config{LocalSSRC: 2},
	)

	require.NoError(t, sessionA.Close())
	assert.NoError(t, sessionA.Close()) // idempotent

	_, err := sessionA.WriteRTP(mediaPacket(1, 1, []byte{0x01}))
	assert.ErrorIs(t, err, errSessionClosed)

	_, err = sessionA.AcceptStream()
	assert.ErrorIs(t, err, errSessionClosed)

	assert.NoError(t, sessionB.Close())
}
