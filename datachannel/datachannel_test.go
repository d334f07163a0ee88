// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package datachannel

import (
	"testing"
	"time"

	"github.com/halcyonlabs/rtcstack/sctp"
	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loggerFactory = logging.NewDefaultLoggerFactory()

func bridgeProcessAtLeastOne(br *test.Bridge) {
	nProcessed := 0
	for {
		time.Sleep(10 * time.Millisecond)
		nProcessed += br.Tick()
		if nProcessed > 0 {
			break
		}
	}
}

// readPumped performs a blocking read while keeping the bridge moving,
// since delivery may take more round trips than a single tick.
func readPumped(br *test.Bridge, dc *DataChannel, buf []byte) (int, bool, error) {
	var n int
	var isString bool
	var err error

	done := make(chan struct{})
	go func() {
		n, isString, err = dc.ReadDataChannel(buf)
		close(done)
	}()

	for {
		time.Sleep(10 * time.Millisecond)
		br.Tick()

		select {
		case <-done:
			return n, isString, err
		default:
		}
	}
}

func createNewAssociationPair(br *test.Bridge) (*sctp.Association, *sctp.Association, error) {
	var a0, a1 *sctp.Association
	var err0, err1 error

	handshake0Ch := make(chan bool)
	handshake1Ch := make(chan bool)

	go func() {
		a0, err0 = sctp.Client(sctp.Config{
			NetConn:       br.GetConn0(),
			LoggerFactory: loggerFactory,
		})
		handshake0Ch <- true
	}()
	go func() {
		a1, err1 = sctp.Server(sctp.Config{
			NetConn:       br.GetConn1(),
			LoggerFactory: loggerFactory,
		})
		handshake1Ch <- true
	}()

	a0handshakeDone := false
	a1handshakeDone := false
loop1:
	for i := 0; i < 1e3; i++ {
		time.Sleep(10 * time.Millisecond)
		br.Tick()

		select {
		case a0handshakeDone = <-handshake0Ch:
			if a1handshakeDone {
				break loop1
			}
		case a1handshakeDone = <-handshake1Ch:
			if a0handshakeDone {
				break loop1
			}
		default:
		}
	}

	if err0 != nil {
		return nil, nil, err0
	}
	if err1 != nil {
		return nil, nil, err1
	}

	return a0, a1, nil
}

func closeAssociationPair(br *test.Bridge, a0, a1 *sctp.Association) {
	close0Ch := make(chan bool)
	close1Ch := make(chan bool)

	go func() {
		a0.Close() // nolint:errcheck,gosec
		close0Ch <- true
	}()
	go func() {
		a1.Close() // nolint:errcheck,gosec
		close1Ch <- true
	}()

	a0closed := false
	a1closed := false
loop1:
	for i := 0; i < 100; i++ {
		time.Sleep(10 * time.Millisecond)
		br.Tick()

		select {
		case a0closed = <-close0Ch:
			if a1closed {
				break loop1
			}
		case a1closed = <-close1Ch:
			if a0closed {
				break loop1
			}
		default:
		}
	}
}

func prOpenChannel(t *testing.T, br *test.Bridge, a0, a1 *sctp.Association) (*DataChannel, *DataChannel) {
	t.Helper()

	cfg := &Config{
		ChannelType:          ChannelTypeReliable,
		ReliabilityParameter: 0,
		Label:                "data",
		LoggerFactory:        loggerFactory,
	}

	dc0, err := Dial(a0, 100, cfg)
	require.NoError(t, err, "Dial must succeed")
	bridgeProcessAtLeastOne(br)

	acceptCh := make(chan *DataChannel)
	errCh := make(chan error)
	go func() {
		dc1, acceptErr := Accept(a1, &Config{LoggerFactory: loggerFactory})
		if acceptErr != nil {
			errCh <- acceptErr

			return
		}
		acceptCh <- dc1
	}()

	var dc1 *DataChannel
loop:
	for {
		time.Sleep(10 * time.Millisecond)
		br.Tick()

		select {
		case dc1 = <-acceptCh:
			break loop
		case acceptErr := <-errCh:
			require.NoError(t, acceptErr, "Accept must succeed")
		default:
		}
	}

	assert.Equal(t, "data", dc1.Config.Label, "label should match")
	assert.Equal(t, ChannelTypeReliable, dc1.Config.ChannelType, "channel type should match")
	assert.Equal(t, uint16(100), dc1.StreamIdentifier(), "stream id should match")

	return dc0, dc1
}

func TestDataChannelOpenAck(t *testing.T) {
	br := test.NewBridge()
	a0, a1, err := createNewAssociationPair(br)
	require.NoError(t, err, "failed to create associations")

	dc0, dc1 := prOpenChannel(t, br, a0, a1)

	openCompletedCh := make(chan struct{})
	dc0.OnOpen(func() {
		close(openCompletedCh)
	})

	// The ACK is consumed by the next read on dc0. Use a follow-up user
	// message so ReadDataChannel has something to return.
	n, err := dc1.WriteDataChannel([]byte("hi"), true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	buf := make([]byte, 16)
	n, isString, err := readPumped(br, dc0, buf)
	require.NoError(t, err)
	assert.True(t, isString, "should be a string message")
	assert.Equal(t, "hi", string(buf[:n]))

	select {
	case <-openCompletedCh:
	case <-time.After(1 * time.Second):
		assert.Fail(t, "OnOpen handler was not called")
	}

	closeAssociationPair(br, a0, a1)
}

func TestDataChannelSendReceive(t *testing.T) {
	br := test.NewBridge()
	a0, a1, err := createNewAssociationPair(br)
	require.NoError(t, err, "failed to create associations")

	dc0, dc1 := prOpenChannel(t, br, a0, a1)

	buf := make([]byte, 16)

	t.Run("string message", func(t *testing.T) {
		n, werr := dc0.WriteDataChannel([]byte("ABC"), true)
		require.NoError(t, werr)
		assert.Equal(t, 3, n)

		n, isString, rerr := readPumped(br, dc1, buf)
		require.NoError(t, rerr)
		assert.True(t, isString)
		assert.Equal(t, "ABC", string(buf[:n]))
	})

	t.Run("binary message", func(t *testing.T) {
		n, werr := dc1.WriteDataChannel([]byte{0x01, 0x02}, false)
		require.NoError(t, werr)
		assert.Equal(t, 2, n)

		n, isString, rerr := readPumped(br, dc0, buf)
		require.NoError(t, rerr)
		assert.False(t, isString)
		assert.Equal(t, []byte{0x01, 0x02}, buf[:n])
	})

	t.Run("empty string message", func(t *testing.T) {
		n, werr := dc0.WriteDataChannel(nil, true)
		require.NoError(t, werr)
		assert.Equal(t, 0, n)

		n, isString, rerr := readPumped(br, dc1, buf)
		require.NoError(t, rerr)
		assert.True(t, isString)
		assert.Equal(t, 0, n, "empty message must be delivered with zero length")
	})

	t.Run("empty binary message", func(t *testing.T) {
		n, werr := dc0.WriteDataChannel(nil, false)
		require.NoError(t, werr)
		assert.Equal(t, 0, n)

		n, isString, rerr := readPumped(br, dc1, buf)
		require.NoError(t, rerr)
		assert.False(t, isString)
		assert.Equal(t, 0, n, "empty message must be delivered with zero length")
	})

	t.Run("stats", func(t *testing.T) {
		assert.Equal(t, uint32(3), dc0.MessagesSent())
		assert.Equal(t, uint64(3), dc0.BytesSent())
		assert.Equal(t, uint32(1), dc0.MessagesReceived())
		assert.Equal(t, uint64(2), dc0.BytesReceived())

		assert.Equal(t, uint32(3), dc1.MessagesReceived())
		assert.Equal(t, uint64(3), dc1.BytesReceived())
	})

	closeAssociationPair(br, a0, a1)
}

func TestDataChannelBufferedAmount(t *testing.T) {
	br := test.NewBridge()
	a0, a1, err := createNewAssociationPair(br)
	require.NoError(t, err, "failed to create associations")

	dc0, dc1 := prOpenChannel(t, br, a0, a1)

	assert.Equal(t, uint64(0), dc0.BufferedAmountLowThreshold())
	dc0.SetBufferedAmountLowThreshold(1024)
	assert.Equal(t, uint64(1024), dc0.BufferedAmountLowThreshold())

	lowCh := make(chan struct{}, 1)
	dc0.OnBufferedAmountLow(func() {
		select {
		case lowCh <- struct{}{}:
		default:
		}
	})

	for i := 0; i < 10; i++ {
		_, werr := dc0.WriteDataChannel(make([]byte, 512), false)
		require.NoError(t, werr)
	}

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 2048)
		for i := 0; i < 10; i++ {
			_, _, rerr := dc1.ReadDataChannel(buf)
			if rerr != nil {
				return
			}
		}
		close(done)
	}()

loop:
	for i := 0; i < 1e3; i++ {
		time.Sleep(10 * time.Millisecond)
		br.Tick()
		select {
		case <-done:
			break loop
		default:
		}
	}

	// Keep the bridge moving until the acknowledgements drain the buffer.
	for i := 0; i < 100 && dc0.BufferedAmount() > 0; i++ {
		time.Sleep(10 * time.Millisecond)
		br.Tick()
	}

	select {
	case <-lowCh:
	case <-time.After(1 * time.Second):
		assert.Fail(t, "bufferedAmountLow handler was not called")
	}
	assert.Equal(t, uint64(0), dc0.BufferedAmount())

	closeAssociationPair(br, a0, a1)
}

func TestCommitReliabilityParams(t *testing.T) {
	cases := []struct {
		name        string
		channelType ChannelType
	}{
		{"reliable", ChannelTypeReliable},
		{"reliable unordered", ChannelTypeReliableUnordered},
		{"partial reliable rexmit", ChannelTypePartialReliableRexmit},
		{"partial reliable rexmit unordered", ChannelTypePartialReliableRexmitUnordered},
		{"partial reliable timed", ChannelTypePartialReliableTimed},
		{"partial reliable timed unordered", ChannelTypePartialReliableTimedUnordered},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			br := test.NewBridge()
			a0, a1, err := createNewAssociationPair(br)
			require.NoError(t, err, "failed to create associations")

			cfg := &Config{
				ChannelType:          c.channelType,
				ReliabilityParameter: 3,
				Label:                c.name,
				LoggerFactory:        loggerFactory,
			}

			dc0, err := Dial(a0, 1, cfg)
			require.NoError(t, err)
			bridgeProcessAtLeastOne(br)

			acceptCh := make(chan *DataChannel)
			go func() {
				dc1, acceptErr := Accept(a1, &Config{LoggerFactory: loggerFactory})
				if acceptErr == nil {
					acceptCh <- dc1
				}
			}()

			var dc1 *DataChannel
		loop:
			for {
				time.Sleep(10 * time.Millisecond)
				br.Tick()
				select {
				case dc1 = <-acceptCh:
					break loop
				default:
				}
			}

			assert.Equal(t, c.channelType, dc1.Config.ChannelType)
			assert.Equal(t, uint32(3), dc1.Config.ReliabilityParameter)
			assert.NoError(t, dc0.commitReliabilityParams())

			closeAssociationPair(br, a0, a1)
		})
	}

	t.Run("invalid channel type", func(t *testing.T) {
		dc := &DataChannel{Config: Config{ChannelType: ChannelType(0x7f)}}
		assert.ErrorIs(t, dc.commitReliabilityParams(), ErrInvalidChannelType)
	})
}
