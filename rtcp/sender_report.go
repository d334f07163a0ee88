// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtcp

import (
	"encoding/binary"
	"fmt"
)

const (
	srHeaderLength      = 24
	srSSRCOffset        = 0
	srNTPOffset         = 4
	srRTPOffset         = 12
	srPacketCountOffset = 16
	srOctetCountOffset  = 20
	srReportOffset      = 24
)

/*
SenderReport (SR) packet provides reception quality feedback for an RTP stream.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|V=2|P|    RC   |   PT=SR=200   |             length            | header
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                         SSRC of sender                        |
	+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
	|              NTP timestamp, most significant word             | sender
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+ info
	|             NTP timestamp, least significant word             |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                         RTP timestamp                         |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                     sender's packet count                     |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                      sender's octet count                     |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                 SSRC_1 (SSRC of first source)                 | report
	+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+ block(s)
	:                              ...                              :
	+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
*/
type SenderReport struct {
	// The synchronization source identifier for the originator of this SR packet.
	SSRC uint32
	// The wallclock time when this report was sent so that it may be used in
	// combination with timestamps returned in reception reports from other
	// receivers to measure round-trip propagation to those receivers.
	NTPTime uint64
	// Corresponds to the same time as the NTP timestamp (above), but in
	// the same units and with the same random offset as the RTP
	// timestamps in data packets.
	RTPTime uint32
	// The total number of RTP data packets transmitted by the sender
	// since starting transmission up until the time this SR packet was
	// generated.
	PacketCount uint32
	// The total number of payload octets (i.e., not including header or
	// padding) transmitted in RTP data packets by the sender since
	// starting transmission up until the time this SR packet was
	// generated.
	OctetCount uint32
	// Zero or more reception report blocks depending on the number of other
	// sources heard by this sender since the last report.
	Reports []ReceptionReport
	// ProfileExtensions contains additional, payload-specific information
	// that needs to be reported regularly about the sender.
	ProfileExtensions []byte
}

// Marshal encodes the SenderReport in binary.
func (r SenderReport) Marshal() ([]byte, error) {
	if len(r.Reports) > countMax {
		return nil, errTooManyReports
	}

	rawPacket := make([]byte, srHeaderLength)

	binary.BigEndian.PutUint32(rawPacket[srSSRCOffset:], r.SSRC)
	binary.BigEndian.PutUint64(rawPacket[srNTPOffset:], r.NTPTime)
	binary.BigEndian.PutUint32(rawPacket[srRTPOffset:], r.RTPTime)
	binary.BigEndian.PutUint32(rawPacket[srPacketCountOffset:], r.PacketCount)
	binary.BigEndian.PutUint32(rawPacket[srOctetCountOffset:], r.OctetCount)

	for _, rp := range r.Reports {
		data, err := rp.Marshal()
		if err != nil {
			return nil, err
		}
		rawPacket = append(rawPacket, data...)
	}

	rawPacket = append(rawPacket, r.ProfileExtensions...)

	header := r.Header()
	headerData, err := header.Marshal()
	if err != nil {
		return nil, err
	}

	return append(headerData, rawPacket...), nil
}

// Unmarshal decodes the SenderReport from binary.
func (r *SenderReport) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < headerLength+srHeaderLength {
		return errPacketTooShort
	}

	var header Header
	if err := header.Unmarshal(rawPacket); err != nil {
		return err
	}
	if header.Type != TypeSenderReport {
		return errWrongType
	}

	packetBody := rawPacket[headerLength:]

	r.SSRC = binary.BigEndian.Uint32(packetBody[srSSRCOffset:])
	r.NTPTime = binary.BigEndian.Uint64(packetBody[srNTPOffset:])
	r.RTPTime = binary.BigEndian.Uint32(packetBody[srRTPOffset:])
	r.PacketCount = binary.BigEndian.Uint32(packetBody[srPacketCountOffset:])
	r.OctetCount = binary.BigEndian.Uint32(packetBody[srOctetCountOffset:])

	offset := srReportOffset
	r.Reports = make([]ReceptionReport, 0, header.Count)
	for i := 0; i < int(header.Count); i++ {
		if offset+receptionReportLength > len(packetBody) {
			return errPacketTooShort
		}
		var report ReceptionReport
		if err := report.Unmarshal(packetBody[offset:]); err != nil {
			return err
		}
		r.Reports = append(r.Reports, report)
		offset += receptionReportLength
	}

	if offset < len(packetBody) {
		r.ProfileExtensions = packetBody[offset:]
	}

	return nil
}

// Header returns the Header associated with this packet.
func (r SenderReport) Header() Header {
	return Header{
		Count:  uint8(len(r.Reports)), //nolint:gosec // G115
		Type:   TypeSenderReport,
		Length: uint16((r.MarshalSize() / 4) - 1), //nolint:gosec // G115
	}
}

// MarshalSize returns the size of the packet once marshaled.
func (r SenderReport) MarshalSize() int {
	return headerLength + srHeaderLength +
		len(r.Reports)*receptionReportLength + len(r.ProfileExtensions)
}

// DestinationSSRC returns an array of SSRC values that this packet refers to.
func (r *SenderReport) DestinationSSRC() []uint32 {
	out := make([]uint32, len(r.Reports)+1)
	for i, v := range r.Reports {
		out[i] = v.SSRC
	}
	out[len(r.Reports)] = r.SSRC

	return out
}

func (r SenderReport) String() string {
	out := fmt.Sprintf("SenderReport from %x\n", r.SSRC)
	out += fmt.Sprintf("\tNTPTime:\t%d\n", r.NTPTime)
	out += fmt.Sprintf("\tRTPTime:\t%d\n", r.RTPTime)
	out += fmt.Sprintf("\tPacketCount:\t%d\n", r.PacketCount)
	out += fmt.Sprintf("\tOctetCount:\t%d\n", r.OctetCount)

	out += "\tSSRC    \tLost\tLastSequence\n"
	for _, i := range r.Reports {
		out += fmt.Sprintf("\t%x\t%d/%d\t%d\n",
			i.SSRC, i.FractionLost, i.TotalLost, i.LastSequenceNumber)
	}

	return out
}
