// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtcp

import (
	"encoding/binary"
	"fmt"
)

const (
	rrSSRCOffset   = 0
	rrReportOffset = 4
)

/*
ReceiverReport (RR) packet provides reception quality feedback for an RTP stream.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|V=2|P|    RC   |   PT=RR=201   |             length            | header
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                     SSRC of packet sender                     |
	+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
	|                 SSRC_1 (SSRC of first source)                 | report
	+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+ block(s)
	:                              ...                              :
	+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
*/
type ReceiverReport struct {
	// The synchronization source identifier for the originator of this RR packet.
	SSRC uint32
	// Zero or more reception report blocks depending on the number of other
	// sources heard by this sender since the last report.
	Reports []ReceptionReport
	// ProfileExtensions contains additional, payload-specific information.
	ProfileExtensions []byte
}

// Marshal encodes the ReceiverReport in binary.
func (r ReceiverReport) Marshal() ([]byte, error) {
	if len(r.Reports) > countMax {
		return nil, errTooManyReports
	}

	rawPacket := make([]byte, rrReportOffset)
	binary.BigEndian.PutUint32(rawPacket[rrSSRCOffset:], r.SSRC)

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

// Unmarshal decodes the ReceiverReport from binary.
func (r *ReceiverReport) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < headerLength+ssrcLength {
		return errPacketTooShort
	}

	var header Header
	if err := header.Unmarshal(rawPacket); err != nil {
		return err
	}
	if header.Type != TypeReceiverReport {
		return errWrongType
	}

	packetBody := rawPacket[headerLength:]

	r.SSRC = binary.BigEndian.Uint32(packetBody[rrSSRCOffset:])

	offset := rrReportOffset
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
func (r ReceiverReport) Header() Header {
	return Header{
		Count:  uint8(len(r.Reports)), //nolint:gosec // G115
		Type:   TypeReceiverReport,
		Length: uint16((r.MarshalSize() / 4) - 1), //nolint:gosec // G115
	}
}

// MarshalSize returns the size of the packet once marshaled.
func (r ReceiverReport) MarshalSize() int {
	return headerLength + ssrcLength +
		len(r.Reports)*receptionReportLength + len(r.ProfileExtensions)
}

// DestinationSSRC returns an array of SSRC values that this packet refers to.
func (r *ReceiverReport) DestinationSSRC() []uint32 {
	out := make([]uint32, len(r.Reports))
	for i, v := range r.Reports {
		out[i] = v.SSRC
	}

	return out
}

func (r ReceiverReport) String() string {
	out := fmt.Sprintf("ReceiverReport from %x\n", r.SSRC)
	out += "\tSSRC    \tLost\tLastSequence\n"
	for _, i := range r.Reports {
		out += fmt.Sprintf("\t%x\t%d/%d\t%d\n",
			i.SSRC, i.FractionLost, i.TotalLost, i.LastSequenceNumber)
	}

	return out
}
