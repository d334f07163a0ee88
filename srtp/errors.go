// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package srtp

import (
	"errors"
	"fmt"
)

var (
	errDuplicated             = errors.New("duplicated packet")
	errShortSrtpMasterKey     = errors.New("SRTP master key is not long enough")
	errShortSrtpMasterSalt    = errors.New("SRTP master salt is not long enough")
	errNoSuchSRTPProfile      = errors.New("no such SRTP Profile")
	errNonZeroKdrNotSupported = errors.New("indexOverKdr > 0 is not supported yet")
	errFailedToVerifyAuthTag  = errors.New("failed to verify auth tag")
	errTooShortRTP            = errors.New("packet is too short to be rtp packet")
	errTooShortRTCP           = errors.New("packet is too short to be rtcp packet")
)

type duplicatedError struct {
	Proto string
	SSRC  uint32
	Index uint32 // sequence number or index
}

func (e *duplicatedError) Error() string {
	return fmt.Sprintf("%s ssrc=%d index=%d: %v", e.Proto, e.SSRC, e.Index, errDuplicated)
}

func (e *duplicatedError) Unwrap() error {
	return errDuplicated
}
