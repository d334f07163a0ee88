// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsession

import "errors"

var (
	errInvalidLogSize    = errors.New("invalid receive log size, must be a power of two within [64, 32768]")
	errInvalidBufferSize = errors.New("invalid send buffer size, must be a power of two within [1, 32768]")
	errSessionClosed     = errors.New("session is closed")
	errFeedbackTooFew    = errors.New("feedback requires at least one received packet")
)
