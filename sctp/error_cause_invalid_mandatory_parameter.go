// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

// errorCauseInvalidMandatoryParameter is sent when one of the mandatory
// parameters of a received chunk is set to an invalid value.
type errorCauseInvalidMandatoryParameter struct {
	errorCauseHeader
}
