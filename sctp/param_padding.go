// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

type paramPadding struct {
	paramHeader
	paddingData []byte
}

func (r *paramPadding) marshal() ([]byte, error) {
	r.typ = padding
	r.raw = r.paddingData

	return r.paramHeader.marshal()
}

func (r *paramPadding) unmarshal(raw []byte) (param, error) {
	err := r.paramHeader.unmarshal(raw)
	if err != nil {
		return nil, err
	}
	r.paddingData = r.raw

	return r, nil
}
